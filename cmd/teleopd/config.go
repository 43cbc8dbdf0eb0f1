package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wemo-robotics/teleopd/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(newConfigCheckCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teleopd.yaml", "path to teleopd config file")
	return cmd
}

func runConfigCheck(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Config %s is valid\n", configPath)
	fmt.Fprintf(out, "  robot:    %s@%s.* (offset %d), e.g. robot 1 -> %s\n",
		cfg.Robot.User, cfg.Robot.BaseHost, cfg.Robot.AddrOffset, cfg.Robot.Addr(1))
	if cfg.Robot.Password == "" {
		fmt.Fprintf(out, "  password: not set, serve will prompt\n")
	} else {
		fmt.Fprintf(out, "  password: set\n")
	}
	fmt.Fprintf(out, "  api:      port %d\n", cfg.API.Port)
	fmt.Fprintf(out, "  timeouts: connect %s, auth %s, tool %s, grant %s\n",
		cfg.Timeouts.Connect, cfg.Timeouts.Auth, cfg.Timeouts.ToolReady, cfg.Timeouts.ControlGrant)
	fmt.Fprintf(out, "  audit:    %s\n", cfg.Audit.Driver)
	platform := cfg.Notify.Platform
	if platform == "" {
		platform = "none"
	}
	fmt.Fprintf(out, "  notify:   %s\n", platform)
	return nil
}
