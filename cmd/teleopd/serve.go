package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wemo-robotics/teleopd/internal/api"
	"github.com/wemo-robotics/teleopd/internal/audit"
	"github.com/wemo-robotics/teleopd/internal/config"
	"github.com/wemo-robotics/teleopd/internal/notify"
	"github.com/wemo-robotics/teleopd/internal/notify/discord"
	"github.com/wemo-robotics/teleopd/internal/notify/slack"
	"github.com/wemo-robotics/teleopd/internal/teleop"
	"github.com/wemo-robotics/teleopd/internal/transport"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the teleoperation API server",
		Long:  "Loads the config, connects the audit store and notifier, and serves the HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "teleopd.yaml", "path to teleopd config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config for %s@%s.* from %s\n", cfg.Robot.User, cfg.Robot.BaseHost, configPath)

	// The controller password is never required in the file; prompt for
	// it when absent so it stays out of checked-in configs.
	if cfg.Robot.Password == "" {
		pw, err := promptPassword(cmd)
		if err != nil {
			return err
		}
		cfg.Robot.Password = pw
	}

	store, err := audit.Open(cfg.Audit)
	if err != nil {
		return err
	}
	if store != nil {
		fmt.Fprintf(out, "Audit trail on %s\n", cfg.Audit.Driver)
	}

	adapter, err := newNotifyAdapter(cfg.Notify)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	opts := teleop.ServiceOpts{
		Dialer:   transport.PTYDialer{},
		Robot:    cfg.Robot,
		Timeouts: cfg.Timeouts,
	}
	if store != nil {
		opts.Recorder = store
		go store.RunSweeper(ctx)
	}
	if adapter != nil {
		if err := adapter.Connect(ctx); err != nil {
			return fmt.Errorf("notify: connect %s: %w", cfg.Notify.Platform, err)
		}
		defer adapter.Close()
		fmt.Fprintf(out, "Notifications on %s\n", cfg.Notify.Platform)

		notifier := notify.New(adapter)
		opts.Notifier = notifier
		if cfg.Notify.DigestSchedule != "" {
			if store != nil {
				go notifier.RunDigest(ctx, store, cfg.Notify.DigestSchedule)
			} else {
				log.Printf("serve: digest schedule set but audit is off, skipping digest")
			}
		}
	}

	core, err := teleop.NewService(opts)
	if err != nil {
		return err
	}

	return api.Start(ctx, api.StartOpts{
		Core: core,
		Port: cfg.API.Port,
		Out:  out,
	})
}

// newNotifyAdapter builds the notification adapter for the configured
// platform, or nil when notifications are disabled.
func newNotifyAdapter(cfg config.NotifyConfig) (notify.Adapter, error) {
	switch cfg.Platform {
	case "", "none":
		return nil, nil
	case "slack":
		return slack.New(slack.AdapterOpts{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Slack.Channel,
		})
	case "discord":
		return discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
	default:
		return nil, fmt.Errorf("notify: unknown platform %q", cfg.Platform)
	}
}

// promptPassword reads the controller password from the terminal
// without echo. Refuses to run when stdin is not a terminal rather
// than blocking forever on a pipe.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("serve: robot.password not set and stdin is not a terminal")
	}
	fmt.Fprint(cmd.OutOrStdout(), "Controller password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("serve: read password: %w", err)
	}
	pw := strings.TrimSpace(string(raw))
	if pw == "" {
		return "", fmt.Errorf("serve: empty password")
	}
	return pw, nil
}
