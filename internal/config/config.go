// Package config provides YAML-based configuration loading for teleopd.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level teleopd configuration, loaded from teleopd.yaml.
type Config struct {
	Robot    RobotConfig    `yaml:"robot"`
	API      APIConfig      `yaml:"api"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Audit    AuditConfig    `yaml:"audit"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// RobotConfig holds connection settings for robot controllers. The address
// of a controller is BaseHost + "." + (robotID + AddrOffset).
type RobotConfig struct {
	BaseHost   string `yaml:"base_host"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	AddrOffset int    `yaml:"addr_offset"`
}

// Addr returns the controller address for a robot ID.
func (r RobotConfig) Addr(robotID int) string {
	return fmt.Sprintf("%s.%d", r.BaseHost, robotID+r.AddrOffset)
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// TimeoutsConfig holds the per-step deadlines and settle delays of the
// login/launch sequence. The settle delays are best-effort waits: the remote
// console gives no textual marker for roster population or robot selection,
// so these cannot be upgraded to real event waits.
type TimeoutsConfig struct {
	Connect      time.Duration `yaml:"connect"`
	Auth         time.Duration `yaml:"auth"`
	ToolReady    time.Duration `yaml:"tool_ready"`
	ControlGrant time.Duration `yaml:"control_grant"`
	RosterSettle time.Duration `yaml:"roster_settle"`
	SelectSettle time.Duration `yaml:"select_settle"`
	EndStep      time.Duration `yaml:"end_step_settle"`
}

// AuditConfig holds settings for the command/session audit trail.
type AuditConfig struct {
	Driver        string `yaml:"driver"` // "sqlite", "mysql", or "off"
	Path          string `yaml:"path"`   // sqlite file path
	Host          string `yaml:"host"`   // mysql
	Port          int    `yaml:"port"`   // mysql
	Database      string `yaml:"database"`
	RetentionDays int    `yaml:"retention_days"`
	SweepSchedule string `yaml:"sweep_schedule"` // 5-field cron expression
}

// NotifyConfig holds operator notification settings.
type NotifyConfig struct {
	Platform       string              `yaml:"platform"` // "none", "slack", "discord"
	Slack          SlackNotifyConfig   `yaml:"slack"`
	Discord        DiscordNotifyConfig `yaml:"discord"`
	DigestSchedule string              `yaml:"digest_schedule"` // 5-field cron, empty disables
}

// SlackNotifyConfig holds Slack credentials and target channel.
type SlackNotifyConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordNotifyConfig holds Discord credentials and target channel.
type DiscordNotifyConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Robot.AddrOffset == 0 {
		c.Robot.AddrOffset = 100
	}
	if c.API.Port == 0 {
		c.API.Port = 8000
	}
	if c.Timeouts.Connect == 0 {
		c.Timeouts.Connect = 30 * time.Second
	}
	if c.Timeouts.Auth == 0 {
		c.Timeouts.Auth = 10 * time.Second
	}
	if c.Timeouts.ToolReady == 0 {
		c.Timeouts.ToolReady = 15 * time.Second
	}
	if c.Timeouts.ControlGrant == 0 {
		c.Timeouts.ControlGrant = 10 * time.Second
	}
	if c.Timeouts.RosterSettle == 0 {
		c.Timeouts.RosterSettle = 10 * time.Second
	}
	if c.Timeouts.SelectSettle == 0 {
		c.Timeouts.SelectSettle = 5 * time.Second
	}
	if c.Timeouts.EndStep == 0 {
		c.Timeouts.EndStep = 300 * time.Millisecond
	}
	if c.Audit.Driver == "" {
		c.Audit.Driver = "sqlite"
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "teleopd.db"
	}
	if c.Audit.Host == "" {
		c.Audit.Host = "127.0.0.1"
	}
	if c.Audit.Port == 0 {
		c.Audit.Port = 3306
	}
	if c.Audit.Database == "" {
		c.Audit.Database = "teleopd"
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 30
	}
	if c.Audit.SweepSchedule == "" {
		c.Audit.SweepSchedule = "0 3 * * *"
	}
	if c.Notify.Platform == "" {
		c.Notify.Platform = "none"
	}
}

// validate checks that all required fields are present and consistent.
// A missing robot credential or host is a fatal startup condition, not a
// runtime error.
func (c *Config) validate() error {
	var errs []string
	if c.Robot.BaseHost == "" {
		errs = append(errs, "robot.base_host is required")
	}
	if c.Robot.User == "" {
		errs = append(errs, "robot.user is required")
	}
	if c.Robot.AddrOffset < 0 {
		errs = append(errs, "robot.addr_offset must not be negative")
	}
	switch c.Audit.Driver {
	case "sqlite", "mysql", "off":
	default:
		errs = append(errs, fmt.Sprintf("audit.driver %q is not one of sqlite, mysql, off", c.Audit.Driver))
	}
	switch c.Notify.Platform {
	case "none":
	case "slack":
		if c.Notify.Slack.BotToken == "" {
			errs = append(errs, "notify.slack.bot_token is required when platform is slack")
		}
		if c.Notify.Slack.Channel == "" {
			errs = append(errs, "notify.slack.channel is required when platform is slack")
		}
	case "discord":
		if c.Notify.Discord.BotToken == "" {
			errs = append(errs, "notify.discord.bot_token is required when platform is discord")
		}
		if c.Notify.Discord.ChannelID == "" {
			errs = append(errs, "notify.discord.channel_id is required when platform is discord")
		}
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q is not one of none, slack, discord", c.Notify.Platform))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
