// Package bot ties the framework together: configuration, the stream run
// loop, and the outbound actions handlers use to reply, favorite, repost,
// and attach media.
package bot

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfiguration marks a fatal configuration problem. The process reports
// it and exits before entering the stream loop.
var ErrConfiguration = errors.New("configuration error")

// Config is the bot configuration, loaded from YAML.
type Config struct {
	// Identity is the bot's username on the platform. Falls back to the
	// client's authenticated identity when empty.
	Identity string `yaml:"identity"`

	Credentials CredentialsConfig `yaml:"credentials"`
	Media       MediaConfig       `yaml:"media"`
	Logging     LoggingConfig     `yaml:"logging"`
	Pacing      PacingConfig      `yaml:"pacing"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// CredentialsConfig holds the platform credentials. Values left empty in
// the YAML are resolved from environment variables and the OS keyring.
type CredentialsConfig struct {
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	AccessToken  string `yaml:"access_token"`
	AccessSecret string `yaml:"access_secret"`
}

// MediaConfig configures the media pipeline.
type MediaConfig struct {
	// ScratchDir is the preferred scratch directory name.
	ScratchDir string `yaml:"scratch_dir"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// PacingConfig bounds the artificial delay applied between outbound actions.
// Values are duration strings ("2s", "1m30s").
type PacingConfig struct {
	MinDelay string `yaml:"min_delay"`
	MaxDelay string `yaml:"max_delay"`
}

// DelayBounds parses the pacing bounds, falling back to zero on absent or
// malformed values.
func (p PacingConfig) DelayBounds() (min, max time.Duration) {
	min, _ = time.ParseDuration(p.MinDelay)
	max, _ = time.ParseDuration(p.MaxDelay)
	if max < min {
		max = min
	}
	return min, max
}

// SchedulerConfig configures the periodic-post scheduler.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Media: MediaConfig{
			ScratchDir: "streambot-media",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Pacing: PacingConfig{
			MinDelay: "1s",
			MaxDelay: "5s",
		},
		Scheduler: SchedulerConfig{
			DBPath: "streambot.db",
		},
	}
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	if c.Credentials.APIKey == "" || c.Credentials.AccessToken == "" {
		return fmt.Errorf("%w: missing platform credentials (api_key, access_token)", ErrConfiguration)
	}
	return nil
}
