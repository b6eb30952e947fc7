package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all parterm configuration.
type Config struct {
	LogConfig
	PipeConfig
	ShellConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	File        string `envconfig:"LOG_FILE"`
}

// PipeConfig holds command channel configuration.
type PipeConfig struct {
	Dir         string        `envconfig:"PIPE_DIR"`
	IdleBackoff time.Duration `envconfig:"IDLE_BACKOFF" default:"1ms"`
}

// ShellConfig holds shell selection configuration.
type ShellConfig struct {
	Path string `envconfig:"SHELL_PATH"`
}

// Load loads configuration from PARTERM_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("parterm", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		LogConfig: LogConfig{
			Level: "info",
		},
		PipeConfig: PipeConfig{
			IdleBackoff: time.Millisecond,
		},
	}
}

// PipeDir returns the directory holding session pipes, falling back to the
// system temp directory.
func (c *Config) PipeDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return os.TempDir()
}

// LogFile returns the log destination. Logs never go to stdout by default
// because the server owns the terminal in raw mode.
func (c *Config) LogFile() string {
	if c.File != "" {
		return c.File
	}
	return filepath.Join(os.TempDir(), "parterm.log")
}
