// Package config loads linctl settings from ~/.linctl/config.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint = "https://api.linear.app/graphql"

	EnvAPIKey   = "LINEAR_API_KEY"
	EnvEndpoint = "LINCTL_ENDPOINT"
)

// Config holds linctl configuration.
type Config struct {
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Watch    WatchConfig   `yaml:"watch"`
	Display  DisplayConfig `yaml:"display"`

	// Path is the file the config was read from, empty when none existed.
	Path string `yaml:"-"`
}

// WatchConfig holds defaults for the watch commands.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DisplayConfig controls table rendering.
type DisplayConfig struct {
	MaxWidth int `yaml:"max_width"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Timeout:  30 * time.Second,
		Watch:    WatchConfig{Interval: 10 * time.Second},
		Display:  DisplayConfig{MaxWidth: 40},
	}
}

// Dir returns the linctl config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".linctl"), nil
}

// DefaultPath returns ~/.linctl/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path merged over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Watch.Interval <= 0 {
		c.Watch.Interval = 10 * time.Second
	}
	if c.Display.MaxWidth <= 0 {
		c.Display.MaxWidth = 40
	}
}

// WriteDefault writes the commented default config to path unless a file
// already exists there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

const defaultConfig = `# linctl configuration

# Personal API key from Linear settings (or set LINEAR_API_KEY)
api_key: ""

# GraphQL endpoint (or set LINCTL_ENDPOINT)
endpoint: https://api.linear.app/graphql

# Per-request HTTP timeout
timeout: 30s

watch:
  # Default polling interval for 'linctl watch'
  interval: 10s

display:
  # Column width for table output
  max_width: 40
`
