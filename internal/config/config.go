// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values for the pointer CLI.
const (
	DefaultOutputFormat = "text"
	DefaultCallTimeout  = 90 * time.Second
)

// Output formats understood by the CLI.
var OutputFormats = []string{"text", "json", "yaml"}

// Config represents the pointer CLI configuration.
type Config struct {
	Output OutputConfig `toml:"output"`
	Bus    BusConfig    `toml:"bus"`
}

// OutputConfig holds default output options.
type OutputConfig struct {
	Format string `toml:"format"` // text, json, yaml
}

// BusConfig holds session bus options.
type BusConfig struct {
	Timeout Duration `toml:"timeout"` // per-call timeout; queries can be slow
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Bus: BusConfig{
			Timeout: Duration(DefaultCallTimeout),
		},
	}
}

// Dir returns the pointer configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pointer"), nil
}

// ConfigPath returns the path to the CLI config file.
func ConfigPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// SettingsPath returns the path to the user settings blob.
func SettingsPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "settings.json")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format %q, must be one of: %v", c.Output.Format, OutputFormats)
	}
	if c.Bus.Timeout <= 0 {
		return fmt.Errorf("bus timeout must be positive")
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
