package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "5s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for pointerd.
// Loaded from ~/.config/pointer/pointerd.toml
type DaemonConfig struct {
	Backend BackendConfig `toml:"backend"`
	Overlay OverlayConfig `toml:"overlay"`
	Log     LogConfig     `toml:"log"`
}

// BackendConfig controls the agent worker process and its HTTP API.
type BackendConfig struct {
	Binary         string            `toml:"binary"`      // absolute path, or a name looked up next to pointerd then on $PATH
	Args           []string          `toml:"args"`        // extra arguments passed to the worker
	WorkingDir     string            `toml:"working_dir"` // empty = inherit
	Env            map[string]string `toml:"env"`
	Autostart      bool              `toml:"autostart"`
	AutostartDelay Duration          `toml:"autostart_delay"`
	URL            string            `toml:"url"` // base URL of the worker's HTTP API
	RequestTimeout Duration          `toml:"request_timeout"`
	RetryCount     int               `toml:"retry_count"`
	RateLimit      float64           `toml:"rate_limit"` // queries per second, 0 = unlimited
	StopTimeout    Duration          `toml:"stop_timeout"`
}

// OverlayConfig controls overlay size, placement and feedback.
type OverlayConfig struct {
	Width        float64  `toml:"width"`
	Height       float64  `toml:"height"`
	MarginLeft   float64  `toml:"margin_left"`
	MarginRight  float64  `toml:"margin_right"`
	MarginTop    float64  `toml:"margin_top"`    // menu bar / top panel
	MarginBottom float64  `toml:"margin_bottom"` // dock / bottom panel
	ReadyTimeout Duration `toml:"ready_timeout"`
	Theme        string   `toml:"theme"`  // bundled theme name or a file in ~/.config/pointer/themes/
	Sound        string   `toml:"sound"`  // WAV, OGG or MP3 played on reveal, empty = silent
	Volume       int      `toml:"volume"` // 0-100
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Backend: BackendConfig{
			Binary:         "pointer-backend",
			Autostart:      true,
			AutostartDelay: Duration(500 * time.Millisecond),
			URL:            "http://127.0.0.1:8000",
			RequestTimeout: Duration(60 * time.Second),
			RetryCount:     2,
			StopTimeout:    Duration(3 * time.Second),
		},
		Overlay: OverlayConfig{
			Width:        600,
			Height:       80,
			MarginLeft:   20,
			MarginRight:  20,
			MarginTop:    40,
			MarginBottom: 100,
			ReadyTimeout: Duration(500 * time.Millisecond),
			Theme:        "default",
			Volume:       80,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pointerd.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFrom(path)
}

// LoadDaemonConfigFrom loads the daemon configuration from path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig writes the daemon configuration to path atomically.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if c.Overlay.Width < 100 || c.Overlay.Width > 4000 {
		return fmt.Errorf("overlay width must be between 100 and 4000, got %g", c.Overlay.Width)
	}
	if c.Overlay.Height < 20 || c.Overlay.Height > 2000 {
		return fmt.Errorf("overlay height must be between 20 and 2000, got %g", c.Overlay.Height)
	}
	for name, m := range map[string]float64{
		"margin_left":   c.Overlay.MarginLeft,
		"margin_right":  c.Overlay.MarginRight,
		"margin_top":    c.Overlay.MarginTop,
		"margin_bottom": c.Overlay.MarginBottom,
	} {
		if m < 0 {
			return fmt.Errorf("%s must not be negative, got %g", name, m)
		}
	}
	if c.Overlay.ReadyTimeout < 0 {
		return fmt.Errorf("ready_timeout must not be negative")
	}
	if c.Overlay.Volume < 0 || c.Overlay.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Overlay.Volume)
	}

	if c.Backend.Binary == "" {
		return fmt.Errorf("backend binary must not be empty")
	}
	if c.Backend.AutostartDelay < 0 {
		return fmt.Errorf("autostart_delay must not be negative")
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("backend url must be http or https, got %q", c.Backend.URL)
	}
	if c.Backend.RetryCount < 0 || c.Backend.RetryCount > 10 {
		return fmt.Errorf("retry_count must be between 0 and 10, got %d", c.Backend.RetryCount)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// SoundPath returns the overlay sound path with ~ expanded.
func (c *DaemonConfig) SoundPath() string {
	return expandPath(c.Overlay.Sound)
}

// ParseLogLevel converts a level name into a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", s)
	}
	return level, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
