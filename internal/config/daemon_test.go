package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "500ms", want: 500 * time.Millisecond},
		{in: "5s", want: 5 * time.Second},
		{in: "1m30s", want: 90 * time.Second},
		{in: "250", want: 250 * time.Millisecond},
		{in: "0", want: 0},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDefaultDaemonConfig(t *testing.T) {
	cfg := DefaultDaemonConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pointer-backend", cfg.Backend.Binary)
	assert.True(t, cfg.Backend.Autostart)
	assert.Equal(t, 500*time.Millisecond, cfg.Backend.AutostartDelay.Duration())
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.URL)
	assert.Equal(t, 600.0, cfg.Overlay.Width)
	assert.Equal(t, 80.0, cfg.Overlay.Height)
	assert.Equal(t, 20.0, cfg.Overlay.MarginLeft)
	assert.Equal(t, 20.0, cfg.Overlay.MarginRight)
	assert.Equal(t, 40.0, cfg.Overlay.MarginTop)
	assert.Equal(t, 100.0, cfg.Overlay.MarginBottom)
	assert.Equal(t, 500*time.Millisecond, cfg.Overlay.ReadyTimeout.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadDaemonConfigFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pointerd.toml")
	content := `
[backend]
binary = "/opt/pointer/worker"
args = ["--port", "9000"]
autostart = false
autostart_delay = "1s"
url = "http://localhost:9000"

[backend.env]
POINTER_MODEL = "small"

[overlay]
width = 800.0
margin_bottom = 60.0
ready_timeout = "250"
sound = "~/sounds/pop.wav"

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadDaemonConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/pointer/worker", cfg.Backend.Binary)
	assert.Equal(t, []string{"--port", "9000"}, cfg.Backend.Args)
	assert.False(t, cfg.Backend.Autostart)
	assert.Equal(t, time.Second, cfg.Backend.AutostartDelay.Duration())
	assert.Equal(t, "small", cfg.Backend.Env["POINTER_MODEL"])
	assert.Equal(t, 800.0, cfg.Overlay.Width)
	assert.Equal(t, 80.0, cfg.Overlay.Height, "unset fields keep defaults")
	assert.Equal(t, 60.0, cfg.Overlay.MarginBottom)
	assert.Equal(t, 250*time.Millisecond, cfg.Overlay.ReadyTimeout.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "sounds", "pop.wav"), cfg.SoundPath())
}

func TestLoadDaemonConfigFrom_Missing(t *testing.T) {
	cfg, err := LoadDaemonConfigFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDaemonConfig(), cfg)
}

func TestLoadDaemonConfigFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[overlay\nwidth = 1"},
		{"width too small", "[overlay]\nwidth = 10.0"},
		{"negative margin", "[overlay]\nmargin_top = -5.0"},
		{"volume", "[overlay]\nvolume = 150"},
		{"empty binary", "[backend]\nbinary = \"\""},
		{"bad url", "[backend]\nurl = \"localhost:8000\""},
		{"bad level", "[log]\nlevel = \"chatty\""},
		{"bad duration", "[overlay]\nready_timeout = \"soon\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pointerd.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := LoadDaemonConfigFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveDaemonConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pointerd.toml")

	cfg := DefaultDaemonConfig()
	cfg.Overlay.Width = 720
	cfg.Backend.AutostartDelay = Duration(2 * time.Second)

	require.NoError(t, SaveDaemonConfig(path, cfg))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	loaded, err := LoadDaemonConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 720.0, loaded.Overlay.Width)
	assert.Equal(t, 2*time.Second, loaded.Backend.AutostartDelay.Duration())
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLogLevel("")
	assert.Error(t, err)
}
