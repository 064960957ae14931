package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/config"
	"github.com/jmylchreest/pointer/internal/overlay"
)

// Result strings returned to UI callers.
const (
	ResultSettingsShown = "Settings shown"
	ResultSettingsSaved = "Settings saved"
)

// ErrNoSettingsWindow is returned when the main window does not exist.
var ErrNoSettingsWindow = errors.New("Settings window not found")

// Overlay is the overlay lifecycle manager.
type Overlay interface {
	Show(x, y float64, rawContext []byte) (string, error)
	Hide() (string, error)
	GetContext() (overlay.Context, bool)
	SetPlacer(p overlay.Placer)
	SetReadyTimeout(d time.Duration)
}

// Backend is the worker process supervisor.
type Backend interface {
	Start() (string, error)
	Stop(ctx context.Context) error
	Status() backend.Status
	SetOptions(opts backend.Options)
}

// QueryClient sends queries to the running worker.
type QueryClient interface {
	Query(ctx context.Context, q backend.Query) (*backend.AgentResponse, error)
	Health(ctx context.Context) (*backend.Health, error)
}

// SettingsStore persists the opaque settings blob.
type SettingsStore interface {
	Load() (json.RawMessage, error)
	Save(blob []byte) error
}

// SettingsWindow is the main window. Present must be safe to call from any
// goroutine.
type SettingsWindow interface {
	Present() error
}

// CueConfigurer receives sound changes on config reload.
type CueConfigurer interface {
	Configure(path string, volume int)
}

// Components are the parts the App coordinates. Overlay, Backend and
// Settings are required.
type Components struct {
	Overlay  Overlay
	Backend  Backend
	Client   QueryClient
	Settings SettingsStore
	Cue      CueConfigurer
	Notifier *InternalNotifier
}

// App is the application handle behind every UI-facing operation.
// All methods are safe for concurrent use.
type App struct {
	c      Components
	logger *slog.Logger

	mu       sync.RWMutex
	window   SettingsWindow
	quitFunc func()
	quitOnce sync.Once
}

// NewApp creates the application handle.
func NewApp(c Components, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{c: c, logger: logger}
}

// SetSettingsWindow registers the main window once it has been built.
func (a *App) SetSettingsWindow(w SettingsWindow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = w
}

// SetQuitFunc sets the function that stops the application main loop.
func (a *App) SetQuitFunc(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quitFunc = fn
}

// ShowSettings reveals and focuses the main window.
func (a *App) ShowSettings() (string, error) {
	a.mu.RLock()
	w := a.window
	a.mu.RUnlock()

	if w == nil {
		return "", ErrNoSettingsWindow
	}
	if err := w.Present(); err != nil {
		return "", fmt.Errorf("failed to show settings: %w", err)
	}
	return ResultSettingsShown, nil
}

// ShowOverlay shows the overlay anchored at (x, y) with a raw JSON context.
func (a *App) ShowOverlay(x, y float64, rawContext string) (string, error) {
	return a.c.Overlay.Show(x, y, []byte(rawContext))
}

// HideOverlay hides the overlay and clears its context.
func (a *App) HideOverlay() (string, error) {
	return a.c.Overlay.Hide()
}

// GetOverlayContext returns the stored overlay context, if any.
func (a *App) GetOverlayContext() (overlay.Context, bool) {
	return a.c.Overlay.GetContext()
}

// StartBackend starts the worker if it is not running.
func (a *App) StartBackend() (string, error) {
	res, err := a.c.Backend.Start()
	if err != nil && a.c.Notifier != nil {
		a.c.Notifier.NotifyBackendError(err)
	}
	return res, err
}

// BackendStatus reports the worker state. The health endpoint is only
// queried while the worker is running.
func (a *App) BackendStatus(ctx context.Context) backend.Report {
	st := backend.Report{Status: a.c.Backend.Status()}
	if !st.Running || a.c.Client == nil {
		return st
	}

	h, err := a.c.Client.Health(ctx)
	if err != nil {
		st.HealthError = err.Error()
		return st
	}
	st.Healthy = h.Status == "healthy"
	if !st.Healthy {
		st.HealthError = "backend reports status " + h.Status
	}
	return st
}

// LoadSettings returns the settings blob, {} if none has been saved.
func (a *App) LoadSettings() (json.RawMessage, error) {
	return a.c.Settings.Load()
}

// SaveSettings replaces the settings blob.
func (a *App) SaveSettings(blob string) (string, error) {
	if err := a.c.Settings.Save([]byte(blob)); err != nil {
		return "", err
	}
	return ResultSettingsSaved, nil
}

// ProcessQuery forwards a query from the overlay to the worker, attaching the
// stored overlay context. An empty settings string means the saved settings.
func (a *App) ProcessQuery(ctx context.Context, query, mode, settings string) (*backend.AgentResponse, error) {
	if a.c.Client == nil {
		return nil, errors.New("backend client not configured")
	}

	q := backend.Query{Text: query, Mode: mode}
	if strings.TrimSpace(settings) != "" {
		q.Settings = json.RawMessage(settings)
	} else if blob, err := a.c.Settings.Load(); err == nil {
		q.Settings = blob
	} else {
		a.logger.Warn("failed to load settings for query", "error", err)
	}
	if oc, ok := a.c.Overlay.GetContext(); ok {
		q.SelectedText = oc.SelectedText
	}

	return a.c.Client.Query(ctx, q)
}

// Quit stops the worker and then the application main loop. Only the first
// call has any effect.
func (a *App) Quit(ctx context.Context) {
	a.quitOnce.Do(func() {
		a.logger.Info("quitting")
		if err := a.c.Backend.Stop(ctx); err != nil {
			a.logger.Warn("failed to stop backend", "error", err)
		}

		a.mu.RLock()
		quit := a.quitFunc
		a.mu.RUnlock()
		if quit != nil {
			quit()
		}
	})
}

// ApplyConfig pushes reloadable settings to the components. A running worker
// keeps its old options until it is restarted.
func (a *App) ApplyConfig(cfg *config.DaemonConfig) {
	a.c.Overlay.SetPlacer(PlacerFromConfig(cfg))
	a.c.Overlay.SetReadyTimeout(cfg.Overlay.ReadyTimeout.Duration())
	a.c.Backend.SetOptions(BackendOptionsFromConfig(cfg))
	if a.c.Cue != nil {
		a.c.Cue.Configure(cfg.SoundPath(), cfg.Overlay.Volume)
	}
	a.logger.Debug("configuration applied")
}

// PlacerFromConfig builds the overlay placer from the [overlay] section.
func PlacerFromConfig(cfg *config.DaemonConfig) overlay.Placer {
	return overlay.Placer{
		Width:  cfg.Overlay.Width,
		Height: cfg.Overlay.Height,
		Margins: overlay.Margins{
			Left:   cfg.Overlay.MarginLeft,
			Right:  cfg.Overlay.MarginRight,
			Top:    cfg.Overlay.MarginTop,
			Bottom: cfg.Overlay.MarginBottom,
		},
	}
}

// BackendOptionsFromConfig builds supervisor options from the [backend] section.
func BackendOptionsFromConfig(cfg *config.DaemonConfig) backend.Options {
	return backend.Options{
		Binary:      cfg.Backend.Binary,
		Args:        cfg.Backend.Args,
		WorkingDir:  cfg.Backend.WorkingDir,
		Env:         cfg.Backend.Env,
		StopTimeout: cfg.Backend.StopTimeout.Duration(),
	}
}

// ClientOptionsFromConfig builds query client options from the [backend] section.
func ClientOptionsFromConfig(cfg *config.DaemonConfig) backend.ClientOptions {
	return backend.ClientOptions{
		BaseURL:    cfg.Backend.URL,
		Timeout:    cfg.Backend.RequestTimeout.Duration(),
		RetryCount: cfg.Backend.RetryCount,
		RateLimit:  cfg.Backend.RateLimit,
	}
}
