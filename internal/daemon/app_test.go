package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/config"
	"github.com/jmylchreest/pointer/internal/dbus"
	"github.com/jmylchreest/pointer/internal/overlay"
)

type fakeOverlay struct {
	mu      sync.Mutex
	ctx     *overlay.Context
	placer  overlay.Placer
	timeout time.Duration
	showErr error
}

func (f *fakeOverlay) Show(_, _ float64, raw []byte) (string, error) {
	if f.showErr != nil {
		return "", f.showErr
	}
	// Like overlay.Manager: a context that does not parse is not stored
	// and the overlay is shown anyway.
	if oc, err := overlay.ParseContext(raw); err == nil {
		f.mu.Lock()
		f.ctx = &oc
		f.mu.Unlock()
	}
	return "Overlay shown", nil
}

func (f *fakeOverlay) Hide() (string, error) {
	f.mu.Lock()
	f.ctx = nil
	f.mu.Unlock()
	return "Overlay hidden", nil
}

func (f *fakeOverlay) GetContext() (overlay.Context, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx == nil {
		return overlay.Context{}, false
	}
	return *f.ctx, true
}

func (f *fakeOverlay) SetPlacer(p overlay.Placer)       { f.placer = p }
func (f *fakeOverlay) SetReadyTimeout(d time.Duration) { f.timeout = d }

type fakeBackend struct {
	status   backend.Status
	startErr error
	starts   int
	stops    int
	opts     backend.Options
}

func (f *fakeBackend) Start() (string, error) {
	f.starts++
	if f.startErr != nil {
		return "", f.startErr
	}
	f.status.Running = true
	return backend.ResultStarted, nil
}

func (f *fakeBackend) Stop(context.Context) error {
	f.stops++
	f.status.Running = false
	return nil
}

func (f *fakeBackend) Status() backend.Status          { return f.status }
func (f *fakeBackend) SetOptions(opts backend.Options) { f.opts = opts }

type fakeClient struct {
	lastQuery backend.Query
	health    *backend.Health
	healthErr error
	healthHit int
}

func (f *fakeClient) Query(_ context.Context, q backend.Query) (*backend.AgentResponse, error) {
	f.lastQuery = q
	return &backend.AgentResponse{Response: "ok:" + q.Text}, nil
}

func (f *fakeClient) Health(context.Context) (*backend.Health, error) {
	f.healthHit++
	return f.health, f.healthErr
}

type fakeSettings struct {
	blob    json.RawMessage
	loadErr error
	saveErr error
}

func (f *fakeSettings) Load() (json.RawMessage, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.blob, nil
}

func (f *fakeSettings) Save(blob []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.blob = json.RawMessage(blob)
	return nil
}

type fakeWindow struct {
	presented int
	err       error
}

func (f *fakeWindow) Present() error {
	f.presented++
	return f.err
}

type fakeCue struct {
	path   string
	volume int
}

func (f *fakeCue) Configure(path string, volume int) {
	f.path = path
	f.volume = volume
}

type appFixture struct {
	app      *App
	overlay  *fakeOverlay
	backend  *fakeBackend
	client   *fakeClient
	settings *fakeSettings
	cue      *fakeCue
	sent     []dbus.Notification
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()
	f := &appFixture{
		overlay:  &fakeOverlay{},
		backend:  &fakeBackend{},
		client:   &fakeClient{health: &backend.Health{Status: "healthy"}},
		settings: &fakeSettings{blob: json.RawMessage(`{"tone":"brief"}`)},
		cue:      &fakeCue{},
	}
	notifier := NewInternalNotifier(slog.New(slog.DiscardHandler))
	notifier.SetNotifyHandler(func(n dbus.Notification) error {
		f.sent = append(f.sent, n)
		return nil
	})
	f.app = NewApp(Components{
		Overlay:  f.overlay,
		Backend:  f.backend,
		Client:   f.client,
		Settings: f.settings,
		Cue:      f.cue,
		Notifier: notifier,
	}, slog.New(slog.DiscardHandler))
	return f
}

func TestApp_ShowSettings(t *testing.T) {
	f := newAppFixture(t)

	_, err := f.app.ShowSettings()
	assert.ErrorIs(t, err, ErrNoSettingsWindow)
	assert.Equal(t, "Settings window not found", err.Error())

	w := &fakeWindow{}
	f.app.SetSettingsWindow(w)
	res, err := f.app.ShowSettings()
	require.NoError(t, err)
	assert.Equal(t, ResultSettingsShown, res)
	assert.Equal(t, 1, w.presented)

	w.err = errors.New("display gone")
	_, err = f.app.ShowSettings()
	assert.ErrorContains(t, err, "display gone")
}

func TestApp_OverlayPassThrough(t *testing.T) {
	f := newAppFixture(t)

	res, err := f.app.ShowOverlay(10, 20, `{"selected_text":"abc","has_screenshot":false}`)
	require.NoError(t, err)
	assert.Equal(t, "Overlay shown", res)

	oc, ok := f.app.GetOverlayContext()
	require.True(t, ok)
	assert.Equal(t, "abc", oc.SelectedText)

	// A context missing has_screenshot is rejected and the prior one kept.
	res, err = f.app.ShowOverlay(10, 20, `{"selected_text":"other"}`)
	require.NoError(t, err)
	assert.Equal(t, "Overlay shown", res)
	oc, ok = f.app.GetOverlayContext()
	require.True(t, ok)
	assert.Equal(t, "abc", oc.SelectedText)

	_, err = f.app.HideOverlay()
	require.NoError(t, err)
	_, ok = f.app.GetOverlayContext()
	assert.False(t, ok)
}

func TestApp_StartBackendNotifiesOnFailure(t *testing.T) {
	f := newAppFixture(t)

	res, err := f.app.StartBackend()
	require.NoError(t, err)
	assert.Equal(t, backend.ResultStarted, res)
	assert.Empty(t, f.sent)

	f.backend.status.Running = false
	f.backend.startErr = &backend.Error{Kind: backend.KindSpawn, Err: errors.New("permission denied")}
	_, err = f.app.StartBackend()
	require.Error(t, err)
	assert.Equal(t, "Failed to spawn backend: permission denied", err.Error())
	require.Len(t, f.sent, 1)
	assert.Equal(t, "Backend Error", f.sent[0].Summary)
	assert.Equal(t, dbus.UrgencyCritical, f.sent[0].Urgency)
}

func TestApp_BackendStatus(t *testing.T) {
	f := newAppFixture(t)

	st := f.app.BackendStatus(context.Background())
	assert.False(t, st.Running)
	assert.False(t, st.Healthy)
	assert.Zero(t, f.client.healthHit, "health must not be queried while stopped")

	f.backend.status = backend.Status{Running: true, PID: 7}
	st = f.app.BackendStatus(context.Background())
	assert.True(t, st.Running)
	assert.True(t, st.Healthy)
	assert.Equal(t, 7, st.PID)

	f.client.health = &backend.Health{Status: "starting"}
	st = f.app.BackendStatus(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, "backend reports status starting", st.HealthError)

	f.client.health = nil
	f.client.healthErr = errors.New("connection refused")
	st = f.app.BackendStatus(context.Background())
	assert.False(t, st.Healthy)
	assert.Equal(t, "connection refused", st.HealthError)
}

func TestApp_Settings(t *testing.T) {
	f := newAppFixture(t)

	blob, err := f.app.LoadSettings()
	require.NoError(t, err)
	assert.JSONEq(t, `{"tone":"brief"}`, string(blob))

	res, err := f.app.SaveSettings(`{"tone":"long"}`)
	require.NoError(t, err)
	assert.Equal(t, ResultSettingsSaved, res)
	assert.JSONEq(t, `{"tone":"long"}`, string(f.settings.blob))

	f.settings.saveErr = errors.New("disk full")
	_, err = f.app.SaveSettings(`{}`)
	assert.EqualError(t, err, "disk full")
}

func TestApp_ProcessQuery(t *testing.T) {
	f := newAppFixture(t)

	t.Run("stored settings and context", func(t *testing.T) {
		_, err := f.app.ShowOverlay(0, 0, `{"selected_text":"the selection","has_screenshot":true}`)
		require.NoError(t, err)

		resp, err := f.app.ProcessQuery(context.Background(), "summarise", "explain", "")
		require.NoError(t, err)
		assert.Equal(t, "ok:summarise", resp.Response)
		assert.Equal(t, "summarise", f.client.lastQuery.Text)
		assert.Equal(t, "explain", f.client.lastQuery.Mode)
		assert.Equal(t, "the selection", f.client.lastQuery.SelectedText)
		assert.JSONEq(t, `{"tone":"brief"}`, string(f.client.lastQuery.Settings))
	})

	t.Run("explicit settings win", func(t *testing.T) {
		_, err := f.app.ProcessQuery(context.Background(), "q", "", `{"tone":"terse"}`)
		require.NoError(t, err)
		assert.JSONEq(t, `{"tone":"terse"}`, string(f.client.lastQuery.Settings))
	})

	t.Run("no context after hide", func(t *testing.T) {
		_, err := f.app.HideOverlay()
		require.NoError(t, err)
		_, err = f.app.ProcessQuery(context.Background(), "q", "", "")
		require.NoError(t, err)
		assert.Empty(t, f.client.lastQuery.SelectedText)
	})

	t.Run("settings load failure is tolerated", func(t *testing.T) {
		f.settings.loadErr = errors.New("corrupt")
		_, err := f.app.ProcessQuery(context.Background(), "q", "", "")
		require.NoError(t, err)
		assert.Nil(t, f.client.lastQuery.Settings)
		f.settings.loadErr = nil
	})

	t.Run("no client", func(t *testing.T) {
		app := NewApp(Components{Overlay: f.overlay, Backend: f.backend, Settings: f.settings}, nil)
		_, err := app.ProcessQuery(context.Background(), "q", "", "")
		assert.Error(t, err)
	})
}

func TestApp_QuitRunsOnce(t *testing.T) {
	f := newAppFixture(t)
	quits := 0
	f.app.SetQuitFunc(func() { quits++ })

	f.app.Quit(context.Background())
	f.app.Quit(context.Background())

	assert.Equal(t, 1, quits)
	assert.Equal(t, 1, f.backend.stops)
}

func TestApp_ApplyConfig(t *testing.T) {
	f := newAppFixture(t)
	cfg := config.DefaultDaemonConfig()
	cfg.Overlay.Width = 720
	cfg.Overlay.MarginBottom = 64
	cfg.Overlay.ReadyTimeout = config.Duration(750 * time.Millisecond)
	cfg.Overlay.Sound = "/usr/share/sounds/pop.ogg"
	cfg.Overlay.Volume = 35
	cfg.Backend.Binary = "/opt/pointer/worker"
	cfg.Backend.Args = []string{"--port", "8000"}
	cfg.Backend.StopTimeout = config.Duration(5 * time.Second)

	f.app.ApplyConfig(cfg)

	assert.Equal(t, 720.0, f.overlay.placer.Width)
	assert.Equal(t, 80.0, f.overlay.placer.Height)
	assert.Equal(t, 64.0, f.overlay.placer.Margins.Bottom)
	assert.Equal(t, 750*time.Millisecond, f.overlay.timeout)
	assert.Equal(t, "/opt/pointer/worker", f.backend.opts.Binary)
	assert.Equal(t, []string{"--port", "8000"}, f.backend.opts.Args)
	assert.Equal(t, 5*time.Second, f.backend.opts.StopTimeout)
	assert.Equal(t, "/usr/share/sounds/pop.ogg", f.cue.path)
	assert.Equal(t, 35, f.cue.volume)
}

func TestClientOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultDaemonConfig()
	cfg.Backend.RateLimit = 2.5

	opts := ClientOptionsFromConfig(cfg)
	assert.Equal(t, "http://127.0.0.1:8000", opts.BaseURL)
	assert.Equal(t, 60*time.Second, opts.Timeout)
	assert.Equal(t, 2, opts.RetryCount)
	assert.Equal(t, 2.5, opts.RateLimit)
}
