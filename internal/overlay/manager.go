// Package overlay implements the overlay popup: placement of the popup
// rectangle and the lifecycle of the single overlay window and its context.
package overlay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultReadyTimeout bounds how long Show waits for a new window to attach
// its rendering surface before revealing it anyway.
const DefaultReadyTimeout = 500 * time.Millisecond

// Result strings returned to UI callers.
const (
	ResultShown  = "Overlay shown"
	ResultHidden = "Overlay hidden"
)

// Shown describes a completed Show.
type Shown struct {
	ID      string
	Context []byte // raw payload as received
	Rect    Rect
	Monitor *Geometry
}

// Cue is played when an overlay is revealed.
type Cue interface {
	Play() error
}

// Manager owns the overlay window slot and the stored context.
//
// Show and Hide are serialized: a Hide that arrives while a Show is waiting
// for its window takes effect after that Show has revealed the window.
// GetContext never waits on either.
type Manager struct {
	windowing Windowing
	ui        Dispatcher
	logger    *slog.Logger

	mu           sync.RWMutex
	placer       Placer
	readyTimeout time.Duration
	effects      Effects
	cue          Cue
	onShown      func(Shown)
	onHidden     func()

	// opMu serializes Show and Hide. window is only touched on the UI
	// thread while opMu is held.
	opMu   sync.Mutex
	window Window

	context ContextCell
}

// NewManager creates a lifecycle manager.
func NewManager(windowing Windowing, ui Dispatcher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		windowing:    windowing,
		ui:           ui,
		logger:       logger,
		placer:       DefaultPlacer(),
		readyTimeout: DefaultReadyTimeout,
		effects:      NoEffects{},
	}
}

// SetPlacer replaces the placement parameters used by subsequent shows.
func (m *Manager) SetPlacer(p Placer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placer = p
}

// SetReadyTimeout sets how long Show waits for window readiness.
func (m *Manager) SetReadyTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d <= 0 {
		d = DefaultReadyTimeout
	}
	m.readyTimeout = d
}

// SetEffects sets the cosmetic effects applied to new windows.
func (m *Manager) SetEffects(e Effects) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e == nil {
		e = NoEffects{}
	}
	m.effects = e
}

// SetCue sets the cue played on reveal. nil disables it.
func (m *Manager) SetCue(c Cue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cue = c
}

// SetShownCallback sets the callback invoked after an overlay is revealed.
func (m *Manager) SetShownCallback(cb func(Shown)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onShown = cb
}

// SetHiddenCallback sets the callback invoked after Hide.
func (m *Manager) SetHiddenCallback(cb func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHidden = cb
}

// Show replaces any existing overlay with a new one anchored at (x, y).
//
// rawContext is stored only if it parses; otherwise the previously stored
// context is left as it was and the overlay is shown anyway. The raw payload
// is always pushed to the new window. Window creation failure aborts the show.
func (m *Manager) Show(x, y float64, rawContext []byte) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	id := ulid.Make().String()
	logger := m.logger.With("overlay_id", id)
	logger.Debug("showing overlay", "x", x, "y", y)

	if ctx, err := ParseContext(rawContext); err != nil {
		logger.Debug("context not stored", "error", err)
	} else {
		m.context.Set(ctx)
	}

	m.mu.RLock()
	placer := m.placer
	readyTimeout := m.readyTimeout
	effects := m.effects
	cue := m.cue
	onShown := m.onShown
	m.mu.RUnlock()

	_ = runOnUI(m.ui, func() error {
		m.destroyLocked(logger)
		return nil
	})

	var geo *Geometry
	if g, ok := m.windowing.MonitorAt(x, y); ok {
		geo = &g
	} else {
		logger.Warn("no monitor info for anchor, using unbounded position")
	}
	rect := placer.Place(x, y, geo)
	logger.Debug("overlay placed", "x", rect.X, "y", rect.Y, "width", rect.Width, "height", rect.Height)

	var win Window
	err := runOnUI(m.ui, func() error {
		w, err := m.windowing.CreateWindow(OverlayOptions(rect, geo))
		if err != nil {
			return err
		}
		effects.Apply(w)
		m.window = w
		win = w
		return nil
	})
	if err != nil {
		logger.Error("failed to create overlay", "error", err)
		return "", &Error{Message: "Failed to create overlay", Cause: err}
	}

	m.awaitReady(win, readyTimeout, logger)

	_ = runOnUI(m.ui, func() error {
		if err := win.Emit(EventContext, rawContext); err != nil {
			logger.Debug("failed to deliver context", "error", err)
		}
		if err := win.Show(); err != nil {
			logger.Debug("failed to show overlay", "error", err)
		}
		if err := win.Focus(); err != nil {
			logger.Debug("failed to focus overlay", "error", err)
		}
		return nil
	})

	if cue != nil {
		go func() {
			if err := cue.Play(); err != nil {
				logger.Debug("failed to play overlay cue", "error", err)
			}
		}()
	}

	if onShown != nil {
		onShown(Shown{ID: id, Context: rawContext, Rect: rect, Monitor: geo})
	}

	logger.Info("overlay shown", "x", rect.X, "y", rect.Y)
	return ResultShown, nil
}

// awaitReady blocks until win reports readiness or the timeout elapses.
// On the UI thread the signal cannot arrive while we block, so it is only
// polled.
func (m *Manager) awaitReady(win Window, timeout time.Duration, logger *slog.Logger) {
	if m.ui.OnUIThread() {
		select {
		case <-win.Ready():
		default:
			logger.Debug("show called on UI thread, not waiting for readiness")
		}
		return
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-win.Ready():
	case <-timer.C:
		logger.Warn("overlay window not ready in time, revealing anyway", "timeout", timeout)
	}
}

// Hide clears the stored context and closes the overlay window if one exists.
// It never fails.
func (m *Manager) Hide() (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.hideLocked()
	return ResultHidden, nil
}

// HideWindow hides the overlay only while win is still the current window.
// Windows use it to dismiss themselves, so a late Escape or auto-dismiss
// from a replaced overlay cannot hide its successor. It reports whether
// anything was hidden.
func (m *Manager) HideWindow(win Window) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if win == nil || m.window != win {
		m.logger.Debug("ignoring dismiss from a replaced overlay")
		return false
	}
	m.hideLocked()
	return true
}

// hideLocked clears the context, closes the window and fires the hidden
// callback. Must hold opMu.
func (m *Manager) hideLocked() {
	m.context.Clear()

	_ = runOnUI(m.ui, func() error {
		if m.window == nil {
			return nil
		}
		if err := m.window.Close(); err != nil {
			m.logger.Debug("failed to close overlay", "error", err)
		}
		m.window = nil
		return nil
	})

	m.mu.RLock()
	onHidden := m.onHidden
	m.mu.RUnlock()
	if onHidden != nil {
		onHidden()
	}

	m.logger.Debug("overlay hidden")
}

// GetContext returns a copy of the stored context.
func (m *Manager) GetContext() (Context, bool) {
	return m.context.Get()
}

// hasWindow reports whether an overlay window currently exists.
func (m *Manager) hasWindow() bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.window != nil
}

// destroyLocked tears down the current window. Must run on the UI thread
// with opMu held.
func (m *Manager) destroyLocked(logger *slog.Logger) {
	if m.window == nil {
		return
	}
	if err := m.window.Destroy(); err != nil {
		logger.Debug("failed to destroy previous overlay", "error", err)
	}
	m.window = nil
}

// Error is an overlay operation failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}
