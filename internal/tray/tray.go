// Package tray shows the pointerd status icon with its Settings and Quit menu.
package tray

import (
	"log/slog"
	"sync"

	"fyne.io/systray"
)

// Options are the menu callbacks. They are called on their own goroutine.
type Options struct {
	OnSettings func()
	OnQuit     func()
}

// Tray is the StatusNotifierItem icon. It runs alongside the GTK main loop.
type Tray struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	end     func()
	done    chan struct{}
	started bool
}

// New creates a tray. Nothing is shown until Start.
func New(opts Options, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{
		opts:   opts,
		logger: logger.With("component", "tray"),
	}
}

// Start registers the icon with the session's tray host.
func (t *Tray) Start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.done = make(chan struct{})

	start, end := systray.RunWithExternalLoop(t.onReady, func() {
		t.logger.Debug("tray exited")
	})
	t.end = end
	t.mu.Unlock()

	start()
}

// Stop removes the icon. It is safe to call more than once.
func (t *Tray) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.started = false
	close(t.done)
	t.end()
}

func (t *Tray) onReady() {
	systray.SetIcon(Icon())
	systray.SetTitle("Pointer")
	systray.SetTooltip("Pointer")

	settings := systray.AddMenuItem("Settings", "Open the settings window")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Stop the backend and quit pointer")

	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	go t.run(settings.ClickedCh, quit.ClickedCh, done)
	t.logger.Debug("tray ready")
}

// run dispatches menu clicks until done is closed.
func (t *Tray) run(settings, quit <-chan struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-settings:
			t.logger.Debug("tray: settings clicked")
			if t.opts.OnSettings != nil {
				go t.opts.OnSettings()
			}
		case <-quit:
			t.logger.Debug("tray: quit clicked")
			if t.opts.OnQuit != nil {
				go t.opts.OnQuit()
			}
		}
	}
}
