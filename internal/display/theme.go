package display

import (
	"context"
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/pointer/internal/theme"
)

// ThemeLoader owns the CSS provider shared by every pointer window.
// LoadTheme and Apply must be called on the GTK main thread.
type ThemeLoader struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	provider  *gtk.CSSProvider
	themesDir string
	current   *theme.Theme
	watcher   *theme.Watcher
}

// NewThemeLoader creates a new theme loader.
func NewThemeLoader(logger *slog.Logger) *ThemeLoader {
	if logger == nil {
		logger = slog.Default()
	}

	themesDir, err := theme.ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
		themesDir = ""
	}

	return &ThemeLoader{
		logger:    logger.With("component", "theme"),
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
	}
}

// LoadTheme loads a theme by name into the provider.
func (l *ThemeLoader) LoadTheme(name string) {
	t := theme.Resolve(name, l.themesDir, l.logger)

	l.mu.Lock()
	l.current = t
	l.mu.Unlock()

	l.provider.LoadFromString(t.CSS)
	l.logger.Info("loaded theme", "name", t.Name, "path", t.Path, "bundled", t.IsBundled)
}

// CurrentTheme returns the name of the loaded theme.
func (l *ThemeLoader) CurrentTheme() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return ""
	}
	return l.current.Name
}

// Apply attaches the provider to display, or the default display when nil.
func (l *ThemeLoader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.logger.Debug("applied theme to display", "name", l.CurrentTheme())
}

// StartHotReload watches the loaded user theme and pushes changes to the
// provider on the GTK main loop. Bundled themes are not watched.
func (l *ThemeLoader) StartHotReload(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
	if l.current == nil || l.current.IsBundled {
		l.logger.Debug("not starting hot-reload for bundled theme")
		return
	}

	w := theme.NewWatcher(l.current, l.logger)
	w.SetChangeCallback(func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
			l.logger.Info("hot-reloaded theme")
		})
	})
	if err := w.Start(ctx); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}
	l.watcher = w
}

// StopHotReload stops watching the theme for changes.
func (l *ThemeLoader) StopHotReload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		l.watcher.Stop()
		l.watcher = nil
	}
}
