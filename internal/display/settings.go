package display

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"log/slog"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/pointer/internal/backend"
)

const statusTimeout = 5 * time.Second

// SettingsBackend is what the settings window edits and reports on.
type SettingsBackend interface {
	LoadSettings() (json.RawMessage, error)
	SaveSettings(blob string) (string, error)
	BackendStatus(ctx context.Context) backend.Report
	StartBackend() (string, error)
}

// SettingsWindow is the main pointerd window: a JSON editor for the
// settings blob and the worker status. Closing it only hides it.
type SettingsWindow struct {
	window  *adw.ApplicationWindow
	toasts  *adw.ToastOverlay
	editor  *gtk.TextView
	status  *gtk.Label
	backend SettingsBackend
	logger  *slog.Logger
}

// NewSettingsWindow builds the hidden main window. Must be called on the
// main loop.
func NewSettingsWindow(app *gtk.Application, b SettingsBackend, logger *slog.Logger) *SettingsWindow {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SettingsWindow{
		backend: b,
		logger:  logger.With("component", "settings"),
	}

	s.window = adw.NewApplicationWindow(app)
	s.window.SetTitle("Pointer Settings")
	s.window.SetDefaultSize(640, 480)
	s.window.SetHideOnClose(true)

	header := adw.NewHeaderBar()
	header.SetTitleWidget(adw.NewWindowTitle("Pointer", "Settings"))

	startBtn := gtk.NewButtonWithLabel("Start Backend")
	startBtn.ConnectClicked(s.startBackend)
	header.PackStart(startBtn)

	saveBtn := gtk.NewButtonWithLabel("Save")
	saveBtn.AddCSSClass("suggested-action")
	saveBtn.ConnectClicked(s.save)
	header.PackEnd(saveBtn)

	s.editor = gtk.NewTextView()
	s.editor.AddCSSClass("pointer-settings-editor")
	s.editor.SetMonospace(true)

	scroller := gtk.NewScrolledWindow()
	scroller.SetChild(s.editor)
	scroller.SetVExpand(true)

	s.status = gtk.NewLabel("")
	s.status.AddCSSClass("pointer-settings-status")
	s.status.SetXAlign(0)
	s.status.SetMarginStart(12)
	s.status.SetMarginEnd(12)
	s.status.SetMarginTop(6)
	s.status.SetMarginBottom(6)

	box := gtk.NewBox(gtk.OrientationVertical, 0)
	box.Append(header)
	box.Append(scroller)
	box.Append(s.status)

	s.toasts = adw.NewToastOverlay()
	s.toasts.SetChild(box)
	s.window.SetContent(s.toasts)

	return s
}

// Present reloads the settings and status and raises the window. Safe to
// call from any goroutine.
func (s *SettingsWindow) Present() error {
	onMain(func() struct{} {
		s.reload()
		s.window.Present()
		return struct{}{}
	})
	return nil
}

// reload fills the editor from disk and refreshes the status line.
// Must run on the main loop.
func (s *SettingsWindow) reload() {
	blob, err := s.backend.LoadSettings()
	if err != nil {
		s.logger.Warn("failed to load settings", "error", err)
		s.toast("Failed to load settings: " + err.Error())
		blob = json.RawMessage("{}")
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, blob, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(blob)
	}
	s.editor.Buffer().SetText(pretty.String())

	s.refreshStatus()
}

func (s *SettingsWindow) save() {
	buf := s.editor.Buffer()
	start, end := buf.Bounds()
	text := buf.Text(start, end, false)

	res, err := s.backend.SaveSettings(text)
	if err != nil {
		s.logger.Warn("failed to save settings", "error", err)
		s.toast(err.Error())
		return
	}
	s.toast(res)
}

func (s *SettingsWindow) startBackend() {
	go func() {
		res, err := s.backend.StartBackend()
		glib.IdleAdd(func() {
			if err != nil {
				s.toast(err.Error())
			} else {
				s.toast(res)
			}
			s.refreshStatus()
		})
	}()
}

// refreshStatus queries the worker off the main loop and updates the label.
func (s *SettingsWindow) refreshStatus() {
	s.status.SetText("Checking backend…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		report := s.backend.BackendStatus(ctx)
		glib.IdleAdd(func() {
			s.status.SetText(report.Summary(time.Now()))
		})
	}()
}

// toast shows msg briefly. Toast titles are Pango markup.
func (s *SettingsWindow) toast(msg string) {
	s.toasts.AddToast(adw.NewToast(html.EscapeString(msg)))
}
