package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/overlay"
)

// DefaultDismissDelay is how long the overlay shows a finished answer before
// it hides itself.
const DefaultDismissDelay = 2 * time.Second

// DoneMessage is shown when the worker answers with an empty response.
const DoneMessage = "Your request has been processed."

// QueryFunc submits a query typed into the overlay and returns the text to
// show. It is called off the main loop.
type QueryFunc func(ctx context.Context, query, mode string) (string, error)

// DismissFunc asks for win to be hidden. It is called off the main loop.
type DismissFunc func(win overlay.Window)

// Windowing creates overlay windows on the GTK main loop.
type Windowing struct {
	app        *gtk.Application
	logger     *slog.Logger
	layerShell bool

	mu           sync.RWMutex
	onQuery      QueryFunc
	onDismiss    DismissFunc
	dismissDelay time.Duration
	queryTimeout time.Duration
}

var _ overlay.Windowing = (*Windowing)(nil)

// NewWindowing creates a Windowing bound to app.
func NewWindowing(app *gtk.Application, logger *slog.Logger) *Windowing {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Windowing{
		app:          app,
		logger:       logger.With("component", "display"),
		layerShell:   layershell.IsSupported(),
		dismissDelay: DefaultDismissDelay,
		queryTimeout: 90 * time.Second,
	}
	if !w.layerShell {
		w.logger.Warn("layer-shell not supported, overlay position is left to the compositor")
	}
	return w
}

// SetQueryHandler sets the function called when the user submits a query.
func (w *Windowing) SetQueryHandler(fn QueryFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onQuery = fn
}

// SetDismissHandler sets the function called when the user dismisses an
// overlay or an answer has been on screen for the dismiss delay. The
// handler gets the window asking to go, which may already be replaced.
func (w *Windowing) SetDismissHandler(fn DismissFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDismiss = fn
}

// SetDismissDelay sets how long an answer stays on screen.
func (w *Windowing) SetDismissDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d <= 0 {
		d = DefaultDismissDelay
	}
	w.dismissDelay = d
}

// SetQueryTimeout bounds a single overlay query.
func (w *Windowing) SetQueryTimeout(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.queryTimeout = d
	}
}

// MonitorAt returns the monitor containing the point. Safe to call from any
// goroutine.
func (w *Windowing) MonitorAt(x, y float64) (overlay.Geometry, bool) {
	geos := onMain(monitorGeometries)
	return overlay.MonitorContaining(geos, x, y)
}

// CreateWindow builds an overlay window that is mapped but fully
// transparent until Show. Must be called on the main loop.
func (w *Windowing) CreateWindow(opts overlay.WindowOptions) (overlay.Window, error) {
	if w.app == nil {
		return nil, errors.New("no application")
	}

	w.mu.RLock()
	ow := &overlayWindow{
		logger:       w.logger,
		onQuery:      w.onQuery,
		onDismiss:    w.onDismiss,
		dismissDelay: w.dismissDelay,
		queryTimeout: w.queryTimeout,
		ready:        make(chan struct{}),
	}
	w.mu.RUnlock()

	win := gtk.NewWindow()
	win.SetApplication(w.app)
	win.SetTitle(opts.Title)
	win.SetDecorated(opts.Decorations)
	win.SetResizable(opts.Resizable)
	win.SetDefaultSize(int(opts.Rect.Width), int(opts.Rect.Height))
	win.AddCSSClass("pointer-overlay")
	ow.window = win

	if w.layerShell {
		layershell.InitForWindow(win)
		layershell.SetNamespace(win, "pointer-overlay")
		if opts.AlwaysOnTop {
			layershell.SetLayer(win, layershell.LayerShellLayerOverlay)
		} else {
			layershell.SetLayer(win, layershell.LayerShellLayerTop)
		}
		layershell.SetExclusiveZone(win, 0)
		layershell.SetKeyboardMode(win, layershell.LayerShellKeyboardModeOnDemand)
		if m := monitorFor(opts.Monitor); m != nil {
			layershell.SetMonitor(win, m)
		}

		left, top := overlay.SurfaceOffset(opts.Rect, opts.Monitor)
		layershell.SetAnchor(win, layershell.LayerShellEdgeTop, true)
		layershell.SetAnchor(win, layershell.LayerShellEdgeLeft, true)
		layershell.SetMargin(win, layershell.LayerShellEdgeTop, top)
		layershell.SetMargin(win, layershell.LayerShellEdgeLeft, left)
	}

	ow.buildUI()
	ow.connectSignals()

	// The window is mapped fully transparent so its surface is attached and
	// painting before the context arrives; Show makes it opaque. Ready fires
	// on the first frame, which needs the main loop to run.
	win.SetOpacity(0)
	win.AddTickCallback(func(gtk.Widgetter, gdk.FrameClocker) bool {
		ow.readyOnce.Do(func() { close(ow.ready) })
		return false
	})
	win.Present()

	w.logger.Debug("overlay window created",
		"width", opts.Rect.Width,
		"height", opts.Rect.Height,
		"layer_shell", w.layerShell,
	)
	return ow, nil
}

// overlayWindow is a single overlay. All fields except ready are only used
// on the main loop.
type overlayWindow struct {
	window *gtk.Window
	logger *slog.Logger

	onQuery      QueryFunc
	onDismiss    DismissFunc
	dismissDelay time.Duration
	queryTimeout time.Duration

	ready     chan struct{}
	readyOnce sync.Once

	frame       *gtk.Box
	contextLbl  *gtk.Label
	modes       *gtk.DropDown
	entry       *gtk.Entry
	spinner     *gtk.Spinner
	responseLbl *gtk.Label
	hintLbl     *gtk.Label

	busy   bool
	closed bool
}

var _ overlay.Window = (*overlayWindow)(nil)

func (o *overlayWindow) buildUI() {
	o.frame = gtk.NewBox(gtk.OrientationVertical, 6)
	o.frame.AddCSSClass("pointer-overlay-frame")

	o.contextLbl = gtk.NewLabel("")
	o.contextLbl.AddCSSClass("pointer-overlay-context")
	o.contextLbl.SetXAlign(0)
	o.contextLbl.SetEllipsize(3) // PANGO_ELLIPSIZE_END
	o.contextLbl.SetVisible(false)
	o.frame.Append(o.contextLbl)

	row := gtk.NewBox(gtk.OrientationHorizontal, 8)

	o.modes = gtk.NewDropDownFromStrings(backend.Modes)
	o.modes.SetTooltipText("Mode")
	row.Append(o.modes)

	o.entry = gtk.NewEntry()
	o.entry.AddCSSClass("pointer-overlay-entry")
	o.entry.SetPlaceholderText("Ask anything...")
	o.entry.SetHExpand(true)
	row.Append(o.entry)

	o.spinner = gtk.NewSpinner()
	o.spinner.SetVisible(false)
	row.Append(o.spinner)

	o.frame.Append(row)

	o.responseLbl = gtk.NewLabel("")
	o.responseLbl.AddCSSClass("pointer-overlay-response")
	o.responseLbl.SetXAlign(0)
	o.responseLbl.SetWrap(true)
	o.responseLbl.SetWrapMode(2) // PANGO_WRAP_WORD_CHAR
	o.responseLbl.SetSelectable(true)
	o.responseLbl.SetVisible(false)
	o.frame.Append(o.responseLbl)

	o.hintLbl = gtk.NewLabel("↵ to submit    esc to cancel")
	o.hintLbl.AddCSSClass("dim-label")
	o.hintLbl.SetXAlign(1)
	o.frame.Append(o.hintLbl)

	o.window.SetChild(o.frame)
}

func (o *overlayWindow) connectSignals() {
	o.entry.ConnectActivate(o.submit)

	keys := gtk.NewEventControllerKey()
	keys.ConnectKeyPressed(func(keyval, _ uint, _ gdk.ModifierType) bool {
		if keyval == gdk.KEY_Escape {
			o.dismiss()
			return true
		}
		return false
	})
	o.window.AddController(keys)

	// Closing through the compositor goes through Hide so the stored
	// context is cleared too.
	o.window.ConnectCloseRequest(func() bool {
		if o.closed {
			return false
		}
		o.dismiss()
		return true
	})
}

// dismiss asks the owner to hide the overlay. Hide waits on the main loop,
// so it must not be called from here directly.
func (o *overlayWindow) dismiss() {
	if o.onDismiss == nil {
		return
	}
	go o.onDismiss(o)
}

func (o *overlayWindow) submit() {
	query := strings.TrimSpace(o.entry.Text())
	if query == "" || o.busy || o.onQuery == nil {
		return
	}

	mode := backend.ModeExecute
	if i := int(o.modes.Selected()); i < len(backend.Modes) {
		mode = backend.Modes[i]
	}

	o.setBusy(true)
	o.responseLbl.RemoveCSSClass("pointer-overlay-error")
	o.logger.Debug("overlay query submitted", "mode", mode)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.queryTimeout)
		defer cancel()
		message, err := o.onQuery(ctx, query, mode)
		glib.IdleAdd(func() {
			o.finish(message, err)
		})
	}()
}

func (o *overlayWindow) finish(message string, err error) {
	if o.closed {
		return
	}
	o.setBusy(false)

	if err != nil {
		o.logger.Warn("overlay query failed", "error", err)
		o.responseLbl.SetText(err.Error())
		o.responseLbl.AddCSSClass("pointer-overlay-error")
		o.responseLbl.SetVisible(true)
		o.entry.GrabFocus()
		return
	}

	if strings.TrimSpace(message) == "" {
		message = DoneMessage
	}
	o.responseLbl.SetText(message)
	o.responseLbl.SetVisible(true)
	o.entry.SetVisible(false)
	o.modes.SetVisible(false)
	o.hintLbl.SetVisible(false)

	time.AfterFunc(o.dismissDelay, func() {
		glib.IdleAdd(func() {
			// A newer overlay may have replaced this one.
			if !o.closed {
				o.dismiss()
			}
		})
	})
}

func (o *overlayWindow) setBusy(busy bool) {
	o.busy = busy
	o.entry.SetSensitive(!busy)
	o.modes.SetSensitive(!busy)
	o.spinner.SetVisible(busy)
	if busy {
		o.spinner.Start()
		o.frame.AddCSSClass("busy")
	} else {
		o.spinner.Stop()
		o.frame.RemoveCSSClass("busy")
	}
}

func (o *overlayWindow) Ready() <-chan struct{} {
	return o.ready
}

func (o *overlayWindow) Emit(event string, payload []byte) error {
	if event != overlay.EventContext {
		return fmt.Errorf("unknown overlay event %q", event)
	}
	ctx, err := overlay.ParseContext(payload)
	if err != nil {
		o.contextLbl.SetVisible(false)
		return err
	}
	desc := ctx.Describe(120)
	o.contextLbl.SetText(desc)
	o.contextLbl.SetVisible(desc != "")
	return nil
}

func (o *overlayWindow) Show() error {
	if o.closed {
		return errors.New("overlay closed")
	}
	o.window.SetOpacity(1)
	o.window.Present()
	return nil
}

func (o *overlayWindow) Focus() error {
	if o.closed {
		return errors.New("overlay closed")
	}
	o.entry.GrabFocus()
	return nil
}

func (o *overlayWindow) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.window.Close()
	return nil
}

func (o *overlayWindow) Destroy() error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.window.Destroy()
	return nil
}
