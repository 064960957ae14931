package overlay

// EventContext is the event name used to push the context payload to the
// overlay's rendering surface.
const EventContext = "overlay-context"

// WindowLabel identifies the overlay window.
const WindowLabel = "overlay"

// WindowOptions configures a new window.
type WindowOptions struct {
	Label            string
	Title            string
	Rect             Rect
	Monitor          *Geometry // monitor the rect was computed against, nil if unknown
	Decorations      bool
	Transparent      bool
	AlwaysOnTop      bool
	Resizable        bool
	SkipTaskbar      bool
	Visible          bool
	ContentProtected bool
}

// OverlayOptions returns the fixed window configuration for an overlay at r.
func OverlayOptions(r Rect, monitor *Geometry) WindowOptions {
	return WindowOptions{
		Label:            WindowLabel,
		Title:            "Pointer Overlay",
		Rect:             r,
		Monitor:          monitor,
		Decorations:      false,
		Transparent:      true,
		AlwaysOnTop:      true,
		Resizable:        false,
		SkipTaskbar:      true,
		Visible:          false,
		ContentProtected: false,
	}
}

// Window is a native window created by a Windowing implementation.
// Every method except Ready must be called on the UI thread.
type Window interface {
	// Ready is closed once the rendering surface is attached.
	Ready() <-chan struct{}
	// Emit delivers an event to the rendering surface asynchronously.
	Emit(event string, payload []byte) error
	Show() error
	Focus() error
	// Close requests a graceful close.
	Close() error
	// Destroy tears the window down immediately.
	Destroy() error
}

// Windowing creates windows and resolves monitors.
type Windowing interface {
	// CreateWindow must be called on the UI thread.
	CreateWindow(opts WindowOptions) (Window, error)
	// MonitorAt returns the monitor containing the point, or false if no
	// monitor information is available.
	MonitorAt(x, y float64) (Geometry, bool)
}

// Dispatcher runs functions on the UI thread.
type Dispatcher interface {
	// Dispatch schedules fn on the UI thread and returns immediately.
	Dispatch(fn func())
	// OnUIThread reports whether the caller is already on the UI thread.
	OnUIThread() bool
}

// Effects applies platform cosmetics to a freshly created window.
type Effects interface {
	Apply(w Window)
}

// NoEffects is the Effects implementation for platforms without cosmetics.
type NoEffects struct{}

// Apply does nothing.
func (NoEffects) Apply(Window) {}

// runOnUI runs fn on the UI thread and waits for it to return.
func runOnUI(d Dispatcher, fn func() error) error {
	if d.OnUIThread() {
		return fn()
	}
	done := make(chan error, 1)
	d.Dispatch(func() {
		done <- fn()
	})
	return <-done
}
