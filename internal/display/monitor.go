package display

import (
	"unsafe"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/pointer/internal/overlay"
)

// listMonitors returns every connected monitor. Must run on the main loop.
func listMonitors() []*gdk.Monitor {
	display := gdk.DisplayGetDefault()
	if display == nil {
		return nil
	}
	model := display.Monitors()
	if model == nil {
		return nil
	}

	n := model.NItems()
	monitors := make([]*gdk.Monitor, 0, n)
	for i := range n {
		if m := wrapMonitor(model.Item(i)); m != nil {
			monitors = append(monitors, m)
		}
	}
	return monitors
}

// wrapMonitor wraps a coreglib.Object as a gdk.Monitor.
// gotk4 does not export its own wrapper for list model items.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	// gdk.Monitor embeds a *coreglib.Object and nothing else.
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

func geometryOf(m *gdk.Monitor) overlay.Geometry {
	r := m.Geometry()
	return overlay.Geometry{
		X:      float64(r.X()),
		Y:      float64(r.Y()),
		Width:  float64(r.Width()),
		Height: float64(r.Height()),
	}
}

// monitorGeometries returns the layout rectangle of every monitor.
// Must run on the main loop.
func monitorGeometries() []overlay.Geometry {
	monitors := listMonitors()
	geos := make([]overlay.Geometry, len(monitors))
	for i, m := range monitors {
		geos[i] = geometryOf(m)
	}
	return geos
}

// monitorFor finds the monitor with exactly the given geometry.
// Must run on the main loop.
func monitorFor(geo *overlay.Geometry) *gdk.Monitor {
	if geo == nil {
		return nil
	}
	for _, m := range listMonitors() {
		if geometryOf(m) == *geo {
			return m
		}
	}
	return nil
}
