package display

import (
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/jmylchreest/pointer/internal/overlay"
)

// MainLoop dispatches work onto the GTK main loop.
type MainLoop struct{}

var _ overlay.Dispatcher = MainLoop{}

// Dispatch schedules fn on the main loop and returns immediately.
func (MainLoop) Dispatch(fn func()) {
	glib.IdleAdd(fn)
}

// OnUIThread reports whether the caller owns the default main context.
func (MainLoop) OnUIThread() bool {
	return glib.MainContextDefault().IsOwner()
}

// onMain runs fn on the main loop and waits for its result.
func onMain[T any](fn func() T) T {
	var loop MainLoop
	if loop.OnUIThread() {
		return fn()
	}
	done := make(chan T, 1)
	loop.Dispatch(func() {
		done <- fn()
	})
	return <-done
}
