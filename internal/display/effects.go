package display

import (
	"github.com/diamondburned/gotk4-adwaita/pkg/adw"

	"github.com/jmylchreest/pointer/internal/overlay"
)

// CSSEffects styles overlay windows through CSS classes picked up by the
// active theme.
type CSSEffects struct {
	// Translucent adds the translucent class so themes can let compositor
	// blur show through.
	Translucent bool
}

var _ overlay.Effects = CSSEffects{}

// Apply adds the colour scheme and state classes to w. Windows from other
// implementations are left alone.
func (e CSSEffects) Apply(w overlay.Window) {
	ow, ok := w.(*overlayWindow)
	if !ok || ow.frame == nil {
		return
	}
	ow.frame.AddCSSClass(colorSchemeClass())
	if e.Translucent {
		ow.frame.AddCSSClass("translucent")
	}
}

// colorSchemeClass returns "dark" or "light" from the libadwaita style manager.
func colorSchemeClass() string {
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}
