// Package display renders pointerd's GTK4/libadwaita windows: the overlay,
// placed through Wayland layer-shell where the compositor supports it, and
// the settings window.
package display
