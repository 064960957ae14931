// Package theme loads the CSS applied to the overlay and the settings
// window. Themes are looked up in ~/.config/pointer/themes/ first and then
// among the bundled ones; user themes are reloaded when they change on disk.
package theme
