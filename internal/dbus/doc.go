// Package dbus exposes pointerd on the session bus as the
// io.github.jmylchreest.Pointer.Shell interface, emits overlay signals, and
// provides the client used by the pointer CLI. It also sends pointerd's own
// desktop notifications through org.freedesktop.Notifications.
package dbus
