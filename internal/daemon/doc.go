// Package daemon coordinates pointerd: the overlay, the worker supervisor,
// the settings store and configuration hot-reload.
package daemon
