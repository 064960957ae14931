package dbus

import (
	"github.com/godbus/dbus/v5"
)

const (
	// DBusInterface is the shell interface name.
	DBusInterface = "io.github.jmylchreest.Pointer.Shell"
	// DBusPath is the shell object path.
	DBusPath = "/io/github/jmylchreest/Pointer"
	// DBusBusName is the bus name claimed by pointerd.
	DBusBusName = "io.github.jmylchreest.Pointer"
)

// Signal names on DBusInterface.
const (
	SignalOverlayShown  = "OverlayShown"
	SignalOverlayHidden = "OverlayHidden"
)

// Freedesktop notification service, used for pointerd's own notifications.
const (
	NotificationsInterface = "org.freedesktop.Notifications"
	NotificationsPath      = "/org/freedesktop/Notifications"
)

// Urgency levels defined by the freedesktop.org notification specification.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Notification is an outgoing desktop notification.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Urgency       byte
	Category      string
	Transient     bool
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Hints builds the a{sv} hints argument for Notify.
func (n Notification) Hints() map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(n.Urgency),
		"desktop-entry": dbus.MakeVariant("pointer"),
	}
	if n.Category != "" {
		hints["category"] = dbus.MakeVariant(n.Category)
	}
	if n.Transient {
		hints["transient"] = dbus.MakeVariant(true)
	}
	return hints
}

// OverlayShownEvent is the payload of the OverlayShown signal.
type OverlayShownEvent struct {
	ID      string  `json:"id" yaml:"id"`
	Context string  `json:"context" yaml:"context"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
}

// Event is a decoded shell signal.
type Event struct {
	Name  string             `json:"name" yaml:"name"`
	Shown *OverlayShownEvent `json:"shown,omitempty" yaml:"shown,omitempty"`
}

// ParseSignal decodes a shell signal. It returns false for signals from other
// interfaces or with an unexpected body.
func ParseSignal(sig *dbus.Signal) (Event, bool) {
	if sig == nil {
		return Event{}, false
	}
	switch sig.Name {
	case DBusInterface + "." + SignalOverlayHidden:
		return Event{Name: SignalOverlayHidden}, true
	case DBusInterface + "." + SignalOverlayShown:
		// OverlayShown(s id, s context, d x, d y)
		if len(sig.Body) < 4 {
			return Event{}, false
		}
		id, ok1 := sig.Body[0].(string)
		ctx, ok2 := sig.Body[1].(string)
		x, ok3 := sig.Body[2].(float64)
		y, ok4 := sig.Body[3].(float64)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Event{}, false
		}
		return Event{
			Name:  SignalOverlayShown,
			Shown: &OverlayShownEvent{ID: id, Context: ctx, X: x, Y: y},
		}, true
	}
	return Event{}, false
}
