package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// SendNotification delivers n to the session's notification daemon and
// returns the id it assigned.
func SendNotification(conn *dbus.Conn, n Notification) (uint32, error) {
	if conn == nil {
		return 0, fmt.Errorf("not connected to D-Bus")
	}

	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}

	obj := conn.Object(NotificationsInterface, NotificationsPath)
	// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
	call := obj.Call(NotificationsInterface+".Notify", 0,
		n.AppName,
		n.ReplacesID,
		n.AppIcon,
		n.Summary,
		n.Body,
		actions,
		n.Hints(),
		n.ExpireTimeout,
	)
	if call.Err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("invalid Notify reply: %w", err)
	}
	return id, nil
}
