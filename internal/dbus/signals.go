package dbus

import (
	"fmt"
)

// EmitOverlayShown emits the OverlayShown signal.
func (s *ShellServer) EmitOverlayShown(id, context string, x, y float64) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+"."+SignalOverlayShown, id, context, x, y)
	if err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", SignalOverlayShown, err)
	}

	s.logger.Debug("emitted OverlayShown signal", "id", id, "x", x, "y", y)
	return nil
}

// EmitOverlayHidden emits the OverlayHidden signal.
func (s *ShellServer) EmitOverlayHidden() error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := s.conn.Emit(DBusPath, DBusInterface+"."+SignalOverlayHidden); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", SignalOverlayHidden, err)
	}

	s.logger.Debug("emitted OverlayHidden signal")
	return nil
}
