package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/overlay"
)

// ErrNotRunning is returned when no pointerd owns the bus name.
var ErrNotRunning = errors.New("pointerd is not running")

// Client calls a running pointerd over the session bus.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	timeout time.Duration
}

// Connect opens a private session bus connection. A zero timeout means
// DefaultCallTimeout.
func Connect(timeout time.Duration) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return newClient(conn, conn.Object(DBusBusName, DBusPath), timeout), nil
}

func newClient(conn *dbus.Conn, obj dbus.BusObject, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Client{conn: conn, obj: obj, timeout: timeout}
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	call := c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, args...)
	call.Err = remoteError(call.Err)
	return call
}

func (c *Client) callString(ctx context.Context, method string, args ...any) (string, error) {
	call := c.call(ctx, method, args...)
	if call.Err != nil {
		return "", call.Err
	}
	var s string
	if err := call.Store(&s); err != nil {
		return "", fmt.Errorf("invalid %s reply: %w", method, err)
	}
	return s, nil
}

// remoteError strips the D-Bus error name so callers see the daemon's message.
func remoteError(err error) error {
	if err == nil {
		return nil
	}
	var dbusErr dbus.Error
	if !errors.As(err, &dbusErr) {
		return err
	}
	switch dbusErr.Name {
	case "org.freedesktop.DBus.Error.ServiceUnknown", "org.freedesktop.DBus.Error.NameHasNoOwner":
		return ErrNotRunning
	}
	if len(dbusErr.Body) > 0 {
		if msg, ok := dbusErr.Body[0].(string); ok {
			return errors.New(msg)
		}
	}
	return err
}

// ShowSettings reveals the main window.
func (c *Client) ShowSettings(ctx context.Context) (string, error) {
	return c.callString(ctx, "ShowSettings")
}

// ShowOverlay shows the overlay at (x, y) with a raw JSON context.
func (c *Client) ShowOverlay(ctx context.Context, x, y float64, rawContext string) (string, error) {
	return c.callString(ctx, "ShowOverlay", x, y, rawContext)
}

// HideOverlay hides the overlay.
func (c *Client) HideOverlay(ctx context.Context) (string, error) {
	return c.callString(ctx, "HideOverlay")
}

// GetOverlayContext returns the stored overlay context and whether one is set.
func (c *Client) GetOverlayContext(ctx context.Context) (overlay.Context, bool, error) {
	call := c.call(ctx, "GetOverlayContext")
	if call.Err != nil {
		return overlay.Context{}, false, call.Err
	}
	var (
		raw     string
		present bool
	)
	if err := call.Store(&raw, &present); err != nil {
		return overlay.Context{}, false, fmt.Errorf("invalid GetOverlayContext reply: %w", err)
	}
	if !present {
		return overlay.Context{}, false, nil
	}
	var oc overlay.Context
	if err := json.Unmarshal([]byte(raw), &oc); err != nil {
		return overlay.Context{}, false, fmt.Errorf("invalid overlay context: %w", err)
	}
	return oc, true, nil
}

// StartBackend starts the worker.
func (c *Client) StartBackend(ctx context.Context) (string, error) {
	return c.callString(ctx, "StartBackend")
}

// BackendStatus returns the worker state.
func (c *Client) BackendStatus(ctx context.Context) (*backend.Report, error) {
	raw, err := c.callString(ctx, "BackendStatus")
	if err != nil {
		return nil, err
	}
	var r backend.Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("invalid backend status: %w", err)
	}
	return &r, nil
}

// LoadSettings returns the settings blob.
func (c *Client) LoadSettings(ctx context.Context) (json.RawMessage, error) {
	raw, err := c.callString(ctx, "LoadSettings")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// SaveSettings replaces the settings blob.
func (c *Client) SaveSettings(ctx context.Context, blob string) (string, error) {
	return c.callString(ctx, "SaveSettings", blob)
}

// ProcessQuery sends a query through pointerd to the worker.
func (c *Client) ProcessQuery(ctx context.Context, query, mode, settings string) (*backend.AgentResponse, error) {
	raw, err := c.callString(ctx, "ProcessQuery", query, mode, settings)
	if err != nil {
		return nil, err
	}
	var resp backend.AgentResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("invalid query response: %w", err)
	}
	return &resp, nil
}

// Quit asks pointerd to stop its worker and exit.
func (c *Client) Quit(ctx context.Context) error {
	return c.call(ctx, "Quit").Err
}

// WatchSignals calls handler for every shell signal until ctx is cancelled.
func (c *Client) WatchSignals(ctx context.Context, handler func(Event)) error {
	if c.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}
	defer func() {
		_ = c.conn.RemoveMatchSignal(opts...)
	}()

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return errors.New("D-Bus connection closed")
			}
			if ev, ok := ParseSignal(sig); ok {
				handler(ev)
			}
		}
	}
}
