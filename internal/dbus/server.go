package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/overlay"
)

// DefaultCallTimeout bounds the blocking work done for a single method call.
const DefaultCallTimeout = 90 * time.Second

// Shell is the set of operations exported on the bus.
type Shell interface {
	ShowSettings() (string, error)
	ShowOverlay(x, y float64, rawContext string) (string, error)
	HideOverlay() (string, error)
	GetOverlayContext() (overlay.Context, bool)
	StartBackend() (string, error)
	BackendStatus(ctx context.Context) backend.Report
	LoadSettings() (json.RawMessage, error)
	SaveSettings(blob string) (string, error)
	ProcessQuery(ctx context.Context, query, mode, settings string) (*backend.AgentResponse, error)
	Quit(ctx context.Context)
}

// ShellServer exports a Shell as the io.github.jmylchreest.Pointer.Shell interface.
type ShellServer struct {
	conn   *dbus.Conn
	logger *slog.Logger
	shell  Shell

	callTimeout time.Duration

	mu      sync.RWMutex
	running bool
}

// NewShellServer creates a new ShellServer.
func NewShellServer(shell Shell, logger *slog.Logger) *ShellServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellServer{
		logger:      logger,
		shell:       shell,
		callTimeout: DefaultCallTimeout,
	}
}

// SetCallTimeout sets the timeout for blocking calls such as ProcessQuery.
func (s *ShellServer) SetCallTimeout(d time.Duration) {
	if d > 0 {
		s.callTimeout = d
	}
}

// Start connects to the session bus, exports the shell and claims the bus
// name. It fails if another pointerd already owns the name.
func (s *ShellServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: shellMethods(),
				Signals: shellSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken, is pointerd already running?", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus shell server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *ShellServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// The session bus connection is shared; leave it open.
	}

	s.logger.Info("D-Bus shell server stopped")
	return nil
}

// Connection returns the underlying D-Bus connection, nil before Start.
func (s *ShellServer) Connection() *dbus.Conn {
	return s.conn
}

func (s *ShellServer) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.callTimeout)
}

// failed converts an error into the D-Bus error returned to the caller.
func (s *ShellServer) failed(method string, err error) *dbus.Error {
	s.logger.Debug("D-Bus call failed", "method", method, "error", err)
	return dbus.MakeFailedError(err)
}

// ShowSettings reveals the main window.
// D-Bus method: ShowSettings() -> s
func (s *ShellServer) ShowSettings() (string, *dbus.Error) {
	s.logger.Debug("ShowSettings called")
	res, err := s.shell.ShowSettings()
	if err != nil {
		return "", s.failed("ShowSettings", err)
	}
	return res, nil
}

// ShowOverlay shows the overlay anchored at a point.
// D-Bus method: ShowOverlay(dds) -> s
func (s *ShellServer) ShowOverlay(x, y float64, context string) (string, *dbus.Error) {
	s.logger.Debug("ShowOverlay called", "x", x, "y", y, "context_bytes", len(context))
	res, err := s.shell.ShowOverlay(x, y, context)
	if err != nil {
		return "", s.failed("ShowOverlay", err)
	}
	return res, nil
}

// HideOverlay hides the overlay.
// D-Bus method: HideOverlay() -> s
func (s *ShellServer) HideOverlay() (string, *dbus.Error) {
	s.logger.Debug("HideOverlay called")
	res, err := s.shell.HideOverlay()
	if err != nil {
		return "", s.failed("HideOverlay", err)
	}
	return res, nil
}

// GetOverlayContext returns the stored context as JSON and whether one is set.
// D-Bus method: GetOverlayContext() -> (sb)
func (s *ShellServer) GetOverlayContext() (string, bool, *dbus.Error) {
	ctx, ok := s.shell.GetOverlayContext()
	if !ok {
		return "", false, nil
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		return "", false, s.failed("GetOverlayContext", err)
	}
	return string(data), true, nil
}

// StartBackend starts the worker process.
// D-Bus method: StartBackend() -> s
func (s *ShellServer) StartBackend() (string, *dbus.Error) {
	s.logger.Debug("StartBackend called")
	res, err := s.shell.StartBackend()
	if err != nil {
		return "", s.failed("StartBackend", err)
	}
	return res, nil
}

// BackendStatus reports the worker state as JSON.
// D-Bus method: BackendStatus() -> s
func (s *ShellServer) BackendStatus() (string, *dbus.Error) {
	ctx, cancel := s.callContext()
	defer cancel()

	data, err := json.Marshal(s.shell.BackendStatus(ctx))
	if err != nil {
		return "", s.failed("BackendStatus", err)
	}
	return string(data), nil
}

// LoadSettings returns the settings blob.
// D-Bus method: LoadSettings() -> s
func (s *ShellServer) LoadSettings() (string, *dbus.Error) {
	blob, err := s.shell.LoadSettings()
	if err != nil {
		return "", s.failed("LoadSettings", err)
	}
	return string(blob), nil
}

// SaveSettings replaces the settings blob.
// D-Bus method: SaveSettings(s) -> s
func (s *ShellServer) SaveSettings(blob string) (string, *dbus.Error) {
	s.logger.Debug("SaveSettings called", "bytes", len(blob))
	res, err := s.shell.SaveSettings(blob)
	if err != nil {
		return "", s.failed("SaveSettings", err)
	}
	return res, nil
}

// ProcessQuery sends a query to the worker and returns its response as JSON.
// D-Bus method: ProcessQuery(sss) -> s
func (s *ShellServer) ProcessQuery(query, mode, settings string) (string, *dbus.Error) {
	s.logger.Debug("ProcessQuery called", "mode", mode)
	ctx, cancel := s.callContext()
	defer cancel()

	resp, err := s.shell.ProcessQuery(ctx, query, mode, settings)
	if err != nil {
		return "", s.failed("ProcessQuery", err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", s.failed("ProcessQuery", err)
	}
	return string(data), nil
}

// Quit stops the worker and exits pointerd. The reply is sent before
// shutdown begins.
// D-Bus method: Quit()
func (s *ShellServer) Quit() *dbus.Error {
	s.logger.Info("Quit called")
	go func() {
		ctx, cancel := s.callContext()
		defer cancel()
		s.shell.Quit(ctx)
	}()
	return nil
}

// shellMethods returns the D-Bus method introspection data.
func shellMethods() []introspect.Method {
	result := introspect.Arg{Name: "result", Type: "s", Direction: "out"}
	return []introspect.Method{
		{Name: "ShowSettings", Args: []introspect.Arg{result}},
		{
			Name: "ShowOverlay",
			Args: []introspect.Arg{
				{Name: "x", Type: "d", Direction: "in"},
				{Name: "y", Type: "d", Direction: "in"},
				{Name: "context", Type: "s", Direction: "in"},
				result,
			},
		},
		{Name: "HideOverlay", Args: []introspect.Arg{result}},
		{
			Name: "GetOverlayContext",
			Args: []introspect.Arg{
				{Name: "context", Type: "s", Direction: "out"},
				{Name: "present", Type: "b", Direction: "out"},
			},
		},
		{Name: "StartBackend", Args: []introspect.Arg{result}},
		{
			Name: "BackendStatus",
			Args: []introspect.Arg{{Name: "status", Type: "s", Direction: "out"}},
		},
		{
			Name: "LoadSettings",
			Args: []introspect.Arg{{Name: "settings", Type: "s", Direction: "out"}},
		},
		{
			Name: "SaveSettings",
			Args: []introspect.Arg{
				{Name: "settings", Type: "s", Direction: "in"},
				result,
			},
		},
		{
			Name: "ProcessQuery",
			Args: []introspect.Arg{
				{Name: "query", Type: "s", Direction: "in"},
				{Name: "mode", Type: "s", Direction: "in"},
				{Name: "settings", Type: "s", Direction: "in"},
				{Name: "response", Type: "s", Direction: "out"},
			},
		},
		{Name: "Quit"},
	}
}

// shellSignals returns the D-Bus signal introspection data.
func shellSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalOverlayShown,
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "context", Type: "s"},
				{Name: "x", Type: "d"},
				{Name: "y", Type: "d"},
			},
		},
		{Name: SignalOverlayHidden},
	}
}
