// Package backend supervises the local agent worker process and talks to its
// HTTP API.
package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// DefaultBinary is the worker executable name looked up when none is configured.
const DefaultBinary = "pointer-backend"

// DefaultStopTimeout is how long Stop waits after SIGTERM before SIGKILL.
const DefaultStopTimeout = 3 * time.Second

// drainTimeout bounds how long output is relayed after the worker exits.
const drainTimeout = 500 * time.Millisecond

// Result strings returned to UI callers.
const (
	ResultStarted        = "Backend started"
	ResultAlreadyRunning = "Backend already running"
)

// ErrNotFound is returned when the worker executable cannot be located.
var ErrNotFound = errors.New("backend executable not found")

// ErrorKind distinguishes the two ways a start can fail.
type ErrorKind int

const (
	// KindCommand means the command could not be built: the executable is
	// missing, not launchable, or its pipes could not be set up.
	KindCommand ErrorKind = iota
	// KindSpawn means the operating system refused to start the process.
	KindSpawn
)

// Error is a backend start failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindSpawn:
		return "Failed to spawn backend: " + e.Err.Error()
	default:
		return "Failed to create sidecar command: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configures the worker process.
type Options struct {
	// Binary is an absolute path, or a name resolved next to the running
	// executable and then on $PATH.
	Binary      string
	Args        []string
	WorkingDir  string
	Env         map[string]string
	StopTimeout time.Duration
}

// Status is a snapshot of the supervisor state.
type Status struct {
	Running      bool      `json:"running" yaml:"running"`
	PID          int       `json:"pid,omitempty" yaml:"pid,omitempty"`
	Path         string    `json:"path,omitempty" yaml:"path,omitempty"`
	StartedAt    time.Time `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	LastExitCode *int      `json:"last_exit_code,omitempty" yaml:"last_exit_code,omitempty"`
	LastExitAt   time.Time `json:"last_exit_at,omitzero" yaml:"last_exit_at,omitempty"`
}

// Report combines the supervisor state with the worker's health.
type Report struct {
	Status      `yaml:",inline"`
	Healthy     bool   `json:"healthy" yaml:"healthy"`
	HealthError string `json:"health_error,omitempty" yaml:"health_error,omitempty"`
}

// process is the handle for a live worker.
type process struct {
	cmd     *exec.Cmd
	path    string
	started time.Time
	done    chan struct{} // closed once the process has been reaped
}

// Supervisor starts and tracks at most one worker process.
type Supervisor struct {
	logger *slog.Logger

	// Overridable for tests.
	executable func() (string, error)
	lookPath   func(string) (string, error)

	mu       sync.Mutex
	opts     Options
	proc     *process
	lastExit *int
	exitedAt time.Time
}

// NewSupervisor creates a supervisor. Nothing is started until Start.
func NewSupervisor(opts Options, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		logger:     logger.With("component", "backend"),
		executable: os.Executable,
		lookPath:   exec.LookPath,
		opts:       opts,
	}
}

// SetOptions replaces the options used by the next Start. A running worker
// is left alone.
func (s *Supervisor) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Start spawns the worker unless one is already alive.
// It returns as soon as the process has been created.
func (s *Supervisor) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		s.logger.Debug("backend already running", "pid", s.proc.cmd.Process.Pid)
		return ResultAlreadyRunning, nil
	}

	path, err := s.locate()
	if err != nil {
		s.logger.Error("failed to locate backend", "error", err)
		return "", &Error{Kind: KindCommand, Err: err}
	}

	cmd := exec.Command(path, s.opts.Args...)
	cmd.Dir = s.opts.WorkingDir
	if len(s.opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range s.opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	setProcessGroup(cmd)

	// Plain os.Pipe rather than StdoutPipe: Wait must not be held up by a
	// grandchild that inherited the write ends.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return "", &Error{Kind: KindCommand, Err: fmt.Errorf("failed to open stdout: %w", err)}
	}
	stderr, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdout, stdoutW)
		return "", &Error{Kind: KindCommand, Err: fmt.Errorf("failed to open stderr: %w", err)}
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	closeAll(stdoutW, stderrW)
	if err != nil {
		closeAll(stdout, stderr)
		s.logger.Error("failed to spawn backend", "path", path, "error", err)
		return "", &Error{Kind: KindSpawn, Err: err}
	}

	p := &process{
		cmd:     cmd,
		path:    path,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	s.proc = p

	logger := s.logger.With("pid", cmd.Process.Pid)
	logger.Info("backend started", "path", path)

	var streams sync.WaitGroup
	streams.Add(2)
	go relay(&streams, stdout, logger.With("stream", "stdout"))
	go relay(&streams, stderr, logger.With("stream", "stderr"))
	go s.wait(p, &streams, []*os.File{stdout, stderr}, logger)

	return ResultStarted, nil
}

// relay forwards each line of r to the log until r reaches EOF or is closed.
func relay(wg *sync.WaitGroup, r io.Reader, logger *slog.Logger) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Info(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("backend output relay stopped", "error", err)
	}
}

// wait reaps the process and drops the handle as soon as it exits. Output
// still buffered in the pipes gets drainTimeout to reach the log; after that
// the read ends are closed, even if a leftover child still holds the write
// ends.
func (s *Supervisor) wait(p *process, streams *sync.WaitGroup, pipes []*os.File, logger *slog.Logger) {
	err := p.cmd.Wait()

	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	runtime := time.Since(p.started).Round(time.Millisecond)
	if err != nil {
		logger.Warn("backend exited", "code", code, "runtime", runtime, "error", err)
	} else {
		logger.Info("backend exited", "code", code, "runtime", runtime)
	}

	s.mu.Lock()
	if s.proc == p {
		s.proc = nil
	}
	s.lastExit = &code
	s.exitedAt = time.Now()
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		streams.Wait()
		close(drained)
	}()
	timer := time.NewTimer(drainTimeout)
	select {
	case <-drained:
		timer.Stop()
	case <-timer.C:
		logger.Debug("backend output still open after exit, closing")
	}
	closeAll(pipes...)
	<-drained

	close(p.done)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// locate resolves the worker executable.
func (s *Supervisor) locate() (string, error) {
	name := s.opts.Binary
	if name == "" {
		name = DefaultBinary
	}

	if filepath.IsAbs(name) {
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}

	if exe, err := s.executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), name)
		if checkExecutable(candidate) == nil {
			return candidate, nil
		}
	}

	if path, err := s.lookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if !isExecutable(info) {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// Stop terminates the worker's process group and waits for it to be reaped.
// It is a no-op when no worker is running.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	p := s.proc
	grace := s.opts.StopTimeout
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	if grace <= 0 {
		grace = DefaultStopTimeout
	}

	pid := p.cmd.Process.Pid
	s.logger.Info("stopping backend", "pid", pid)
	terminateGroup(p.cmd)

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
		s.logger.Warn("backend did not exit, killing", "pid", pid, "grace", grace)
		killGroup(p.cmd)
	case <-ctx.Done():
		killGroup(p.cmd)
		return ctx.Err()
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports whether a worker is running and how the last one ended.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Status
	if s.proc != nil {
		st.Running = true
		st.PID = s.proc.cmd.Process.Pid
		st.Path = s.proc.path
		st.StartedAt = s.proc.started
	}
	if s.lastExit != nil {
		code := *s.lastExit
		st.LastExitCode = &code
		st.LastExitAt = s.exitedAt
	}
	return st
}

// AutoStart calls Start once after delay in a new goroutine. The outcome is
// only logged. Cancelling ctx before the delay elapses skips the start.
func (s *Supervisor) AutoStart(ctx context.Context, delay time.Duration) {
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			s.logger.Debug("backend autostart cancelled")
			return
		case <-timer.C:
		}

		result, err := s.Start()
		if err != nil {
			s.logger.Error("backend autostart failed", "error", err)
			return
		}
		s.logger.Debug("backend autostart", "result", result)
	}()
}
