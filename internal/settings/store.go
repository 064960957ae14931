// Package settings persists the user settings blob edited in the settings
// window. The blob is an opaque JSON object.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotObject is returned when a blob is not a JSON object.
var ErrNotObject = errors.New("settings must be a JSON object")

// Store reads and writes the settings file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a store backed by the file at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored blob, or {} if nothing has been saved yet.
func (s *Store) Load() (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return json.RawMessage("{}"), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("stored settings are invalid: %w", err)
	}
	return json.RawMessage(data), nil
}

// Save validates blob and replaces the stored settings with it.
func (s *Store) Save(blob []byte) error {
	if err := validate(blob); err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, blob, "", "  "); err != nil {
		return fmt.Errorf("failed to format settings: %w", err)
	}
	out.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, out.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write settings: %w", err)
	}

	s.logger.Debug("settings saved", "path", s.path, "bytes", out.Len())
	return nil
}

func validate(blob []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(blob, &obj); err != nil || obj == nil {
		return ErrNotObject
	}
	return nil
}
