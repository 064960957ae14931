package audio

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// ErrNoSound is returned by Play when no sound is configured.
var ErrNoSound = errors.New("no cue sound configured")

// loader decodes a sound file. *Player satisfies it.
type loader interface {
	Load(path string) (*beep.Buffer, error)
	Play(buffer *beep.Buffer, volume float64)
}

// Cue is a single configurable sound played when the overlay appears.
// The decoded sound is cached and reloaded when the file changes on disk.
type Cue struct {
	player loader
	logger *slog.Logger

	mu      sync.Mutex
	path    string
	volume  float64
	buffer  *beep.Buffer
	modTime time.Time
}

// NewCue creates a cue playing path at volume (0-100). An empty path makes
// the cue silent.
func NewCue(player *Player, path string, volume int, logger *slog.Logger) *Cue {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cue{player: player, logger: logger}
	c.Configure(path, volume)
	return c
}

// Configure changes the sound and volume. The cache is dropped if the path
// changed.
func (c *Cue) Configure(path string, volume int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path != c.path {
		c.buffer = nil
		c.modTime = time.Time{}
	}
	c.path = path
	c.volume = clampVolume(float64(volume) / 100.0)
}

// Preload decodes the sound ahead of the first Play.
func (c *Cue) Preload() error {
	_, _, err := c.current()
	return err
}

// Play starts the sound without waiting for it to finish.
func (c *Cue) Play() error {
	buffer, volume, err := c.current()
	if err != nil {
		return err
	}
	c.player.Play(buffer, volume)
	return nil
}

// current returns the cached buffer, decoding it first if the file is new
// or has been modified.
func (c *Cue) current() (*beep.Buffer, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return nil, 0, ErrNoSound
	}

	info, err := os.Stat(c.path)
	if err != nil {
		c.buffer = nil
		return nil, 0, err
	}
	if c.buffer != nil && info.ModTime().Equal(c.modTime) {
		return c.buffer, c.volume, nil
	}

	buffer, err := c.player.Load(c.path)
	if err != nil {
		c.logger.Warn("failed to load cue sound", "path", c.path, "error", err)
		return nil, 0, err
	}
	if c.buffer != nil {
		c.logger.Debug("cue sound changed, reloaded", "path", c.path)
	}
	c.buffer = buffer
	c.modTime = info.ModTime()
	return buffer, c.volume, nil
}
