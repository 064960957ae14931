package audio

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// speakerLatency is the output buffer length. Short enough that the cue
// lines up with the overlay appearing.
const speakerLatency = 50 * time.Millisecond

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decoders maps a lower-case file extension to its decoder.
var decoders = map[string]decodeFunc{
	".wav": func(r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(r) },
	".ogg": vorbis.Decode,
	".mp3": mp3.Decode,
}

// Player decodes sound files and plays them on the default output device.
// The device is opened on the first successful decode, at that sound's
// sample rate; later sounds are resampled to it.
type Player struct {
	logger *slog.Logger

	mu   sync.Mutex
	open bool
	rate beep.SampleRate
}

// NewPlayer creates a player. Nothing is opened until a sound is loaded.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{logger: logger.With("component", "audio")}
}

// Load decodes a WAV, OGG or MP3 file fully into memory.
func (p *Player) Load(path string) (*beep.Buffer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported audio format: %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	// The decoders close f through the returned streamer.
	stream, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = stream.Close() }()

	if err := p.openDevice(format.SampleRate); err != nil {
		return nil, err
	}

	buf := beep.NewBuffer(format)
	buf.Append(stream)
	p.logger.Debug("sound decoded", "path", path, "duration", format.SampleRate.D(buf.Len()))
	return buf, nil
}

func (p *Player) openDevice(rate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return nil
	}
	if err := speaker.Init(rate, rate.N(speakerLatency)); err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	p.open = true
	p.rate = rate
	p.logger.Debug("audio device opened", "sample_rate", int(rate))
	return nil
}

// Play starts buf at volume (0 to 1) and returns immediately. Playing
// before any sound has been loaded does nothing.
func (p *Player) Play(buf *beep.Buffer, volume float64) {
	if buf == nil {
		return
	}

	p.mu.Lock()
	open, rate := p.open, p.rate
	p.mu.Unlock()
	if !open {
		return
	}

	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if from := buf.Format().SampleRate; from != rate {
		s = beep.Resample(4, from, rate, s)
	}
	if volume = clampVolume(volume); volume < 1 {
		s = &effects.Volume{Streamer: s, Base: 2, Volume: volumeToExponent(volume), Silent: volume == 0}
	}
	speaker.Play(s)
}

// Close stops playback and releases the device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return
	}
	speaker.Close()
	p.open = false
	p.logger.Debug("audio device closed")
}

func clampVolume(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// volumeToExponent maps a linear volume to the base-2 exponent
// effects.Volume expects, so 0.5 is -1 and 0.25 is -2.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -100
	}
	return math.Log2(volume)
}
