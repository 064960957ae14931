package tray

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIcon(t *testing.T) {
	data := Icon()
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, IconSize, img.Bounds().Dx())
	assert.Equal(t, IconSize, img.Bounds().Dy())

	_, _, _, inside := img.At(8, 12).RGBA()
	assert.Equal(t, uint32(0xffff), inside, "arrow body should be opaque")

	_, _, _, outside := img.At(20, 2).RGBA()
	assert.Zero(t, outside, "corner should be transparent")
}

func TestInsideArrow(t *testing.T) {
	assert.True(t, insideArrow(6, 10))
	assert.False(t, insideArrow(2, 10))
	assert.False(t, insideArrow(16, 3))
}

func TestRun_DispatchesClicks(t *testing.T) {
	settingsCalled := make(chan struct{}, 1)
	quitCalled := make(chan struct{}, 1)
	tr := New(Options{
		OnSettings: func() { settingsCalled <- struct{}{} },
		OnQuit:     func() { quitCalled <- struct{}{} },
	}, nil)

	settings := make(chan struct{})
	quit := make(chan struct{})
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		tr.run(settings, quit, done)
		close(stopped)
	}()

	settings <- struct{}{}
	select {
	case <-settingsCalled:
	case <-time.After(time.Second):
		t.Fatal("settings callback not called")
	}

	quit <- struct{}{}
	select {
	case <-quitCalled:
	case <-time.After(time.Second):
		t.Fatal("quit callback not called")
	}

	close(done)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestStopWithoutStart(t *testing.T) {
	tr := New(Options{}, nil)
	assert.NotPanics(t, tr.Stop)
}
