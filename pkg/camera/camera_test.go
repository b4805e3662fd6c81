package camera

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-dora/pkg/vision"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
	assert.Equal(t, 30, cfg.Framerate)
	assert.Equal(t, 1, cfg.BufferSize)
	assert.Equal(t, 85, cfg.Quality)
	assert.Equal(t, 33*time.Millisecond, cfg.PollInterval)
	assert.Empty(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 10
	cfg.Quality = 0
	cfg.BufferSize = 0

	assert.Len(t, cfg.Validate(), 3)
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		p := GetPreset(name)
		require.NotNil(t, p, name)
		assert.Empty(t, p.Validate(), name)
	}
	assert.Nil(t, GetPreset("nope"))
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager()

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"preset":           Preset720p,
		"quality":          float64(70),
		"poll_interval_ms": float64(50),
	})
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 70, cfg.Quality)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, cfg, applied)

	assert.Error(t, m.UpdateConfig(map[string]interface{}{"preset": "nope"}))
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"zoom": 2.0}))
	assert.Error(t, m.UpdateConfig(map[string]interface{}{"width": float64(1)}))

	js := m.GetConfigJSON()
	assert.EqualValues(t, 50, js["poll_interval_ms"])
	assert.NotContains(t, js, "poll_interval")
}

func TestWebcamLifecycle(t *testing.T) {
	dev := NewFakeDevice(1, []byte("f1"), []byte("f2"), []byte("f3"))
	w := NewWebcam(nil, dev.Opener(), nil)

	assert.Nil(t, w.Frame(), "stopped webcam with no history has no frame")
	_, err := w.CaptureFrame()
	assert.ErrorIs(t, err, vision.ErrNoFrame)

	first, err := w.Start()
	require.NoError(t, err)
	assert.Equal(t, []byte("f1"), first)
	assert.True(t, w.Running())

	assert.Equal(t, []byte("f2"), w.Frame())
	assert.Equal(t, 85, dev.Quality)

	require.NoError(t, w.Stop())
	_, _, closed := dev.Stats()
	assert.True(t, closed)
	assert.False(t, w.Running())

	// Stopped: last frame is retained and no reads happen.
	_, readsBefore, _ := dev.Stats()
	assert.Equal(t, []byte("f2"), w.Frame())
	_, readsAfter, _ := dev.Stats()
	assert.Equal(t, readsBefore, readsAfter)

	frame, err := w.CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("f2"), frame)
}

func TestWebcamDrainsBacklog(t *testing.T) {
	dev := NewFakeDevice(3, []byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e"))
	w := NewWebcam(nil, dev.Opener(), nil)

	_, err := w.Start()
	require.NoError(t, err)

	// Two queued frames (b, c) are discarded before reading d.
	assert.Equal(t, []byte("d"), w.Frame())
	grabs, reads, _ := dev.Stats()
	assert.Equal(t, 2, grabs)
	assert.Equal(t, 2, reads)
}

func TestWebcamReadFailureKeepsLastFrame(t *testing.T) {
	dev := NewFakeDevice(1, []byte("only"))
	w := NewWebcam(nil, dev.Opener(), nil)

	_, err := w.Start()
	require.NoError(t, err)

	dev.ReadErr = ErrReadFailed
	assert.Equal(t, []byte("only"), w.Frame())
}

func TestWebcamOpenFailure(t *testing.T) {
	w := NewWebcam(nil, func(Config) (Device, error) { return nil, ErrUnavailable }, nil)

	_, err := w.Start()
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, w.Running())
}

func TestWebcamReconfigure(t *testing.T) {
	dev := NewFakeDevice(1, []byte("x"))
	opens := 0
	open := func(cfg Config) (Device, error) {
		opens++
		return dev, nil
	}
	w := NewWebcam(nil, open, nil)

	// Not running: config change does not open the device.
	require.NoError(t, w.Manager().SetConfig(HD720Config()))
	assert.Equal(t, 0, opens)

	_, err := w.Start()
	require.NoError(t, err)
	require.NoError(t, w.Manager().SetConfig(DefaultConfig()))
	assert.Equal(t, 2, opens)
	assert.True(t, w.Running())
}

func TestWebcamStream(t *testing.T) {
	dev := NewFakeDevice(1, []byte("s1"), []byte("s2"))
	m := NewManager()
	cfg := m.GetConfig()
	cfg.PollInterval = 5 * time.Millisecond
	require.NoError(t, m.SetConfig(cfg))

	w := NewWebcam(m, dev.Opener(), nil)
	_, err := w.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []byte, 1)
	go w.Stream(ctx, out)

	select {
	case frame := <-out:
		assert.NotEmpty(t, frame)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame streamed")
	}
}
