package camera

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-dora/pkg/vision"
)

// Webcam owns one capture device and the latest frame. Frames are never
// queued: each read replaces the single buffered frame.
type Webcam struct {
	manager *Manager
	open    Opener
	logger  *slog.Logger

	mu      sync.Mutex
	dev     Device
	running bool
	last    []byte
	lastAt  time.Time
}

// Status is a snapshot of the webcam state.
type Status struct {
	Running   bool      `json:"running"`
	HasFrame  bool      `json:"has_frame"`
	LastFrame time.Time `json:"last_frame,omitempty"`
	Config    Config    `json:"config"`
}

// NewWebcam creates a stopped webcam. A nil manager gets defaults and a
// nil opener uses DefaultOpener. Config changes from the manager restart
// a running device.
func NewWebcam(manager *Manager, open Opener, logger *slog.Logger) *Webcam {
	if manager == nil {
		manager = NewManager()
	}
	if open == nil {
		open = DefaultOpener
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Webcam{
		manager: manager,
		open:    open,
		logger:  logger.With("component", "camera.webcam"),
	}
	manager.OnConfigChange = w.reconfigure
	return w
}

// Manager returns the config manager.
func (w *Webcam) Manager() *Manager { return w.manager }

// Start opens the device if needed and reads a first frame. It returns
// that frame, or the previous one if the read failed.
func (w *Webcam) Start() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = true
	if w.dev == nil {
		cfg := w.manager.GetConfig()
		dev, err := w.open(cfg)
		if err != nil {
			w.running = false
			return nil, err
		}
		w.dev = dev
		w.logger.Info("camera started",
			"device", cfg.DeviceID,
			"width", cfg.Width,
			"height", cfg.Height,
			"fps", cfg.Framerate,
		)
	}

	if err := w.readLocked(false); err != nil {
		w.logger.Warn("first frame failed", "error", err)
	}
	return w.last, nil
}

// Stop releases the device. The last frame stays available.
func (w *Webcam) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = false
	if w.dev == nil {
		return nil
	}
	err := w.dev.Close()
	w.dev = nil
	w.logger.Info("camera stopped")
	return err
}

// Frame returns the freshest frame. While running it drains queued
// frames and reads a new one; when stopped or on read failure it returns
// the last frame, which may be nil.
func (w *Webcam) Frame() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running || w.dev == nil {
		return w.last
	}
	if err := w.readLocked(true); err != nil {
		w.logger.Debug("frame read failed", "error", err)
	}
	return w.last
}

// CaptureFrame returns the current frame for analysis, or
// vision.ErrNoFrame when the camera has never produced one.
func (w *Webcam) CaptureFrame() ([]byte, error) {
	frame := w.Frame()
	if len(frame) == 0 {
		return nil, vision.ErrNoFrame
	}
	return frame, nil
}

// Running reports whether the device is open.
func (w *Webcam) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Status returns a snapshot for the UI.
func (w *Webcam) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Running:   w.running,
		HasFrame:  len(w.last) > 0,
		LastFrame: w.lastAt,
		Config:    w.manager.GetConfig(),
	}
}

// Stream sends a fresh frame every PollInterval while the webcam is
// running, until ctx is done. Sends never block; a slow consumer misses
// frames.
func (w *Webcam) Stream(ctx context.Context, out chan<- []byte) {
	ticker := time.NewTicker(w.manager.GetConfig().PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.Running() {
				continue
			}
			frame := w.Frame()
			if len(frame) == 0 {
				continue
			}
			select {
			case out <- frame:
			default:
			}
		}
	}
}

// readLocked reads one frame into the buffer. With drain set it first
// discards BufferSize-1 queued frames.
func (w *Webcam) readLocked(drain bool) error {
	if drain {
		if n := w.dev.BufferSize(); n > 1 {
			for i := 0; i < n-1; i++ {
				if err := w.dev.Grab(); err != nil {
					return err
				}
			}
		}
	}

	frame, err := w.dev.ReadJPEG(w.manager.GetConfig().Quality)
	if err != nil {
		return err
	}
	w.last = frame
	w.lastAt = time.Now()
	return nil
}

// reconfigure reopens a running device with the new settings.
func (w *Webcam) reconfigure(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dev == nil {
		return nil
	}
	w.dev.Close()
	w.dev = nil

	dev, err := w.open(cfg)
	if err != nil {
		w.running = false
		return err
	}
	w.dev = dev
	w.logger.Info("camera reconfigured", "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return nil
}

var _ vision.Provider = (*Webcam)(nil)
