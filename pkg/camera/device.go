package camera

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned when the capture device cannot be opened.
var ErrUnavailable = errors.New("camera: device unavailable")

// ErrReadFailed is returned when the device produced no frame.
var ErrReadFailed = errors.New("camera: frame read failed")

// Device is an open capture device.
type Device interface {
	// Grab reads and discards one frame.
	Grab() error

	// ReadJPEG reads the next frame encoded as JPEG.
	ReadJPEG(quality int) ([]byte, error)

	// BufferSize reports the driver's frame queue length.
	BufferSize() int

	Close() error
}

// Opener opens a device configured by cfg.
type Opener func(cfg Config) (Device, error)

// FakeDevice replays canned JPEG frames. Frames cycle when exhausted.
type FakeDevice struct {
	mu     sync.Mutex
	frames [][]byte
	next   int
	buffer int
	grabs  int
	reads  int
	closed bool

	// ReadErr, when set, is returned by ReadJPEG.
	ReadErr error

	// Quality records the last requested JPEG quality.
	Quality int
}

// NewFakeDevice returns a device serving frames in order.
func NewFakeDevice(buffer int, frames ...[]byte) *FakeDevice {
	return &FakeDevice{frames: frames, buffer: buffer}
}

// Opener returns an Opener that always yields d.
func (d *FakeDevice) Opener() Opener {
	return func(cfg Config) (Device, error) {
		d.mu.Lock()
		d.closed = false
		d.mu.Unlock()
		return d, nil
	}
}

func (d *FakeDevice) advance() []byte {
	if len(d.frames) == 0 {
		return nil
	}
	f := d.frames[d.next%len(d.frames)]
	d.next++
	return f
}

// Grab discards one frame.
func (d *FakeDevice) Grab() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grabs++
	d.advance()
	return nil
}

// ReadJPEG returns the next canned frame.
func (d *FakeDevice) ReadJPEG(quality int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	d.Quality = quality
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	f := d.advance()
	if f == nil {
		return nil, ErrReadFailed
	}
	return f, nil
}

// BufferSize returns the configured queue length.
func (d *FakeDevice) BufferSize() int { return d.buffer }

// Close marks the device closed.
func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Stats returns grab and read counts and whether the device is closed.
func (d *FakeDevice) Stats() (grabs, reads int, closed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grabs, d.reads, d.closed
}
