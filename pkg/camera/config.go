// Package camera owns the local webcam: a runtime-configurable capture
// device that keeps only the most recent frame.
package camera

import "time"

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// DeviceID is the OS camera index (0 is the default webcam).
	DeviceID int `json:"device_id" yaml:"device_id"`

	// === Resolution ===
	Width     int `json:"width" yaml:"width"`         // Frame width in pixels
	Height    int `json:"height" yaml:"height"`       // Frame height in pixels
	Framerate int `json:"framerate" yaml:"framerate"` // Target FPS
	Quality   int `json:"quality" yaml:"quality"`     // JPEG quality 1-100

	// BufferSize is the driver frame queue length. 1 keeps the preview live.
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`

	// PollInterval is how often the preview pushes a frame.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// Limits accepted by Validate.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
	MaxBuffer    = 10
)

// DefaultConfig returns 640x480 at 30 fps with a single-frame buffer.
func DefaultConfig() Config {
	return Config{
		DeviceID:     0,
		Width:        640,
		Height:       480,
		Framerate:    30,
		Quality:      85,
		BufferSize:   1,
		PollInterval: 33 * time.Millisecond,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must not be negative")
	}
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.BufferSize < 1 || c.BufferSize > MaxBuffer {
		errors = append(errors, "buffer_size must be between 1 and 10")
	}
	if c.PollInterval < 5*time.Millisecond || c.PollInterval > 5*time.Second {
		errors = append(errors, "poll_interval must be between 5ms and 5s")
	}

	return errors
}
