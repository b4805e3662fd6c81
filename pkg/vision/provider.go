// Package vision answers questions about what the camera currently sees.
package vision

import "errors"

// ErrNoFrame is returned when no camera frame is available, usually
// because the camera has not been started.
var ErrNoFrame = errors.New("vision: no camera frame available")

// Provider interface for camera access.
type Provider interface {
	CaptureFrame() ([]byte, error) // Returns JPEG image data
}

// FrameFunc adapts a function to Provider.
type FrameFunc func() ([]byte, error)

// CaptureFrame calls f.
func (f FrameFunc) CaptureFrame() ([]byte, error) { return f() }

// Static returns a Provider that always yields frame.
func Static(frame []byte) Provider {
	return FrameFunc(func() ([]byte, error) {
		if len(frame) == 0 {
			return nil, ErrNoFrame
		}
		return frame, nil
	})
}
