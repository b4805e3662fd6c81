//go:build nogocv

package camera

import "fmt"

// OpenGoCV is unavailable in builds without OpenCV.
func OpenGoCV(cfg Config) (Device, error) {
	return nil, fmt.Errorf("%w: built with nogocv", ErrUnavailable)
}

// DefaultOpener opens the system webcam through OpenCV.
var DefaultOpener Opener = OpenGoCV
