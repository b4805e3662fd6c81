//go:build !nogocv

package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// gocvDevice wraps an OpenCV VideoCapture.
type gocvDevice struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenGoCV opens the webcam at cfg.DeviceID and applies resolution,
// frame rate and buffer size.
func OpenGoCV(cfg Config) (Device, error) {
	capture, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrUnavailable, cfg.DeviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	capture.Set(gocv.VideoCaptureBufferSize, float64(cfg.BufferSize))

	return &gocvDevice{capture: capture, mat: gocv.NewMat()}, nil
}

func (d *gocvDevice) Grab() error {
	if !d.capture.Read(&d.mat) {
		return ErrReadFailed
	}
	return nil
}

func (d *gocvDevice) ReadJPEG(quality int) ([]byte, error) {
	if ok := d.capture.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, ErrReadFailed
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, d.mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (d *gocvDevice) BufferSize() int {
	return int(d.capture.Get(gocv.VideoCaptureBufferSize))
}

func (d *gocvDevice) Close() error {
	d.mat.Close()
	return d.capture.Close()
}

// DefaultOpener opens the system webcam through OpenCV.
var DefaultOpener Opener = OpenGoCV
