package inference

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
)

// JPEGQuality is used when a raw image has to be encoded for upload.
const JPEGQuality = 85

// EncodeJPEG encodes an image as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeImageBase64 encodes an image to base64 JPEG format.
func EncodeImageBase64(img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64Image decodes a base64 string to an image.
func DecodeBase64Image(b64 string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// jpegBase64 returns the request frame as base64 JPEG, preferring
// already-encoded bytes.
func (r *VisionRequest) jpegBase64() (string, error) {
	switch {
	case len(r.JPEG) > 0:
		return base64.StdEncoding.EncodeToString(r.JPEG), nil
	case r.Image != nil:
		return EncodeImageBase64(r.Image)
	default:
		return "", ErrNoImage
	}
}
