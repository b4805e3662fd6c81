package capture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-dora/pkg/audioio"
)

// Utterance is one captured phrase as mono PCM16.
type Utterance struct {
	Samples    []int16
	SampleRate int

	// Threshold is the energy level the phrase was detected against.
	Threshold float64
}

// Duration returns the length of the utterance.
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(u.Samples)) / float64(u.SampleRate) * float64(time.Second))
}

// WAV encodes the utterance as a 16-bit mono WAV file.
func (u *Utterance) WAV() ([]byte, error) {
	var buf bytes.Buffer
	err := audioio.EncodeWAV(&buf, audioio.AudioChunk{
		Samples:    u.Samples,
		SampleRate: u.SampleRate,
		Channels:   1,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the utterance as WAV to path, replacing any existing file.
func (u *Utterance) Save(path string) error {
	data, err := u.WAV()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func newUtterance(chunks []audioio.AudioChunk, rate int, threshold float64) *Utterance {
	var samples []int16
	srcRate := rate
	for _, c := range chunks {
		samples = append(samples, audioio.ToMono(c.Samples, c.Channels)...)
		if c.SampleRate > 0 {
			srcRate = c.SampleRate
		}
	}
	return &Utterance{
		Samples:    audioio.Resample(samples, srcRate, rate),
		SampleRate: rate,
		Threshold:  threshold,
	}
}
