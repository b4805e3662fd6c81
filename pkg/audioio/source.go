package audioio

import (
	"context"
	"io"
	"math"
	"time"
)

// AudioChunk is a block of interleaved PCM16 samples. It also carries
// whole decoded files on their way to a Sink.
type AudioChunk struct {
	// Samples contains interleaved PCM16 samples.
	Samples []int16

	SampleRate int
	Channels   int
}

// Bytes returns the samples as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = BytesToSamples(data)
}

// Frames returns the number of sample frames (samples per channel).
func (c *AudioChunk) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback length of the chunk.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.Frames()) / float64(c.SampleRate) * float64(time.Second))
}

// Energy returns the root mean square of the samples in raw sample units
// (0 to 32767). Speech thresholds such as 300 or 500 are expressed in
// this unit.
func (c *AudioChunk) Energy() float64 {
	return Energy(c.Samples)
}

// Energy returns the RMS of samples in raw sample units.
func Energy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Source captures audio from a microphone or other input device.
type Source interface {
	// Start opens the device. Reads are valid until Stop.
	Start(ctx context.Context) error

	// Stop closes the device. It is safe to call Stop multiple times.
	Stop() error

	// Read blocks for the next chunk. Returns io.EOF once stopped.
	Read(ctx context.Context) (AudioChunk, error)

	Config() Config

	// Name returns the backend name ("portaudio", "mock").
	Name() string

	io.Closer
}
