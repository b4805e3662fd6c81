package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker or other output device.
type Sink interface {
	// Start opens the device.
	Start(ctx context.Context) error

	// Stop closes the device. It is safe to call Stop multiple times.
	Stop() error

	// Write plays a chunk, blocking while the device buffer is full.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush waits for buffered audio to finish playing.
	Flush(ctx context.Context) error

	Config() Config

	// Name returns the backend name ("portaudio", "mock").
	Name() string

	io.Closer
}

// SinkFactory opens a sink for a given format. The Player calls it once
// per file because decoded files differ in sample rate and channel count.
type SinkFactory func(cfg Config) (Sink, error)
