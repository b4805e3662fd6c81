package audioio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// Player decodes audio files and plays them through a Sink, blocking
// until playback completes.
type Player struct {
	open   SinkFactory
	base   Config
	logger *slog.Logger
}

// NewPlayer creates a player that opens sinks from cfg's backend.
func NewPlayer(cfg Config, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return NewPlayerWithSinks(DefaultSinkFactory(cfg, logger), cfg, logger)
}

// NewPlayerWithSinks creates a player with a custom sink factory.
func NewPlayerWithSinks(open SinkFactory, cfg Config, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		open:   open,
		base:   cfg,
		logger: logger.With("component", "audioio.player"),
	}
}

// PlayFile decodes the MP3 or WAV file at path and plays it to the end.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	clip, err := Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	p.logger.Debug("playing file", "path", path, "duration", clip.Duration(), "sample_rate", clip.SampleRate)
	return p.Play(ctx, clip)
}

// Play writes clip to a freshly opened sink in buffer-sized pieces.
func (p *Player) Play(ctx context.Context, clip AudioChunk) error {
	if len(clip.Samples) == 0 {
		return nil
	}

	cfg := p.base
	cfg.SampleRate = clip.SampleRate
	cfg.Channels = clip.Channels
	sink, err := p.open(cfg)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer sink.Close()

	if err := sink.Start(ctx); err != nil {
		return fmt.Errorf("start sink: %w", err)
	}

	step := cfg.BufferSize() * clip.Channels
	for off := 0; off < len(clip.Samples); off += step {
		end := min(off+step, len(clip.Samples))
		piece := AudioChunk{
			Samples:    clip.Samples[off:end],
			SampleRate: clip.SampleRate,
			Channels:   clip.Channels,
		}
		if err := sink.Write(ctx, piece); err != nil {
			return err
		}
	}
	return sink.Flush(ctx)
}

// Decode sniffs the stream and decodes WAV or MP3 into PCM16.
func Decode(r io.Reader) (AudioChunk, error) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(4)
	if bytes.Equal(magic, []byte("RIFF")) {
		return DecodeWAV(br)
	}
	return DecodeMP3(br)
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (AudioChunk, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return AudioChunk{}, fmt.Errorf("mp3: %w", err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return AudioChunk{}, fmt.Errorf("mp3: %w", err)
	}
	return AudioChunk{
		Samples:    BytesToSamples(data),
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}
