package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultOutputPath is where synthesized speech is written before playback.
// It is relative to the working directory and overwritten every turn.
const DefaultOutputPath = "final.mp3"

// Player plays an audio file to completion.
type Player interface {
	PlayFile(ctx context.Context, path string) error
}

// Speaker turns reply text into audible speech: synthesize through the
// provider (usually a Chain), write the file, play it once.
type Speaker struct {
	provider Provider
	player   Player
	logger   *slog.Logger
}

// NewSpeaker creates a Speaker. A nil logger uses slog.Default.
func NewSpeaker(provider Provider, player Player, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		provider: provider,
		player:   player,
		logger:   logger.With("component", "tts.speaker"),
	}
}

// SpeakResult describes what Say did.
type SpeakResult struct {
	Provider string
	Path     string
	Played   bool
}

// Say synthesizes text to path (DefaultOutputPath when empty) and plays it,
// blocking until playback ends.
//
// When every provider fails the error is logged and swallowed: the result
// has Played=false and err is nil. Errors writing or playing the file are
// returned.
func (s *Speaker) Say(ctx context.Context, text, path string) (SpeakResult, error) {
	if path == "" {
		path = DefaultOutputPath
	}
	res := SpeakResult{Path: path}

	audio, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		s.logger.Error("speech synthesis failed, staying silent", "error", err)
		return res, nil
	}
	res.Provider = audio.Provider

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, audio.Audio, 0o644); err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info("speaking", "provider", audio.Provider, "bytes", len(audio.Audio), "path", path)
	if s.player == nil {
		return res, nil
	}
	if err := s.player.PlayFile(ctx, path); err != nil {
		return res, fmt.Errorf("play %s: %w", path, err)
	}
	res.Played = true
	return res, nil
}

// Provider returns the underlying provider.
func (s *Speaker) Provider() Provider {
	return s.provider
}
