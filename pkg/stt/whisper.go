package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const providerWhisper = "whisper"

// Whisper transcribes through an OpenAI-compatible audio endpoint.
// Requests are not retried.
type Whisper struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewGroq creates a Whisper transcriber pointed at Groq.
func NewGroq(opts ...Option) (*Whisper, error) {
	return NewWhisper(opts...)
}

// NewWhisper creates a transcriber. Without WithBaseURL it talks to Groq.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = cfg.httpClient()

	return &Whisper{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe uploads the file at path and returns the trimmed transcript.
func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", WrapError(providerWhisper, fmt.Errorf("%w: %s", ErrNoAudio, path))
	}
	start := time.Now()

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.config.Model,
		FilePath: path,
		Language: w.config.Language,
		Prompt:   w.config.Prompt,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", convertError(err)
	}

	text := strings.TrimSpace(resp.Text)
	w.logger.Debug("transcribed",
		"model", w.config.Model,
		"bytes", info.Size(),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Model returns the configured model name.
func (w *Whisper) Model() string { return w.config.Model }

func convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Provider: providerWhisper}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Provider: providerWhisper}
	}
	return WrapError(providerWhisper, err)
}

var _ Transcriber = (*Whisper)(nil)
