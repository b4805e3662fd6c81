// Package stt turns recorded audio files into text.
//
// The production backend is Whisper served by Groq's OpenAI-compatible
// API, driven through the go-openai client:
//
//	t, err := stt.NewGroq(stt.WithAPIKey(os.Getenv("GROQ_API_KEY")))
//	text, err := t.Transcribe(ctx, "audio_question.wav")
package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-dora/internal/httpc"
)

// Transcriber converts the audio file at path to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

const (
	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"

	// ModelWhisperLargeV3 is the model Dora transcribes with.
	ModelWhisperLargeV3 = "whisper-large-v3"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrNoAudio is returned when the file does not exist or is empty.
	ErrNoAudio = errors.New("stt: no audio to transcribe")
)

// APIError represents an error response from a transcription API.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stt [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsUnauthorized returns true for HTTP 401.
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Config holds transcription settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string
	Prompt     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

// WithModel sets the model name.
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithLanguage sets the ISO-639-1 language hint.
func WithLanguage(lang string) Option { return func(c *Config) { c.Language = lang } }

// WithPrompt biases recognition toward the given vocabulary.
func WithPrompt(prompt string) Option { return func(c *Config) { c.Prompt = prompt } }

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option { return func(c *Config) { c.HTTPClient = client } }

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option { return func(c *Config) { c.Logger = logger } }

// DefaultConfig returns Groq Whisper large v3 in English.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  GroqBaseURL,
		Model:    ModelWhisperLargeV3,
		Language: "en",
		Timeout:  60 * time.Second,
		Logger:   slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httpc.NewClient(c.Timeout)
}
