package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/teslashibe/go-dora/internal/httpc"
)

const (
	googleTranslateBaseURL  = "https://translate.google.com"
	providerGoogleTranslate = "gtts"

	// Google rejects longer fragments.
	googleTranslateMaxChunk = 100
)

// GoogleTranslate speaks through the public Google Translate voice.
// It needs no credential, which makes it the last resort in Dora's chain.
type GoogleTranslate struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewGoogleTranslate creates the keyless fallback provider.
// Only Language, BaseURL, HTTPClient, Timeout and Logger are honored.
func NewGoogleTranslate(opts ...Option) (*GoogleTranslate, error) {
	cfg := DefaultConfig()
	cfg.OutputFormat = EncodingMP3_24
	cfg.Apply(opts...)

	if cfg.Language == "" {
		cfg.Language = "en"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleTranslateBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &GoogleTranslate{
		config:  cfg,
		client:  client,
		logger:  cfg.Logger.With("component", "tts.gtts"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Name implements Provider.
func (g *GoogleTranslate) Name() string { return providerGoogleTranslate }

// Synthesize splits text into short fragments, fetches each one and
// concatenates the MP3 streams.
func (g *GoogleTranslate) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	chunks := SplitText(text, googleTranslateMaxChunk)
	if len(chunks) == 0 {
		return nil, WrapError(providerGoogleTranslate, ErrEmptyText)
	}
	start := time.Now()

	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := g.fetch(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}
	if audio.Len() == 0 {
		return nil, WrapError(providerGoogleTranslate, ErrEmptyAudio)
	}

	latency := since(start)
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"chunks", len(chunks),
		"bytes", audio.Len(),
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio: audio.Bytes(),
		Format: AudioFormat{
			Encoding:   EncodingMP3_24,
			SampleRate: 24000,
			Channels:   1,
		},
		Provider:  providerGoogleTranslate,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

func (g *GoogleTranslate) fetch(ctx context.Context, chunk string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.config.Language)
	q.Set("q", chunk)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, WrapError(providerGoogleTranslate, err)
	}
	req.Header.Set("User-Agent", httpc.UserAgent)
	req.Header.Set("Referer", "http://translate.google.com/")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, WrapError(providerGoogleTranslate, fmt.Errorf("request chunk %d: %w", idx, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerGoogleTranslate, fmt.Errorf("read chunk %d: %w", idx, err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
			Provider:   providerGoogleTranslate,
		}
	}
	return data, nil
}

// Health makes a one-word request.
func (g *GoogleTranslate) Health(ctx context.Context) error {
	_, err := g.fetch(ctx, "ok", 0, 1)
	return err
}

// Close releases idle connections.
func (g *GoogleTranslate) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// SplitText breaks text into fragments of at most max runes, preferring
// sentence ends, then commas, then spaces. Words longer than max are cut.
func SplitText(text string, max int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || max <= 0 {
		return nil
	}

	var out []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= max {
			out = appendTrimmed(out, string(runes))
			break
		}
		cut := max
		if !unicode.IsSpace(runes[max]) {
			cut = lastBreak(runes[:max])
		}
		if cut <= 0 {
			cut = max
		}
		out = appendTrimmed(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	return out
}

// lastBreak returns the index just past the best split point in r.
func lastBreak(r []rune) int {
	for _, set := range []string{".!?;:", ","} {
		for i := len(r) - 1; i > 0; i-- {
			if strings.ContainsRune(set, r[i]) {
				return i + 1
			}
		}
	}
	for i := len(r) - 1; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return 0
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

var _ Provider = (*GoogleTranslate)(nil)
