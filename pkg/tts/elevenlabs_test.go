package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/teslashibe/go-dora/internal/log"
	"github.com/teslashibe/go-dora/pkg/tts"
)

func TestElevenLabsSynthesize(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/text-to-speech/ZF6FPAbjXT4488VcRRnw" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "mp3_22050_32" {
			t.Errorf("output_format = %s", got)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("xi-api-key = %s", got)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	p, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithBaseURL(server.URL),
		tts.WithLogger(log.Discard()),
	)
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Synthesize(context.Background(), "Hi, I'm Dora")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(result.Audio) != "mp3-bytes" {
		t.Errorf("audio = %q", result.Audio)
	}
	if result.Format.SampleRate != 22050 {
		t.Errorf("sample rate = %d", result.Format.SampleRate)
	}

	if gotPayload["model_id"] != "eleven_multilingual_v2" {
		t.Errorf("model_id = %v", gotPayload["model_id"])
	}
	settings, _ := gotPayload["voice_settings"].(map[string]any)
	if settings["stability"] != 1.0 || settings["similarity_boost"] != 1.0 {
		t.Errorf("voice_settings = %v", settings)
	}
}

func TestElevenLabsErrorDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer server.Close()

	p, _ := tts.NewElevenLabs(
		tts.WithAPIKey("bad"),
		tts.WithBaseURL(server.URL),
		tts.WithLogger(log.Discard()),
	)

	_, err := p.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.Code != "invalid_api_key" || apiErr.Message != "Invalid API key" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single request, got %d", hits.Load())
	}
}

func TestElevenLabsServerErrorNoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p, _ := tts.NewElevenLabs(tts.WithAPIKey("k"), tts.WithBaseURL(server.URL), tts.WithLogger(log.Discard()))
	if _, err := p.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request, got %d", hits.Load())
	}
}

func TestGoogleTranslateSynthesize(t *testing.T) {
	var chunks []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate_tts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tl") != "en" || q.Get("client") != "tw-ob" {
			t.Errorf("query = %v", q)
		}
		chunks = append(chunks, q.Get("q"))
		w.Write([]byte("[" + q.Get("idx") + "]"))
	}))
	defer server.Close()

	p, err := tts.NewGoogleTranslate(tts.WithBaseURL(server.URL), tts.WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("Dora likes long sentences. ", 6)
	result, err := p.Synthesize(context.Background(), text)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected text to be chunked, got %d chunks", len(chunks))
	}
	if !strings.HasPrefix(string(result.Audio), "[0][1]") {
		t.Errorf("audio not concatenated in order: %q", result.Audio)
	}
	if result.Provider != "gtts" {
		t.Errorf("provider = %s", result.Provider)
	}
}

func TestGoogleTranslateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	p, _ := tts.NewGoogleTranslate(tts.WithBaseURL(server.URL), tts.WithLogger(log.Discard()))
	_, err := p.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 APIError, got %v", err)
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["voice"] != "shimmer" || req["input"] != "hello" {
			t.Errorf("request = %v", req)
		}
		w.Write([]byte("openai-mp3"))
	}))
	defer server.Close()

	p, err := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(server.URL+"/v1"), tts.WithLogger(log.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(result.Audio) != "openai-mp3" {
		t.Errorf("audio = %q", result.Audio)
	}
}
