package stt_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-dora/internal/log"
	"github.com/teslashibe/go-dora/pkg/stt"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_question.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVEfake"), 0o600))
	return path
}

func TestNewGroqRequiresKey(t *testing.T) {
	_, err := stt.NewGroq()
	assert.ErrorIs(t, err, stt.ErrNoAPIKey)
}

func TestDefaults(t *testing.T) {
	cfg := stt.DefaultConfig()
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.BaseURL)
	assert.Equal(t, "whisper-large-v3", cfg.Model)
	assert.Equal(t, "en", cfg.Language)
}

func TestTranscribe(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/openai/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(file)
		assert.Equal(t, "RIFF....WAVEfake", string(data))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"  Who is Rohit Sharma?  "}`)
	}))
	defer server.Close()

	tr, err := stt.NewGroq(
		stt.WithAPIKey("groq-key"),
		stt.WithBaseURL(server.URL+"/openai/v1"),
		stt.WithLogger(log.Discard()),
	)
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "Who is Rohit Sharma?", text)
	assert.Equal(t, 1, hits)
}

func TestTranscribeAPIErrorNotRetried(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	tr, err := stt.NewGroq(stt.WithAPIKey("bad"), stt.WithBaseURL(server.URL), stt.WithLogger(log.Discard()))
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), writeAudio(t))
	var apiErr *stt.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, 1, hits)
}

func TestTranscribeMissingFile(t *testing.T) {
	tr, err := stt.NewGroq(stt.WithAPIKey("k"), stt.WithLogger(log.Discard()))
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, stt.ErrNoAudio)
}

func TestMock(t *testing.T) {
	m := stt.NewMock("hello")
	text, err := m.Transcribe(context.Background(), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, []string{"a.wav"}, m.Paths())
}
