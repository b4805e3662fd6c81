package stt

import (
	"context"
	"sync"
)

// Mock implements Transcriber for testing.
type Mock struct {
	// TranscribeFunc is called by Transcribe. If nil, Text is returned.
	TranscribeFunc func(ctx context.Context, path string) (string, error)

	// Text is returned when TranscribeFunc is nil.
	Text string

	mu    sync.Mutex
	paths []string
}

// NewMock returns a mock that always transcribes to text.
func NewMock(text string) *Mock {
	return &Mock{Text: text}
}

// Transcribe records the path and returns the scripted result.
func (m *Mock) Transcribe(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, path)
	}
	return m.Text, nil
}

// Paths returns every path passed to Transcribe.
func (m *Mock) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

var _ Transcriber = (*Mock)(nil)
