// Package session holds the state shared by the voice loop and the web
// surface: the speaking guard and the conversation transcript.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Source says how a turn entered the conversation.
type Source string

const (
	SourceLoop  Source = "loop"  // background voice loop
	SourceVoice Source = "voice" // Speak button
	SourceText  Source = "text"  // typed message
)

// Turn is one user message and Dora's reply.
type Turn struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Source    Source    `json:"source"`
	At        time.Time `json:"at"`
}

// Session is created once per process and passed to every component
// that needs the speaking flag or the transcript.
type Session struct {
	ID string

	// speakers counts replies currently playing.
	speakers atomic.Int32

	mu    sync.RWMutex
	turns []Turn
}

// New creates an empty session.
func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Speaking reports whether any audio playback is in progress.
func (s *Session) Speaking() bool {
	return s.speakers.Load() > 0
}

// SpeakScope marks the session as speaking and returns the function that
// releases it. Scopes nest: the session stays speaking until the last one
// is released. Callers defer the release so it runs on every path:
//
//	done := s.SpeakScope()
//	defer done()
func (s *Session) SpeakScope() func() {
	s.speakers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { s.speakers.Add(-1) })
	}
}

// Append records a turn and returns it with ID and timestamp filled in.
func (s *Session) Append(user, assistant string, src Source) Turn {
	t := Turn{
		ID:        uuid.NewString(),
		User:      user,
		Assistant: assistant,
		Source:    src,
		At:        time.Now(),
	}
	s.mu.Lock()
	s.turns = append(s.turns, t)
	s.mu.Unlock()
	return t
}

// Turns returns a copy of the transcript in order.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Clear empties the transcript. The speaking flag is untouched.
func (s *Session) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}
