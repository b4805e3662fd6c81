// Package assistant drives Dora's turns: the background voice loop and
// the handlers behind the web UI's Send, Speak and Clear controls.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-dora/pkg/session"
	"github.com/teslashibe/go-dora/pkg/tts"
)

// DefaultTurnPause is the rest between completed loop turns.
const DefaultTurnPause = time.Second

// idlePause is slept when a pass recorded nothing.
const idlePause = 100 * time.Millisecond

// exitPhrase ends the voice loop when heard anywhere in the user's words.
const exitPhrase = "goodbye"

// ErrNotRunning is returned by Step once the loop has exited.
var ErrNotRunning = errors.New("assistant: loop has exited")

// errSpeaking stops a capture that would record Dora's own voice.
var errSpeaking = errors.New("assistant: speaking, capture skipped")

// Listener captures one spoken utterance and returns its text, or "" when
// nothing usable was heard.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Asker produces Dora's reply to a question.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Speaker says a reply out loud.
type Speaker interface {
	Say(ctx context.Context, text, path string) (tts.SpeakResult, error)
}

// Loop owns the turn state machine. One Loop serves both the background
// voice loop and the UI handlers; they share the session.
type Loop struct {
	listener Listener
	agent    Asker
	speaker  Speaker
	session  *session.Session
	logger   *slog.Logger

	// SpeechPath is where replies are synthesized. Empty uses tts.DefaultOutputPath.
	SpeechPath string

	// TurnPause is slept after each completed loop turn.
	TurnPause time.Duration

	// OnState is called on every state change of the voice loop.
	OnState func(from, to State)

	// OnTurn is called with every recorded turn, from the loop or the UI.
	OnTurn func(session.Turn)

	mic sync.Mutex

	mu    sync.Mutex
	state State
}

// New creates an idle loop. A nil session gets a fresh one.
func New(l Listener, a Asker, s Speaker, sess *session.Session, logger *slog.Logger) *Loop {
	if sess == nil {
		sess = session.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		listener:  l,
		agent:     a,
		speaker:   s,
		session:   sess,
		logger:    logger.With("component", "assistant.loop"),
		TurnPause: DefaultTurnPause,
	}
}

// Session returns the shared session.
func (l *Loop) Session() *session.Session { return l.session }

// State returns the current loop state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Enter moves the loop to state to. Moves the transition table does not
// allow are logged and ignored, as are moves out of Exit.
func (l *Loop) Enter(to State) {
	l.mu.Lock()
	from := l.state
	if from == to {
		l.mu.Unlock()
		return
	}
	if !CanTransition(from, to) {
		l.mu.Unlock()
		l.logger.Warn("ignored state change", "from", from, "to", to)
		return
	}
	l.state = to
	l.mu.Unlock()

	l.logger.Debug("state", "from", from, "to", to)
	if l.OnState != nil {
		l.OnState(from, to)
	}
}

// IsGoodbye reports whether text asks Dora to stop.
func IsGoodbye(text string) bool {
	return strings.Contains(strings.ToLower(text), exitPhrase)
}

// Step runs one pass of the voice loop and returns the state it ended in:
// Idle when the turn finished or nothing was heard, Exit on goodbye, agent
// failure or cancellation.
//
// While the session is speaking Step returns Idle without touching the
// microphone.
func (l *Loop) Step(ctx context.Context) (State, error) {
	if l.State() == Exit {
		return Exit, ErrNotRunning
	}
	if l.session.Speaking() {
		return Idle, nil
	}

	l.Enter(Listening)
	text, err := l.listen(ctx)
	if errors.Is(err, errSpeaking) {
		l.Enter(Idle)
		return Idle, nil
	}
	if err != nil {
		l.Enter(Exit)
		return Exit, err
	}
	l.Enter(Transcribing)

	text = strings.TrimSpace(text)
	if text == "" {
		l.Enter(Idle)
		return Idle, nil
	}
	if IsGoodbye(text) {
		l.logger.Info("goodbye detected, ending conversation")
		l.Enter(Exit)
		return Exit, nil
	}

	l.Enter(AgentThinking)
	reply, err := l.agent.Ask(ctx, text)
	if err != nil {
		l.Enter(Exit)
		return Exit, fmt.Errorf("ask agent: %w", err)
	}
	l.logger.Info("dora replied", "reply", reply)

	l.Enter(Speaking)
	l.speak(ctx, reply)
	l.record(text, reply, session.SourceLoop)

	if ctx.Err() != nil {
		l.Enter(Exit)
		return Exit, ctx.Err()
	}
	l.Enter(Idle)
	return Idle, nil
}

// Run loops Step until goodbye, a fatal error or ctx is done. It returns
// nil on goodbye.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("voice loop started", "session", l.session.ID)
	for {
		before := l.session.Len()
		state, err := l.Step(ctx)
		if state == Exit {
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("voice loop stopped", "error", err)
			} else {
				l.logger.Info("voice loop stopped")
			}
			return err
		}

		pause := l.TurnPause
		if l.session.Len() == before {
			// Nothing heard, or a UI reply is playing.
			pause = idlePause
		}
		select {
		case <-ctx.Done():
			l.Enter(Exit)
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

// HandleText answers a typed message: agent, speech, transcript. Blank
// messages are ignored and return (nil, nil).
func (l *Loop) HandleText(ctx context.Context, msg string) (*session.Turn, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return nil, nil
	}
	return l.respond(ctx, msg, session.SourceText)
}

// HandleVoice listens once and answers what it heard. It returns (nil, nil)
// when nothing usable was heard.
func (l *Loop) HandleVoice(ctx context.Context) (*session.Turn, error) {
	text, err := l.listen(ctx)
	if errors.Is(err, errSpeaking) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return l.respond(ctx, text, session.SourceVoice)
}

// Clear empties the transcript.
func (l *Loop) Clear() {
	l.session.Clear()
	l.logger.Info("transcript cleared")
}

func (l *Loop) respond(ctx context.Context, question string, src session.Source) (*session.Turn, error) {
	reply, err := l.agent.Ask(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("ask agent: %w", err)
	}
	l.speak(ctx, reply)
	t := l.record(question, reply, src)
	return &t, nil
}

// listen serializes microphone use between the loop and the Speak button.
// It refuses to capture while any reply is playing; the check runs after
// the mic is acquired since another caller may have started speaking while
// this one waited.
func (l *Loop) listen(ctx context.Context) (string, error) {
	l.mic.Lock()
	defer l.mic.Unlock()
	if l.session.Speaking() {
		l.logger.Debug("skipping capture while speaking")
		return "", errSpeaking
	}
	return l.listener.Listen(ctx)
}

// speak plays reply with the speaking flag held. Failures are logged; the
// reply still lands in the transcript.
func (l *Loop) speak(ctx context.Context, reply string) {
	done := l.session.SpeakScope()
	defer done()

	if l.speaker == nil {
		return
	}
	res, err := l.speaker.Say(ctx, reply, l.SpeechPath)
	if err != nil {
		l.logger.Warn("speaking failed", "error", err)
		return
	}
	if !res.Played {
		l.logger.Debug("reply not played", "path", res.Path)
	}
}

func (l *Loop) record(user, reply string, src session.Source) session.Turn {
	t := l.session.Append(user, reply, src)
	if l.OnTurn != nil {
		l.OnTurn(t)
	}
	return t
}
