package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-dora/pkg/stt"
)

// Outcome classifies a Listen call for logs and UI status.
type Outcome int

const (
	OutcomeText Outcome = iota
	OutcomeTimeout
	OutcomeUnintelligible
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeText:
		return "text"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnintelligible:
		return "unintelligible"
	default:
		return "error"
	}
}

// Recording is the capture half of a Listener.
type Recording interface {
	Record(ctx context.Context) (*Utterance, error)
}

// Listener records one utterance, saves it and transcribes it.
type Listener struct {
	rec    Recording
	stt    stt.Transcriber
	path   string
	logger *slog.Logger

	// OnOutcome, if set, is called once per Listen.
	OnOutcome func(Outcome, time.Duration)
}

// NewListener creates a Listener that writes each utterance to path
// (DefaultConfig().OutputPath when empty) before transcribing it.
func NewListener(rec Recording, t stt.Transcriber, path string, logger *slog.Logger) *Listener {
	if path == "" {
		path = DefaultConfig().OutputPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		rec:    rec,
		stt:    t,
		path:   path,
		logger: logger.With("component", "capture.listener"),
	}
}

// Listen blocks for one utterance and returns its text.
//
// Timeouts, unintelligible speech and capture or transcription errors are
// logged and yield ("", nil). Only context cancellation is returned as an
// error.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	start := time.Now()
	text, outcome, err := l.listen(ctx)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	switch outcome {
	case OutcomeTimeout:
		l.logger.Info("no speech detected before timeout")
	case OutcomeUnintelligible:
		l.logger.Info("could not understand the audio")
	case OutcomeError:
		l.logger.Warn("speech recognition error", "error", err)
	default:
		l.logger.Info("heard", "text", text)
	}
	if l.OnOutcome != nil {
		l.OnOutcome(outcome, time.Since(start))
	}
	return text, nil
}

func (l *Listener) listen(ctx context.Context) (string, Outcome, error) {
	u, err := l.rec.Record(ctx)
	if errors.Is(err, ErrWaitTimeout) {
		return "", OutcomeTimeout, err
	}
	if err != nil {
		return "", OutcomeError, err
	}
	if len(u.Samples) == 0 {
		return "", OutcomeUnintelligible, nil
	}

	if err := u.Save(l.path); err != nil {
		return "", OutcomeError, err
	}

	text, err := l.stt.Transcribe(ctx, l.path)
	if err != nil {
		return "", OutcomeError, err
	}
	if text == "" {
		return "", OutcomeUnintelligible, nil
	}
	return text, OutcomeText, nil
}

// Path returns where utterances are written.
func (l *Listener) Path() string { return l.path }
