package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-dora/pkg/audioio"
)

var (
	// ErrWaitTimeout means no speech started within Config.Timeout.
	ErrWaitTimeout = errors.New("capture: listening timed out while waiting for phrase to start")

	// ErrSourceClosed means the microphone stopped before a phrase ended.
	ErrSourceClosed = errors.New("capture: audio source closed")
)

// Recorder captures utterances from an audio source. It is not safe for
// concurrent use; callers serialize Record calls.
type Recorder struct {
	src    audioio.Source
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	threshold float64
}

// NewRecorder creates a recorder reading from src.
func NewRecorder(src audioio.Source, cfg Config, logger *slog.Logger) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		src:       src,
		cfg:       cfg,
		logger:    logger.With("component", "capture.recorder"),
		threshold: cfg.EnergyThreshold,
	}, nil
}

// Threshold returns the current energy threshold.
func (r *Recorder) Threshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Record opens the microphone, calibrates against ambient noise, and
// captures one phrase. The microphone is closed before Record returns.
func (r *Recorder) Record(ctx context.Context) (*Utterance, error) {
	if err := r.src.Start(ctx); err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	defer r.src.Stop()

	if r.cfg.CalibrationDuration > 0 {
		if err := r.calibrate(ctx, r.cfg.CalibrationDuration); err != nil {
			return nil, err
		}
	}
	return r.listen(ctx)
}

// calibrate adjusts the threshold toward the ambient level over d.
func (r *Recorder) calibrate(ctx context.Context, d time.Duration) error {
	var elapsed time.Duration
	for elapsed < d {
		chunk, err := r.read(ctx)
		if err != nil {
			return err
		}
		elapsed += chunk.Duration()
		r.adjust(chunk)
	}
	r.logger.Debug("calibrated for ambient noise", "threshold", math.Round(r.Threshold()))
	return nil
}

// adjust blends the threshold toward ambient energy times DynamicRatio.
func (r *Recorder) adjust(chunk audioio.AudioChunk) {
	secs := chunk.Duration().Seconds()
	damping := math.Pow(r.cfg.DynamicDamping, secs)
	target := chunk.Energy() * r.cfg.DynamicRatio

	r.mu.Lock()
	r.threshold = r.threshold*damping + target*(1-damping)
	r.mu.Unlock()
}

func (r *Recorder) listen(ctx context.Context) (*Utterance, error) {
	threshold := r.Threshold()

	// Wait for speech, keeping NonSpeakingDuration of audio as lead-in.
	var (
		lead    []audioio.AudioChunk
		leadDur time.Duration
		waited  time.Duration
		first   audioio.AudioChunk
	)
	for {
		if r.cfg.Timeout > 0 && waited > r.cfg.Timeout {
			return nil, ErrWaitTimeout
		}
		chunk, err := r.read(ctx)
		if err != nil {
			return nil, err
		}
		d := chunk.Duration()
		waited += d

		if chunk.Energy() > threshold {
			first = chunk
			break
		}

		lead = append(lead, chunk)
		leadDur += d
		for len(lead) > 0 && leadDur-lead[0].Duration() >= r.cfg.NonSpeakingDuration {
			leadDur -= lead[0].Duration()
			lead = lead[1:]
		}

		if r.cfg.DynamicThreshold {
			r.adjust(chunk)
			threshold = r.Threshold()
		}
	}

	// Record until PauseThreshold of silence or PhraseTimeLimit.
	frames := append(lead, first)
	phrase := first.Duration()
	var pause time.Duration
	var quiet int
	for {
		if r.cfg.PhraseTimeLimit > 0 && phrase > r.cfg.PhraseTimeLimit {
			break
		}
		chunk, err := r.read(ctx)
		if errors.Is(err, ErrSourceClosed) {
			break
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, chunk)
		phrase += chunk.Duration()

		if chunk.Energy() > threshold {
			pause, quiet = 0, 0
		} else {
			pause += chunk.Duration()
			quiet++
		}
		if pause > r.cfg.PauseThreshold {
			break
		}
	}

	// Keep only NonSpeakingDuration of the trailing silence.
	for quiet > 0 && len(frames) > 1 {
		var tail time.Duration
		for _, c := range frames[len(frames)-quiet:] {
			tail += c.Duration()
		}
		if tail-frames[len(frames)-1].Duration() < r.cfg.NonSpeakingDuration {
			break
		}
		frames = frames[:len(frames)-1]
		quiet--
	}

	u := newUtterance(frames, r.cfg.SampleRate, threshold)
	r.logger.Debug("phrase captured",
		"duration", u.Duration().Round(time.Millisecond),
		"threshold", math.Round(threshold),
	)
	return u, nil
}

func (r *Recorder) read(ctx context.Context) (audioio.AudioChunk, error) {
	chunk, err := r.src.Read(ctx)
	if errors.Is(err, io.EOF) {
		return chunk, ErrSourceClosed
	}
	if err != nil {
		return chunk, fmt.Errorf("read microphone: %w", err)
	}
	return chunk, nil
}
