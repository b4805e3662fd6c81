package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-dora/internal/log"
	"github.com/teslashibe/go-dora/pkg/audioio"
	"github.com/teslashibe/go-dora/pkg/stt"
)

func repeat(c audioio.AudioChunk, n int) []audioio.AudioChunk {
	out := make([]audioio.AudioChunk, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func testSource(script ...[]audioio.AudioChunk) (*audioio.MockSource, audioio.Config) {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.BackendMock
	var all []audioio.AudioChunk
	for _, s := range script {
		all = append(all, s...)
	}
	return audioio.NewMockSource(cfg, log.Discard(), audioio.WithScript(all...)), cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500.0, cfg.EnergyThreshold)
	assert.Equal(t, 1500*time.Millisecond, cfg.CalibrationDuration)
	assert.Equal(t, 800*time.Millisecond, cfg.PauseThreshold)
	assert.Equal(t, 8*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.PhraseTimeLimit)

	bad := cfg
	bad.NonSpeakingDuration = time.Second
	assert.Error(t, bad.Validate())
}

func TestValidateCalibrationWithStaticThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DynamicThreshold = false
	require.NoError(t, cfg.Validate())

	noDamping := cfg
	noDamping.DynamicDamping = 0
	assert.Error(t, noDamping.Validate(), "calibration would collapse the threshold to zero")

	noRatio := cfg
	noRatio.DynamicRatio = 0
	assert.Error(t, noRatio.Validate())

	_, err := NewRecorder(audioio.NewMockSource(audioio.DefaultConfig(), log.Discard()), noRatio, log.Discard())
	assert.Error(t, err)
}

func TestRecordPhraseEndsOnPause(t *testing.T) {
	src, acfg := testSource()
	quiet := audioio.ToneChunk(acfg, 50)
	loud := audioio.ToneChunk(acfg, 3000)
	// 1.5s calibration, 0.5s quiet, 1s speech, then silence forever.
	src.Script(repeat(quiet, 30)...)
	src.Script(repeat(quiet, 10)...)
	src.Script(repeat(loud, 20)...)

	rec, err := NewRecorder(src, DefaultConfig(), log.Discard())
	require.NoError(t, err)

	u, err := rec.Record(context.Background())
	require.NoError(t, err)

	// Lead-in (~0.5s) + speech (1s) + at most 0.5s trailing silence.
	d := u.Duration()
	assert.GreaterOrEqual(t, d, 1500*time.Millisecond, "duration %v", d)
	assert.LessOrEqual(t, d, 2100*time.Millisecond, "duration %v", d)
	assert.Equal(t, 16000, u.SampleRate)
	assert.Less(t, rec.Threshold(), 500.0, "calibration should lower the threshold in a quiet room")
}

func TestRecordTimeout(t *testing.T) {
	src, _ := testSource()
	rec, err := NewRecorder(src, DefaultConfig(), log.Discard())
	require.NoError(t, err)

	_, err = rec.Record(context.Background())
	assert.ErrorIs(t, err, ErrWaitTimeout)
	// 1.5s calibration + a bit over 8s wait at 50ms per chunk.
	assert.InDelta(t, 30+161, src.Reads(), 2)
}

func TestRecordPhraseTimeLimit(t *testing.T) {
	src, acfg := testSource()
	loud := audioio.ToneChunk(acfg, 3000)
	src.Script(repeat(loud, 400)...) // 20s of nonstop speech

	cfg := DefaultConfig()
	cfg.CalibrationDuration = 0
	cfg.DynamicThreshold = false
	rec, err := NewRecorder(src, cfg, log.Discard())
	require.NoError(t, err)

	u, err := rec.Record(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, u.Duration().Seconds(), 0.11)
}

func TestRecordCancelled(t *testing.T) {
	src, _ := testSource()
	rec, err := NewRecorder(src, DefaultConfig(), log.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rec.Record(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeRecording struct {
	u   *Utterance
	err error
}

func (f fakeRecording) Record(ctx context.Context) (*Utterance, error) { return f.u, f.err }

func TestListener(t *testing.T) {
	speech := &Utterance{Samples: make([]int16, 1600), SampleRate: 16000}

	tests := []struct {
		name    string
		rec     fakeRecording
		stt     *stt.Mock
		want    string
		outcome Outcome
	}{
		{"text", fakeRecording{u: speech}, stt.NewMock("hello dora"), "hello dora", OutcomeText},
		{"timeout", fakeRecording{err: ErrWaitTimeout}, stt.NewMock("x"), "", OutcomeTimeout},
		{"unintelligible", fakeRecording{u: speech}, stt.NewMock(""), "", OutcomeUnintelligible},
		{"capture error", fakeRecording{err: errors.New("device gone")}, stt.NewMock("x"), "", OutcomeError},
		{"transcription error", fakeRecording{u: speech}, &stt.Mock{TranscribeFunc: func(ctx context.Context, path string) (string, error) {
			return "", errors.New("503")
		}}, "", OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "audio_question.wav")
			l := NewListener(tt.rec, tt.stt, path, log.Discard())
			var got Outcome = -1
			l.OnOutcome = func(o Outcome, _ time.Duration) { got = o }

			text, err := l.Listen(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
			assert.Equal(t, tt.outcome, got)
		})
	}
}

func TestListenerWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio_question.wav")
	mock := stt.NewMock("ok")
	l := NewListener(fakeRecording{u: &Utterance{Samples: []int16{1, 2, 3}, SampleRate: 16000}}, mock, path, log.Discard())

	_, err := l.Listen(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, []string{path}, mock.Paths())
}

func TestListenerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewListener(fakeRecording{err: context.Canceled}, stt.NewMock(""), filepath.Join(t.TempDir(), "a.wav"), log.Discard())
	_, err := l.Listen(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
