package tts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/teslashibe/go-dora/internal/log"
	"github.com/teslashibe/go-dora/pkg/tts"
)

func TestChainFallback(t *testing.T) {
	primary := tts.WithError(errors.New("quota exceeded"))
	primary.ProviderName = "primary"
	secondary := tts.NewMock()
	secondary.ProviderName = "secondary"

	chain, err := tts.NewChainWithLogger(log.Discard(), primary, secondary)
	if err != nil {
		t.Fatal(err)
	}

	result, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Provider != "secondary" {
		t.Errorf("provider = %q, want secondary", result.Provider)
	}
	if primary.CallCount("Synthesize") != 1 || secondary.CallCount("Synthesize") != 1 {
		t.Errorf("each provider should be tried exactly once: primary=%d secondary=%d",
			primary.CallCount("Synthesize"), secondary.CallCount("Synthesize"))
	}
}

func TestChainPrimaryWins(t *testing.T) {
	primary := tts.NewMock()
	secondary := tts.NewMock()
	chain, _ := tts.NewChainWithLogger(log.Discard(), primary, secondary)

	if _, err := chain.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if secondary.CallCount("Synthesize") != 0 {
		t.Error("secondary should not be called when primary succeeds")
	}
}

func TestChainAllFail(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	chain, _ := tts.NewChainWithLogger(log.Discard(), tts.WithError(errA), tts.WithError(errB))

	_, err := chain.Synthesize(context.Background(), "hi")
	var chainErr *tts.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %T %v", err, err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(chainErr.Errors))
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Error("ChainError should expose every provider error")
	}
}

func TestChainCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	second := tts.NewMock()
	chain, _ := tts.NewChainWithLogger(log.Discard(), tts.WithError(context.Canceled), second)
	if _, err := chain.Synthesize(ctx, "hi"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if second.CallCount("Synthesize") != 0 {
		t.Error("chain should stop once the context is done")
	}
}

func TestNewChainEmpty(t *testing.T) {
	if _, err := tts.NewChain(); !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRegistryBuild(t *testing.T) {
	fallback := tts.NewMock()
	fallback.ProviderName = "gtts"

	reg := tts.NewRegistry()
	reg.Register("elevenlabs", func() (tts.Provider, error) {
		return tts.NewElevenLabs() // no key
	})
	reg.Register("gtts", func() (tts.Provider, error) { return fallback, nil })

	chain, err := reg.Build([]string{"ElevenLabs", "bogus", " gtts "}, log.Discard())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := chain.Name(); got != "chain(elevenlabs,gtts)" {
		t.Errorf("Name() = %q", got)
	}

	result, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if result.Provider != "gtts" {
		t.Errorf("provider = %q", result.Provider)
	}
}

func TestRegistryBuildNothingUsable(t *testing.T) {
	reg := tts.NewRegistry()
	if _, err := reg.Build([]string{"nope"}, log.Discard()); !errors.Is(err, tts.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
