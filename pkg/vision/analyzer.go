package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-dora/pkg/inference"
)

// DefaultPrompt frames the user's question for the vision model.
const DefaultPrompt = "You are looking through the user's webcam. Answer the question about the image concisely and in a friendly tone.\n\nQuestion: %s"

// Analyzer grabs the latest frame and asks a vision model about it.
type Analyzer struct {
	frames Provider
	llm    inference.Provider
	prompt string
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer. prompt may be empty for DefaultPrompt;
// otherwise it must contain one %s for the question.
func NewAnalyzer(frames Provider, llm inference.Provider, prompt string, logger *slog.Logger) *Analyzer {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		frames: frames,
		llm:    llm,
		prompt: prompt,
		logger: logger.With("component", "vision.analyzer"),
	}
}

// Analyze answers query about the current frame.
func (a *Analyzer) Analyze(ctx context.Context, query string) (string, error) {
	if a.frames == nil {
		return "", ErrNoFrame
	}
	frame, err := a.frames.CaptureFrame()
	if err != nil {
		return "", fmt.Errorf("capture frame: %w", err)
	}
	if len(frame) == 0 {
		return "", ErrNoFrame
	}

	start := time.Now()
	resp, err := a.llm.Vision(ctx, &inference.VisionRequest{
		JPEG:   frame,
		Prompt: fmt.Sprintf(a.prompt, strings.TrimSpace(query)),
	})
	if err != nil {
		return "", err
	}

	a.logger.Debug("frame analyzed",
		"bytes", len(frame),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(resp.Content), nil
}
