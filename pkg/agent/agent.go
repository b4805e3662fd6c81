// Package agent runs Dora's reasoning step: a chat model with a small set
// of tools, driven through a bounded function-calling loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-dora/pkg/inference"
)

// DefaultMaxSteps bounds model round trips per question.
const DefaultMaxSteps = 5

var (
	// ErrEmptyQuestion is returned for blank input.
	ErrEmptyQuestion = errors.New("agent: empty question")

	// ErrMaxSteps is returned when the model keeps calling tools past the limit.
	ErrMaxSteps = errors.New("agent: step limit reached")
)

// Agent answers a question with a chat model and tools.
type Agent struct {
	llm      inference.Provider
	persona  string
	tools    []Tool
	byName   map[string]Tool
	maxSteps int
	logger   *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithTools registers tools. Later tools replace earlier ones of the same name.
func WithTools(tools ...Tool) Option {
	return func(a *Agent) { a.tools = append(a.tools, tools...) }
}

// WithPersona overrides DoraPersona.
func WithPersona(p string) Option {
	return func(a *Agent) { a.persona = p }
}

// WithMaxSteps sets the round trip limit.
func WithMaxSteps(n int) Option {
	return func(a *Agent) { a.maxSteps = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New creates an agent on llm.
func New(llm inference.Provider, opts ...Option) *Agent {
	a := &Agent{
		llm:      llm,
		persona:  DoraPersona,
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxSteps <= 0 {
		a.maxSteps = DefaultMaxSteps
	}

	a.byName = make(map[string]Tool, len(a.tools))
	deduped := a.tools[:0]
	for _, t := range a.tools {
		if _, dup := a.byName[t.Name]; dup {
			for i := range deduped {
				if deduped[i].Name == t.Name {
					deduped[i] = t
				}
			}
		} else {
			deduped = append(deduped, t)
		}
		a.byName[t.Name] = t
	}
	a.tools = deduped
	a.logger = a.logger.With("component", "agent")
	return a
}

// Tools returns the registered tool names in order.
func (a *Agent) Tools() []string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name
	}
	return names
}

// Ask sends [persona, question] to the model and resolves tool calls
// until the model answers in text or a ReturnDirect tool produces the
// reply. Each question starts from a fresh context.
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	defs := make([]inference.Tool, len(a.tools))
	for i, t := range a.tools {
		defs[i] = t.definition()
	}

	start := time.Now()
	messages := []inference.Message{inference.NewUserMessage(question)}

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.llm.Chat(ctx, &inference.ChatRequest{
			System:   a.persona,
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			return "", fmt.Errorf("agent: %w", err)
		}

		if !resp.HasToolCalls() {
			a.logger.Debug("answered",
				"steps", step+1,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return resp.Message.Content, nil
		}

		messages = append(messages, inference.NewToolCallMessage(resp.Message.Content, resp.Message.ToolCalls...))

		for _, call := range resp.Message.ToolCalls {
			out, direct := a.invoke(ctx, call)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if direct {
				a.logger.Debug("answered directly by tool",
					"tool", call.Name,
					"steps", step+1,
					"latency_ms", time.Since(start).Milliseconds(),
				)
				return out, nil
			}
			messages = append(messages, inference.NewToolMessage(call, out))
		}
	}

	return "", fmt.Errorf("%w (%d)", ErrMaxSteps, a.maxSteps)
}

// invoke runs one tool call. Failures are reported back to the model as
// the tool's output.
func (a *Agent) invoke(ctx context.Context, call inference.ToolCall) (string, bool) {
	tool, ok := a.byName[call.Name]
	if !ok {
		a.logger.Warn("unknown tool requested", "tool", call.Name)
		return fmt.Sprintf("Error: unknown tool %q", call.Name), false
	}

	args, err := call.Args()
	if err != nil {
		a.logger.Warn("bad tool arguments", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %v", err), false
	}

	a.logger.Info("tool call", "tool", call.Name, "args", call.Arguments)
	out, err := tool.Handler(ctx, args)
	if err != nil {
		a.logger.Warn("tool failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %v", err), false
	}
	return out, tool.ReturnDirect
}
