// Package inference provides a unified interface for LLM chat and vision.
//
// Chat requests carry an optional system instruction and tool declarations
// so an agent can run a function-calling loop over any provider. Gemini is
// the default backend; OpenAI-compatible endpoints are reachable through
// go-openai.
//
// Example usage:
//
//	llm, _ := inference.NewGemini(
//	    inference.WithAPIKey(os.Getenv("GOOGLE_API_KEY")),
//	)
//	defer llm.Close()
//
//	resp, _ := llm.Chat(ctx, &inference.ChatRequest{
//	    System:   "You are Dora.",
//	    Messages: []inference.Message{inference.NewUserMessage("Hello!")},
//	})
//
//	seen, _ := llm.Vision(ctx, &inference.VisionRequest{
//	    Image:  frame,
//	    Prompt: "What do you see?",
//	})
package inference

import (
	"context"
	"image"
)

// Provider is the unified inference interface for chat and vision.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Chat generates a response from a sequence of messages.
	// When req.Tools is set the response may carry ToolCalls instead of text.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Vision analyzes an image with a text prompt.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Capabilities returns what features this provider supports.
	Capabilities() Capabilities

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Capabilities describes what features a provider supports.
type Capabilities struct {
	Chat   bool // Supports chat completions
	Vision bool // Supports image input
	Tools  bool // Supports function/tool calling
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// System is the system instruction (persona).
	System string

	// Messages is the conversation history.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0). Zero uses the provider default.
	Temperature float64

	// Tools available for the model to call.
	Tools []Tool
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// HasToolCalls reports whether the model asked for tool invocations.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.Message.ToolCalls) > 0
}

// VisionRequest for image analysis.
type VisionRequest struct {
	// Image to analyze.
	Image image.Image

	// JPEG is an already-encoded frame. Used when Image is nil.
	JPEG []byte

	// Prompt describing what to analyze or ask about the image.
	Prompt string

	// Model overrides the default vision model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// VisionResponse from image analysis.
type VisionResponse struct {
	// Content is the natural language response.
	Content string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for analysis.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
