package inference

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	return g
}

func TestGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestGeminiChatWithTools(t *testing.T) {
	var captured geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.0-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected key query param, got %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("Decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"functionCall": {"name": "get_wikipedia_answer", "args": {"query": "Mars"}}}
				]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 3, "totalTokenCount": 15}
		}`))
	})

	resp, err := g.Chat(context.Background(), &ChatRequest{
		System:   "You are Dora.",
		Messages: []Message{NewUserMessage("Tell me about Mars")},
		Tools: []Tool{NewTool("get_wikipedia_answer", "Wikipedia", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
		})},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "You are Dora." {
		t.Errorf("Expected system instruction, got %+v", captured.SystemInstruction)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].FunctionDeclarations[0].Name != "get_wikipedia_answer" {
		t.Errorf("Expected function declaration, got %+v", captured.Tools)
	}
	if captured.GenerationConfig.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %f", captured.GenerationConfig.Temperature)
	}

	if !resp.HasToolCalls() {
		t.Fatal("Expected a tool call")
	}
	call := resp.Message.ToolCalls[0]
	if call.Name != "get_wikipedia_answer" || call.ID == "" {
		t.Errorf("Unexpected call %+v", call)
	}
	args, _ := call.Args()
	if args["query"] != "Mars" {
		t.Errorf("Expected query Mars, got %v", args)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestGeminiChatText(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there!"}]},"finishReason":"STOP"}]}`))
	})

	resp, err := g.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Hello there!" {
		t.Errorf("Unexpected content %q", resp.Message.Content)
	}
	if resp.HasToolCalls() {
		t.Error("Expected no tool calls")
	}
}

func TestGeminiAPIError(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := g.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if !apiErr.IsRateLimited() || apiErr.Message != "quota exceeded" || apiErr.Code != "RESOURCE_EXHAUSTED" {
		t.Errorf("Unexpected error %+v", apiErr)
	}
}

func TestGeminiEmptyCandidates(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := g.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiVision(t *testing.T) {
	var captured geminiRequest
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"A red square."}]}}]}`))
	})

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	resp, err := g.Vision(context.Background(), &VisionRequest{Image: img, Prompt: "What is this?"})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	if resp.Content != "A red square." {
		t.Errorf("Unexpected content %q", resp.Content)
	}

	parts := captured.Contents[0].Parts
	if len(parts) != 2 || parts[0].Text != "What is this?" {
		t.Fatalf("Unexpected parts %+v", parts)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/jpeg" || parts[1].InlineData.Data == "" {
		t.Errorf("Expected inline JPEG, got %+v", parts[1].InlineData)
	}
}

func TestGeminiVisionWithoutImage(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected")
	})

	_, err := g.Vision(context.Background(), &VisionRequest{Prompt: "?"})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("Expected ErrNoImage, got %v", err)
	}
}

func TestConvertGeminiMessages(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "get_wikipedia_answer", Arguments: `{"query":"Mars"}`}
	msgs := []Message{
		NewSystemMessage("extra rules"),
		NewUserMessage("Tell me about Mars"),
		NewToolCallMessage("", call),
		NewToolMessage(call, "Mars is the fourth planet."),
	}

	system, contents, err := convertGeminiMessages("persona", msgs)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if system != "persona\n\nextra rules" {
		t.Errorf("Unexpected system %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}

	roles := []string{contents[0].Role, contents[1].Role, contents[2].Role}
	if roles[0] != "user" || roles[1] != "model" || roles[2] != "user" {
		t.Errorf("Unexpected roles %v", roles)
	}

	fc := contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "get_wikipedia_answer" || fc.Args["query"] != "Mars" {
		t.Errorf("Unexpected function call %+v", fc)
	}

	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "get_wikipedia_answer" || fr.Response["content"] != "Mars is the fourth planet." {
		t.Errorf("Unexpected function response %+v", fr)
	}
}

func TestConvertGeminiMessagesMergesRoles(t *testing.T) {
	_, contents, err := convertGeminiMessages("", []Message{
		NewUserMessage("one"),
		NewUserMessage("two"),
	})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if len(contents) != 1 || len(contents[0].Parts) != 2 {
		t.Errorf("Expected merged user turn, got %+v", contents)
	}
}
