package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-dora/pkg/agent"
	"github.com/teslashibe/go-dora/pkg/inference"
	"github.com/teslashibe/go-dora/pkg/vision"
	"github.com/teslashibe/go-dora/pkg/wiki"
)

type fakeWiki struct {
	summary string
	err     error
	queries []string
}

func (f *fakeWiki) Summary(ctx context.Context, query string, sentences int) (string, error) {
	f.queries = append(f.queries, query)
	if sentences != 2 {
		return "", errors.New("unexpected sentence count")
	}
	return f.summary, f.err
}

type fakeAnalyzer struct {
	answer string
	err    error
}

func (f fakeAnalyzer) Analyze(ctx context.Context, query string) (string, error) {
	return f.answer, f.err
}

func call(name, args string) inference.ToolCall {
	return inference.ToolCall{ID: name + "-1", Name: name, Arguments: args}
}

func TestAskPlainAnswer(t *testing.T) {
	llm := inference.NewScriptedMock(inference.NewAssistantMessage("Hi! I'm Dora."))
	a := agent.New(llm, agent.WithTools(agent.WikipediaTool(&fakeWiki{})))

	got, err := a.Ask(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "Hi! I'm Dora.", got)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, agent.DoraPersona, reqs[0].System)
	require.Len(t, reqs[0].Messages, 1)
	assert.Equal(t, inference.RoleUser, reqs[0].Messages[0].Role)
	assert.Equal(t, "Hello there", reqs[0].Messages[0].Content)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, agent.WikipediaToolName, reqs[0].Tools[0].Function.Name)
}

func TestAskWikipediaReturnsDirect(t *testing.T) {
	summary := "Rohit Gurunath Sharma is an Indian international cricketer. He captains the national team."
	w := &fakeWiki{summary: summary}
	llm := inference.NewScriptedMock(
		inference.NewToolCallMessage("", call(agent.WikipediaToolName, `{"query":"Rohit Sharma"}`)),
		inference.NewAssistantMessage("should not be reached"),
	)
	a := agent.New(llm, agent.WithTools(agent.WikipediaTool(w)))

	got, err := a.Ask(context.Background(), "Who is Rohit Sharma?")
	require.NoError(t, err)
	assert.Equal(t, summary, got)
	assert.Equal(t, []string{"Rohit Sharma"}, w.queries)
	assert.Equal(t, 1, llm.CallCount("Chat"))
}

func TestAskWikipediaUnreachable(t *testing.T) {
	w := &fakeWiki{err: errors.New("dial tcp: no route to host")}
	llm := inference.NewScriptedMock(
		inference.NewToolCallMessage("", call(agent.WikipediaToolName, `{"query":"Rohit Sharma"}`)),
	)
	a := agent.New(llm, agent.WithTools(agent.WikipediaTool(w)))

	got, err := a.Ask(context.Background(), "Who is Rohit Sharma?")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't find anything about that.", got)
}

func TestWikipediaAnswerDisambiguation(t *testing.T) {
	w := &fakeWiki{err: &wiki.DisambiguationError{
		Title:   "Mercury",
		Options: []string{"Mercury (planet)", "Mercury (element)", "Mercury (mythology)", "Freddie Mercury"},
	}}

	got := agent.WikipediaAnswer(context.Background(), w, "Mercury")
	assert.Equal(t, "That's a bit broad. Maybe you meant one of these: Mercury (planet), Mercury (element), Mercury (mythology)", got)

	w.err = &wiki.DisambiguationError{Title: "X", Options: []string{"X1"}}
	got = agent.WikipediaAnswer(context.Background(), w, "X")
	assert.Equal(t, "That's a bit broad. Maybe you meant one of these: X1", got)
}

func TestAskVisionToolFeedsBack(t *testing.T) {
	llm := inference.NewScriptedMock(
		inference.NewToolCallMessage("", call(agent.VisionToolName, `{"query":"what am I holding?"}`)),
		inference.NewAssistantMessage("Looks like you're holding a coffee mug!"),
	)
	a := agent.New(llm, agent.WithTools(agent.VisionTool(fakeAnalyzer{answer: "A white coffee mug."})))

	got, err := a.Ask(context.Background(), "What am I holding?")
	require.NoError(t, err)
	assert.Equal(t, "Looks like you're holding a coffee mug!", got)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, inference.RoleAssistant, msgs[1].Role)
	assert.Equal(t, inference.RoleTool, msgs[2].Role)
	assert.Equal(t, "A white coffee mug.", msgs[2].Content)
	assert.Equal(t, agent.VisionToolName, msgs[2].Name)
}

func TestVisionToolCameraOff(t *testing.T) {
	tool := agent.VisionTool(fakeAnalyzer{err: vision.ErrNoFrame})
	out, err := tool.Handler(context.Background(), map[string]any{"query": "what is this?"})
	require.NoError(t, err)
	assert.Contains(t, out, "start the camera")

	tool = agent.VisionTool(fakeAnalyzer{err: errors.New("quota")})
	out, err = tool.Handler(context.Background(), map[string]any{"query": "what is this?"})
	require.NoError(t, err)
	assert.Contains(t, out, "couldn't analyze")
}

func TestAskUnknownToolIsReported(t *testing.T) {
	llm := inference.NewScriptedMock(
		inference.NewToolCallMessage("", call("launch_rocket", `{}`)),
		inference.NewAssistantMessage("I can't do that."),
	)
	a := agent.New(llm)

	got, err := a.Ask(context.Background(), "Launch it")
	require.NoError(t, err)
	assert.Equal(t, "I can't do that.", got)

	msgs := llm.Requests()[1].Messages
	assert.Contains(t, msgs[len(msgs)-1].Content, "unknown tool")
}

func TestAskStepLimit(t *testing.T) {
	llm := inference.NewScriptedMock(
		inference.NewToolCallMessage("", call(agent.VisionToolName, `{"query":"again"}`)),
	)
	a := agent.New(llm,
		agent.WithTools(agent.VisionTool(fakeAnalyzer{answer: "a cat"})),
		agent.WithMaxSteps(3),
	)

	_, err := a.Ask(context.Background(), "Keep looking")
	assert.ErrorIs(t, err, agent.ErrMaxSteps)
	assert.Equal(t, 3, llm.CallCount("Chat"))
}

func TestAskModelError(t *testing.T) {
	boom := errors.New("gemini down")
	a := agent.New(inference.WithError(boom))

	_, err := a.Ask(context.Background(), "Hello")
	assert.ErrorIs(t, err, boom)
}

func TestAskEmptyQuestion(t *testing.T) {
	llm := inference.NewMock()
	a := agent.New(llm)

	_, err := a.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, agent.ErrEmptyQuestion)
	assert.Zero(t, llm.CallCount("Chat"))
}

func TestToolsDeduplicated(t *testing.T) {
	first := agent.WikipediaTool(&fakeWiki{summary: "first"})
	second := agent.WikipediaTool(&fakeWiki{summary: "second"})
	a := agent.New(inference.NewMock(), agent.WithTools(first, agent.VisionTool(fakeAnalyzer{}), second))

	assert.Equal(t, []string{agent.WikipediaToolName, agent.VisionToolName}, a.Tools())
}
