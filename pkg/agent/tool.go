package agent

import (
	"context"

	"github.com/teslashibe/go-dora/pkg/inference"
)

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON Schema object describing the arguments.
	Parameters map[string]any

	// ReturnDirect makes the tool's output the final reply, skipping the
	// model's rephrasing step.
	ReturnDirect bool

	Handler func(ctx context.Context, args map[string]any) (string, error)
}

func (t Tool) definition() inference.Tool {
	return inference.NewTool(t.Name, t.Description, t.Parameters)
}

// stringParam builds a single-string-argument schema.
func stringParam(name, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			name: map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{name},
	}
}

// argString returns args[name] as a string, or "".
func argString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
