package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teslashibe/go-dora/pkg/vision"
	"github.com/teslashibe/go-dora/pkg/wiki"
)

// Tool names as the model sees them.
const (
	WikipediaToolName = "get_wikipedia_answer"
	VisionToolName    = "analyze_image_with_query"
)

// Fixed replies for lookup failures.
const (
	wikiNotFound     = "Sorry, I couldn't find anything about that."
	wikiBroadPrefix  = "That's a bit broad. Maybe you meant one of these: "
	wikiMaxOptions   = 3
	visionNoCamera   = "I can't see anything right now. Please start the camera and ask me again."
	visionFailed     = "Sorry, I couldn't analyze the image right now."
	missingQueryText = "Please tell me what to look up."
)

// Summarizer is the lookup used by the Wikipedia tool.
type Summarizer interface {
	Summary(ctx context.Context, query string, sentences int) (string, error)
}

// ImageAnalyzer answers questions about the current camera frame.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, query string) (string, error)
}

// WikipediaTool looks up a short summary. Its output is returned to the
// user verbatim. Lookup failures become friendly text, never errors.
func WikipediaTool(s Summarizer) Tool {
	return Tool{
		Name:         WikipediaToolName,
		Description:  "Fetch a short Wikipedia summary about a person, place, or topic.",
		Parameters:   stringParam("query", "The person, place, or topic to look up"),
		ReturnDirect: true,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query := strings.TrimSpace(argString(args, "query"))
			if query == "" {
				return missingQueryText, nil
			}
			return WikipediaAnswer(ctx, s, query), nil
		},
	}
}

// WikipediaAnswer maps a lookup to the text Dora says.
func WikipediaAnswer(ctx context.Context, s Summarizer, query string) string {
	summary, err := s.Summary(ctx, query, wiki.DefaultSentences)
	if err == nil {
		return summary
	}

	var dis *wiki.DisambiguationError
	if errors.As(err, &dis) && len(dis.Options) > 0 {
		opts := dis.Options
		if len(opts) > wikiMaxOptions {
			opts = opts[:wikiMaxOptions]
		}
		return wikiBroadPrefix + strings.Join(opts, ", ")
	}
	return wikiNotFound
}

// VisionTool answers a question about what the webcam sees.
func VisionTool(a ImageAnalyzer) Tool {
	return Tool{
		Name:        VisionToolName,
		Description: "Look through the webcam and answer a question about the current image. Use this for anything about what the user is showing, wearing, holding, or where they are.",
		Parameters:  stringParam("query", "The question to answer about the image"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query := strings.TrimSpace(argString(args, "query"))
			if query == "" {
				query = "Describe what you see."
			}
			answer, err := a.Analyze(ctx, query)
			switch {
			case errors.Is(err, vision.ErrNoFrame):
				return visionNoCamera, nil
			case err != nil:
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				return fmt.Sprintf("%s (%v)", visionFailed, err), nil
			}
			return answer, nil
		},
	}
}
