package advisor

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Completer abstracts the language-model completion service. The
// advisor treats its output as untrusted input; nothing it produces
// crosses the validator boundary unchecked.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// GeminiCompleter implements Completer on top of the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// NewGeminiCompleter wraps a genai client. An empty model selects
// DefaultModel.
func NewGeminiCompleter(client *genai.Client, model string) *GeminiCompleter {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiCompleter{client: client, model: model}
}

func (g *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty completion from %s", g.model)
	}
	return text, nil
}
