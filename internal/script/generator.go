package script

import (
	"context"
	"fmt"

	"github.com/unipodhq/unipod/pkg/provider/llm"
)

const systemPromptTemplate = "You are writing a podcast script. Turn the " +
	"provided document into a casual conversation between two hosts named " +
	"%s and %s. The hosts alternate naturally, react to each other, and " +
	"explain ideas in plain language without jargon. Format every line of " +
	"dialogue as \"Name: text\" with no narration, stage directions, or " +
	"other text."

// Generator produces a raw dialogue script from extracted document text.
// It makes a single attempt per call; retry policy belongs to the caller.
type Generator struct {
	provider    llm.Provider
	host1       string
	host2       string
	temperature float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithTemperature sets the sampling temperature. Defaults to 0.7.
func WithTemperature(t float64) GeneratorOption {
	return func(g *Generator) {
		g.temperature = t
	}
}

// NewGenerator creates a script generator for the two host names.
func NewGenerator(provider llm.Provider, host1, host2 string, opts ...GeneratorOption) (*Generator, error) {
	if provider == nil {
		return nil, fmt.Errorf("script: llm provider is required")
	}
	if host1 == "" || host2 == "" {
		return nil, fmt.Errorf("script: both host names are required")
	}
	g := &Generator{
		provider:    provider,
		host1:       host1,
		host2:       host2,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate asks the model for a dialogue script covering text. The returned
// string is the model's raw response, persisted verbatim as the canonical
// script; parsing into lines happens separately.
func (g *Generator) Generate(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("script: document text is empty")
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, g.host1, g.host2),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("script: generate dialogue: %w", err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("script: model returned empty response")
	}
	return resp.Content, nil
}
