package ai

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultGeneratorModel = "gpt-4.1-mini"
	maxGeneratedPrompts   = 10
)

// PromptGenerator drafts monitoring prompts from a topic description.
type PromptGenerator struct {
	api   *apiClient
	model string
}

// NewPromptGenerator creates a PromptGenerator. An empty model uses
// gpt-4.1-mini.
func NewPromptGenerator(cfg ProviderConfig, model string) *PromptGenerator {
	if model == "" {
		model = defaultGeneratorModel
	}
	return &PromptGenerator{
		api:   newAPIClient(ProviderOpenAI, cfg, defaultOpenAIBaseURL, bearerHeaders),
		model: model,
	}
}

// GeneratePrompts returns at most ten non-blank prompts for input.
func (g *PromptGenerator) GeneratePrompts(ctx context.Context, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return []string{}, nil
	}

	system, user := PromptGeneratorPrompt(input, maxGeneratedPrompts)

	var out struct {
		Prompts []string `json:"prompts"`
	}
	if err := structuredChat(ctx, g.api, g.model, system, user, "promptResponse", promptListSchema, &out); err != nil {
		return nil, fmt.Errorf("generating prompts: %w", err)
	}

	prompts := make([]string, 0, len(out.Prompts))
	for _, p := range out.Prompts {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
		if len(prompts) == maxGeneratedPrompts {
			break
		}
	}
	return prompts, nil
}
