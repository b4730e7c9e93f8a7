package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// Compile-time interface check.
var _ Adapter = (*PerplexityAdapter)(nil)

const defaultPerplexityBaseURL = "https://api.perplexity.ai"

var perplexityModels = []string{
	"sonar",
	"sonar-pro",
	"sonar-reasoning",
	"sonar-reasoning-pro",
}

// PerplexityAdapter answers prompts through Perplexity's chat completions
// API. Perplexity searches on every request and reports no queries.
type PerplexityAdapter struct {
	api *apiClient
}

// NewPerplexityAdapter creates a PerplexityAdapter.
func NewPerplexityAdapter(cfg ProviderConfig) *PerplexityAdapter {
	return &PerplexityAdapter{api: newAPIClient(ProviderPerplexity, cfg, defaultPerplexityBaseURL, bearerHeaders)}
}

// Provider implements Adapter.
func (a *PerplexityAdapter) Provider() Provider { return ProviderPerplexity }

// Models implements Adapter.
func (a *PerplexityAdapter) Models() []string { return perplexityModels }

// GetResponse implements Adapter.
func (a *PerplexityAdapter) GetResponse(ctx context.Context, model, prompt string, prior []json.RawMessage) (*Response, error) {
	if !containsModel(perplexityModels, model) {
		return nil, fmt.Errorf("%w: perplexity:%s", ErrUnknownModel, model)
	}

	logCall(ProviderPerplexity, model)
	body, err := a.api.post(ctx, "/chat/completions", chatRequest{
		Model:    model,
		Messages: chatMessages(prior, prompt),
	})
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: perplexity: decoding reply: %v", ErrProviderRequestFailed, err)
	}

	content := resp.content()
	if content == "" {
		return nil, fmt.Errorf("%w: perplexity:%s", ErrEmptyResponse, model)
	}

	urls := make([]string, 0, len(resp.SearchResults)+len(resp.Citations))
	for _, r := range resp.SearchResults {
		urls = append(urls, r.URL)
	}
	urls = append(urls, resp.Citations...)

	return &Response{
		Content:       content,
		Raw:           Raw{Provider: ProviderPerplexity, Payload: body},
		URLs:          dedupeURLs(urls, nil),
		SearchQueries: []string{},
	}, nil
}
