package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// Compile-time interface check.
var _ Adapter = (*XAIAdapter)(nil)

const defaultXAIBaseURL = "https://api.x.ai/v1"

var xaiModels = []string{
	"grok-4-fast-reasoning",
	"grok-4-fast-non-reasoning",
	"grok-4-0709",
	"grok-3-mini",
	"grok-3",
}

// XAIAdapter answers prompts through the xAI chat completions API with live
// search enabled.
type XAIAdapter struct {
	api *apiClient
}

// NewXAIAdapter creates an XAIAdapter.
func NewXAIAdapter(cfg ProviderConfig) *XAIAdapter {
	return &XAIAdapter{api: newAPIClient(ProviderXAI, cfg, defaultXAIBaseURL, bearerHeaders)}
}

// Provider implements Adapter.
func (a *XAIAdapter) Provider() Provider { return ProviderXAI }

// Models implements Adapter.
func (a *XAIAdapter) Models() []string { return xaiModels }

// GetResponse implements Adapter.
func (a *XAIAdapter) GetResponse(ctx context.Context, model, prompt string, prior []json.RawMessage) (*Response, error) {
	if !containsModel(xaiModels, model) {
		return nil, fmt.Errorf("%w: xai:%s", ErrUnknownModel, model)
	}

	logCall(ProviderXAI, model)
	body, err := a.api.post(ctx, "/chat/completions", chatRequest{
		Model:            model,
		Messages:         chatMessages(prior, prompt),
		SearchParameters: &searchParameters{Mode: "auto", ReturnCitations: true},
	})
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: xai: decoding reply: %v", ErrProviderRequestFailed, err)
	}

	content := resp.content()
	if content == "" {
		return nil, fmt.Errorf("%w: xai:%s", ErrEmptyResponse, model)
	}

	return &Response{
		Content:       content,
		Raw:           Raw{Provider: ProviderXAI, Payload: body},
		URLs:          dedupeURLs(resp.Citations, nil),
		SearchQueries: []string{},
	}, nil
}
