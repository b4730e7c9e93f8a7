package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// Router dispatches "provider:model" identifiers to registered adapters.
type Router struct {
	adapters map[Provider]Adapter
}

// NewRouter registers adapters by their provider tag. Every provider in
// Providers must have exactly one adapter.
func NewRouter(adapters ...Adapter) (*Router, error) {
	r := &Router{adapters: make(map[Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		p := a.Provider()
		if !p.known() {
			return nil, fmt.Errorf("registering adapter: %w: %q", ErrUnsupportedProvider, p)
		}
		if _, dup := r.adapters[p]; dup {
			return nil, fmt.Errorf("registering adapter: duplicate adapter for %q", p)
		}
		r.adapters[p] = a
	}
	for _, p := range Providers {
		if _, ok := r.adapters[p]; !ok {
			return nil, fmt.Errorf("registering adapter: no adapter for %q", p)
		}
	}
	return r, nil
}

// NewDefaultRouter builds a Router over the HTTP adapters of every provider.
// Providers missing from configs get an adapter with no credentials, whose
// calls fail with ErrProviderRequestFailed.
func NewDefaultRouter(configs map[Provider]ProviderConfig) *Router {
	r, err := NewRouter(
		NewOpenAIAdapter(configs[ProviderOpenAI]),
		NewAnthropicAdapter(configs[ProviderAnthropic]),
		NewGoogleAdapter(configs[ProviderGoogle]),
		NewPerplexityAdapter(configs[ProviderPerplexity]),
		NewXAIAdapter(configs[ProviderXAI]),
	)
	if err != nil {
		panic(err) // the adapter list above covers Providers
	}
	return r
}

// ValidateModel checks that modelID parses and names a model its adapter
// offers.
func (r *Router) ValidateModel(modelID string) (ModelID, error) {
	id, err := ParseModelID(modelID)
	if err != nil {
		return ModelID{}, err
	}
	if !containsModel(r.adapters[id.Provider].Models(), id.Model) {
		return ModelID{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return id, nil
}

// GetResponse asks modelID the prompt, replaying prior as history.
func (r *Router) GetResponse(ctx context.Context, prompt, modelID string, prior []json.RawMessage) (*Response, error) {
	id, err := ParseModelID(modelID)
	if err != nil {
		return nil, err
	}
	return r.adapters[id.Provider].GetResponse(ctx, id.Model, prompt, prior)
}

// Catalog lists the models of every provider in Providers order.
func (r *Router) Catalog() []ProviderModels {
	out := make([]ProviderModels, 0, len(Providers))
	for _, p := range Providers {
		out = append(out, ProviderModels{Provider: p, Models: r.adapters[p].Models()})
	}
	return out
}
