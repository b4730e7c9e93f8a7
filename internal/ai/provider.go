package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider is the short tag identifying a completion service. It is the part
// of a "provider:model" identifier before the first colon.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderPerplexity Provider = "perplexity"
	ProviderXAI        Provider = "xai"
)

// Providers lists every known provider. A Router must hold an adapter for
// each of them.
var Providers = []Provider{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderPerplexity,
	ProviderXAI,
}

// DefaultModels is the model set offered for new prompts.
var DefaultModels = []string{
	"anthropic:claude-sonnet-4-5-20250929",
	"google:gemini-2.5-flash",
	"openai:gpt-5-mini",
	"perplexity:sonar",
	"xai:grok-4-fast-non-reasoning",
}

func (p Provider) known() bool {
	for _, k := range Providers {
		if p == k {
			return true
		}
	}
	return false
}

// ModelID is a parsed "provider:model" identifier.
type ModelID struct {
	Provider Provider
	Model    string
}

func (m ModelID) String() string {
	return string(m.Provider) + ":" + m.Model
}

// ParseModelID splits id on its first colon. It fails with
// ErrInvalidModelFormat when either side is empty and with
// ErrUnsupportedProvider when the provider tag is unknown.
func ParseModelID(id string) (ModelID, error) {
	provider, model, found := strings.Cut(id, ":")
	if !found || provider == "" || model == "" {
		return ModelID{}, fmt.Errorf("%w: %q", ErrInvalidModelFormat, id)
	}
	p := Provider(provider)
	if !p.known() {
		return ModelID{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	return ModelID{Provider: p, Model: model}, nil
}

// Adapter calls one provider's completion API and normalizes the reply.
type Adapter interface {
	// Provider returns the tag this adapter is registered under.
	Provider() Provider

	// Models lists the model names the adapter accepts.
	Models() []string

	// GetResponse asks model the prompt, replaying prior as conversation
	// history in the provider's native message shape.
	GetResponse(ctx context.Context, model, prompt string, prior []json.RawMessage) (*Response, error)
}

// Response is the normalized result of one provider call.
type Response struct {
	Content       string
	Raw           Raw
	URLs          []string
	SearchQueries []string
}

// Raw is a provider reply kept verbatim, tagged with the provider that
// produced it so follow-up reconstruction can decode it.
type Raw struct {
	Provider Provider
	Payload  json.RawMessage
}

// RawFor tags a stored payload with the provider of modelID.
func RawFor(modelID string, payload json.RawMessage) (Raw, error) {
	id, err := ParseModelID(modelID)
	if err != nil {
		return Raw{}, err
	}
	return Raw{Provider: id.Provider, Payload: payload}, nil
}
