package ai

import "time"

// ProviderConfig holds what an adapter needs to reach its provider.
type ProviderConfig struct {
	APIKey string
	// BaseURL overrides the provider's public endpoint. Empty uses the default.
	BaseURL string
	Timeout time.Duration
}

// ProviderModels is one provider's entry in the model catalogue.
type ProviderModels struct {
	Provider Provider `json:"provider"`
	Models   []string `json:"models"`
}

// BrandMention is one brand and the sentiment a text expresses toward it.
type BrandMention struct {
	Brand     string `json:"brand"`
	Sentiment string `json:"sentiment"`
}
