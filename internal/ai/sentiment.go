package ai

import (
	"context"
	"fmt"
	"strings"
)

const defaultSentimentModel = "gpt-4.1-nano"

// SentimentAnalyzer extracts per-brand sentiment with an OpenAI structured
// output call.
type SentimentAnalyzer struct {
	api   *apiClient
	model string
}

// NewSentimentAnalyzer creates a SentimentAnalyzer. An empty model uses
// gpt-4.1-nano.
func NewSentimentAnalyzer(cfg ProviderConfig, model string) *SentimentAnalyzer {
	if model == "" {
		model = defaultSentimentModel
	}
	return &SentimentAnalyzer{
		api:   newAPIClient(ProviderOpenAI, cfg, defaultOpenAIBaseURL, bearerHeaders),
		model: model,
	}
}

// AnalyzeBrandSentiment returns the brands text mentions with the sentiment
// expressed toward each. Brands that are not mentioned are omitted. No call
// is made when brands or text is empty.
func (s *SentimentAnalyzer) AnalyzeBrandSentiment(ctx context.Context, brands []string, text string) ([]BrandMention, error) {
	if len(brands) == 0 || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	system, user := BrandSentimentPrompt(brands, text)

	var out struct {
		Sentiments []BrandMention `json:"sentiments"`
	}
	if err := structuredChat(ctx, s.api, s.model, system, user, "brandSentiment", brandSentimentSchema, &out); err != nil {
		return nil, fmt.Errorf("analyzing brand sentiment: %w", err)
	}

	return filterMentions(out.Sentiments, brands, text), nil
}

// filterMentions keeps mentions of requested brands that actually occur in
// text with a valid label. Brand names are canonicalized to the requested
// spelling and duplicate pairs are dropped.
func filterMentions(mentions []BrandMention, brands []string, text string) []BrandMention {
	canonical := make(map[string]string, len(brands))
	for _, b := range brands {
		canonical[strings.ToLower(strings.TrimSpace(b))] = b
	}
	lowerText := strings.ToLower(text)

	seen := make(map[BrandMention]bool)
	var out []BrandMention
	for _, m := range mentions {
		brand, ok := canonical[strings.ToLower(strings.TrimSpace(m.Brand))]
		if !ok || !strings.Contains(lowerText, strings.ToLower(brand)) {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(m.Sentiment))
		if !validSentiment(label) {
			continue
		}
		pair := BrandMention{Brand: brand, Sentiment: label}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, pair)
	}
	return out
}

func validSentiment(label string) bool {
	switch label {
	case "positive", "neutral", "negative":
		return true
	}
	return false
}
