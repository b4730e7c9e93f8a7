package ai

import (
	"fmt"
	"strings"
)

const brandSentimentSystemPrompt = `You are an expert in brand sentiment analysis. Given a list of customers and some text, return a list of the brands that were mentioned in the text along with the sentiment expressed towards each brand. The sentiment should be one of the following: positive, neutral, or negative. If a brand is not mentioned in the text, then do not include it in the response. If none of the brands are mentioned, then return an empty list.`

const promptGeneratorSystemPrompt = `You write search prompts for monitoring how AI assistants answer questions about a market. For the given input, your response should be at most %d generated prompts. Each prompt must be a natural question a user could ask an AI assistant. Return ONLY valid JSON matching the schema.`

// BrandSentimentPrompt builds the system and user prompts for brand
// sentiment extraction.
func BrandSentimentPrompt(brands []string, text string) (systemPrompt string, userPrompt string) {
	var b strings.Builder
	b.WriteString("Brands: ")
	b.WriteString(strings.Join(brands, ", "))
	b.WriteString("\n\nText:\n\n")
	b.WriteString(strings.TrimSpace(text))
	return brandSentimentSystemPrompt, b.String()
}

// PromptGeneratorPrompt builds the system and user prompts for generating
// up to maxPrompts monitoring prompts from a topic description.
func PromptGeneratorPrompt(input string, maxPrompts int) (systemPrompt string, userPrompt string) {
	return fmt.Sprintf(promptGeneratorSystemPrompt, maxPrompts), strings.TrimSpace(input)
}

var brandSentimentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sentiments": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"brand": map[string]any{"type": "string"},
					"sentiment": map[string]any{
						"type": "string",
						"enum": []string{"positive", "neutral", "negative"},
					},
				},
				"required":             []string{"brand", "sentiment"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"sentiments"},
	"additionalProperties": false,
}

var promptListSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"prompts": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"prompts"},
	"additionalProperties": false,
}

// extractJSON strips markdown code fences from a string that may contain
// JSON wrapped in ```json ... ``` or ``` ... ``` blocks.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}
