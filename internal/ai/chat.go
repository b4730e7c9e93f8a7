package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// chatMessage is an OpenAI-compatible chat message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string            `json:"model"`
	Messages         []json.RawMessage `json:"messages"`
	ResponseFormat   *responseFormat   `json:"response_format,omitempty"`
	SearchParameters *searchParameters `json:"search_parameters,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// searchParameters enables xAI live search.
type searchParameters struct {
	Mode            string `json:"mode"`
	ReturnCitations bool   `json:"return_citations"`
}

// chatResponse covers the chat completion replies of OpenAI, Perplexity and
// xAI. Citations and SearchResults are only set by the search providers.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		URL string `json:"url"`
	} `json:"search_results"`
}

func (r *chatResponse) content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// chatMessages appends a user message to prior history.
func chatMessages(prior []json.RawMessage, prompt string) []json.RawMessage {
	messages := make([]json.RawMessage, 0, len(prior)+1)
	messages = append(messages, prior...)
	return append(messages, mustMarshal(chatMessage{Role: "user", Content: prompt}))
}

// structuredChat runs a system+user chat completion constrained to schema and
// decodes the reply into out.
func structuredChat(ctx context.Context, api *apiClient, model, system, user, schemaName string, schema map[string]any, out any) error {
	logCall(api.provider, model)
	body, err := api.post(ctx, "/chat/completions", chatRequest{
		Model: model,
		Messages: []json.RawMessage{
			mustMarshal(chatMessage{Role: "system", Content: system}),
			mustMarshal(chatMessage{Role: "user", Content: user}),
		},
		ResponseFormat: &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: schemaName, Strict: true, Schema: schema},
		},
	})
	if err != nil {
		return err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decoding %s reply: %v", ErrProviderRequestFailed, schemaName, err)
	}

	text := resp.content()
	if text == "" {
		if len(resp.Choices) > 0 && resp.Choices[0].Message.Refusal != "" {
			return fmt.Errorf("%w: %s refused: %s", ErrEmptyResponse, schemaName, resp.Choices[0].Message.Refusal)
		}
		return fmt.Errorf("%w: %s", ErrEmptyResponse, schemaName)
	}

	if err := json.Unmarshal([]byte(extractJSON(text)), out); err != nil {
		return fmt.Errorf("parsing %s JSON: %w", schemaName, err)
	}
	return nil
}
