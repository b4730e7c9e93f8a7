package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Compile-time interface check.
var _ Adapter = (*AnthropicAdapter)(nil)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

var anthropicModels = []string{
	"claude-sonnet-4-5-20250929",
	"claude-opus-4-1-20250805",
	"claude-opus-4-20250514",
	"claude-sonnet-4-20250514",
	"claude-3-7-sonnet-latest",
	"claude-3-5-haiku-latest",
}

// anthropicMaxTokens is the output budget requested per model.
var anthropicMaxTokens = map[string]int{
	"claude-sonnet-4-5-20250929": 64000,
	"claude-opus-4-1-20250805":   32000,
	"claude-opus-4-20250514":     32000,
	"claude-sonnet-4-20250514":   64000,
	"claude-3-7-sonnet-latest":   64000,
	"claude-3-5-haiku-latest":    8192,
}

// AnthropicAdapter answers prompts through the Anthropic Messages API with
// the server-side web search tool.
type AnthropicAdapter struct {
	api *apiClient
}

// NewAnthropicAdapter creates an AnthropicAdapter.
func NewAnthropicAdapter(cfg ProviderConfig) *AnthropicAdapter {
	return &AnthropicAdapter{api: newAPIClient(ProviderAnthropic, cfg, defaultAnthropicBaseURL, func(key string) map[string]string {
		return map[string]string{
			"x-api-key":         key,
			"anthropic-version": anthropicVersion,
		}
	})}
}

type anthropicRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Messages  []json.RawMessage `json:"messages"`
	Tools     []anthropicTool   `json:"tools"`
}

type anthropicTool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// anthropicMessage is a conversation message. Content is either a string or
// a list of content blocks.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicResponse struct {
	Type    string            `json:"type"`
	Role    string            `json:"role"`
	Content []json.RawMessage `json:"content"`
}

type anthropicBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Name  string `json:"name"`
	Input *struct {
		Query string `json:"query"`
	} `json:"input"`
	Citations []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"citations"`
}

// Provider implements Adapter.
func (a *AnthropicAdapter) Provider() Provider { return ProviderAnthropic }

// Models implements Adapter.
func (a *AnthropicAdapter) Models() []string { return anthropicModels }

// GetResponse implements Adapter.
func (a *AnthropicAdapter) GetResponse(ctx context.Context, model, prompt string, prior []json.RawMessage) (*Response, error) {
	maxTokens, ok := anthropicMaxTokens[model]
	if !ok {
		return nil, fmt.Errorf("%w: anthropic:%s", ErrUnknownModel, model)
	}

	messages := make([]json.RawMessage, 0, len(prior)+1)
	messages = append(messages, prior...)
	messages = append(messages, mustMarshal(anthropicMessage{Role: "user", Content: prompt}))

	logCall(ProviderAnthropic, model)
	body, err := a.api.post(ctx, "/messages", anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
		Tools:     []anthropicTool{{Type: "web_search_20250305", Name: "web_search"}},
	})
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: anthropic: decoding reply: %v", ErrProviderRequestFailed, err)
	}

	var (
		text    strings.Builder
		urls    []string
		queries []string
	)
	for _, raw := range resp.Content {
		var block anthropicBlock
		if err := json.Unmarshal(raw, &block); err != nil {
			continue
		}
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
			for _, c := range block.Citations {
				if c.Type == "web_search_result_location" {
					urls = append(urls, c.URL)
				}
			}
		case "server_tool_use":
			if block.Name == "web_search" && block.Input != nil && block.Input.Query != "" {
				queries = append(queries, block.Input.Query)
			}
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: anthropic:%s returned no text blocks", ErrEmptyResponse, model)
	}

	return &Response{
		Content:       text.String(),
		Raw:           Raw{Provider: ProviderAnthropic, Payload: body},
		URLs:          dedupeURLs(urls, nil),
		SearchQueries: nonNil(queries),
	}, nil
}
