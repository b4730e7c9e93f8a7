package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Compile-time interface check.
var _ Adapter = (*OpenAIAdapter)(nil)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

var openAIModels = []string{
	"gpt-5",
	"gpt-5-mini",
	"gpt-5-nano",
	"o3-deep-research",
	"o4-mini-deep-research",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4.1-nano",
}

// OpenAIAdapter answers prompts through the OpenAI Responses API with the
// web search tool enabled.
type OpenAIAdapter struct {
	api *apiClient
}

// NewOpenAIAdapter creates an OpenAIAdapter.
func NewOpenAIAdapter(cfg ProviderConfig) *OpenAIAdapter {
	return &OpenAIAdapter{api: newAPIClient(ProviderOpenAI, cfg, defaultOpenAIBaseURL, bearerHeaders)}
}

type openAIResponsesRequest struct {
	Model string            `json:"model"`
	Tools []openAITool      `json:"tools"`
	Input []json.RawMessage `json:"input"`
}

type openAITool struct {
	Type string `json:"type"`
}

// openAIInputMessage is a plain-text conversation input item.
type openAIInputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIResponse is the subset of a Responses API reply we read. Output items
// stay raw so they can be replayed verbatim.
type openAIResponse struct {
	Object string            `json:"object"`
	Output []json.RawMessage `json:"output"`
}

type openAIOutputItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Status  string          `json:"status"`
	Content json.RawMessage `json:"content"`
	Action  *struct {
		Query string `json:"query"`
	} `json:"action"`
}

type openAIContentPart struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Annotations []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"annotations"`
}

// parts decodes the content array of a message item. Items whose content is
// not an array of parts yield nil.
func (it openAIOutputItem) parts() []openAIContentPart {
	var parts []openAIContentPart
	if err := json.Unmarshal(it.Content, &parts); err != nil {
		return nil
	}
	return parts
}

// Provider implements Adapter.
func (a *OpenAIAdapter) Provider() Provider { return ProviderOpenAI }

// Models implements Adapter.
func (a *OpenAIAdapter) Models() []string { return openAIModels }

// GetResponse implements Adapter.
func (a *OpenAIAdapter) GetResponse(ctx context.Context, model, prompt string, prior []json.RawMessage) (*Response, error) {
	if !containsModel(openAIModels, model) {
		return nil, fmt.Errorf("%w: openai:%s", ErrUnknownModel, model)
	}

	input := make([]json.RawMessage, 0, len(prior)+1)
	input = append(input, prior...)
	input = append(input, mustMarshal(openAIInputMessage{Role: "user", Content: prompt}))

	logCall(ProviderOpenAI, model)
	body, err := a.api.post(ctx, "/responses", openAIResponsesRequest{
		Model: model,
		Tools: []openAITool{{Type: "web_search_preview"}},
		Input: input,
	})
	if err != nil {
		return nil, err
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: openai: decoding reply: %v", ErrProviderRequestFailed, err)
	}

	var (
		text    strings.Builder
		urls    []string
		queries []string
	)
	for _, raw := range resp.Output {
		var item openAIOutputItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		switch item.Type {
		case "message":
			for _, part := range item.parts() {
				if part.Type != "output_text" {
					continue
				}
				text.WriteString(part.Text)
				for _, ann := range part.Annotations {
					if ann.Type == "url_citation" {
						urls = append(urls, ann.URL)
					}
				}
			}
		case "web_search_call":
			if item.Status == "completed" && item.Action != nil && item.Action.Query != "" {
				queries = append(queries, item.Action.Query)
			}
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: openai:%s returned no output text", ErrEmptyResponse, model)
	}

	return &Response{
		Content:       text.String(),
		Raw:           Raw{Provider: ProviderOpenAI, Payload: body},
		URLs:          dedupeURLs(urls, stripChatGPTSource),
		SearchQueries: nonNil(queries),
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
