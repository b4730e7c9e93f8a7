package models

import (
	"encoding/json"
	"time"
)

// Sentiment labels accepted for a brand mention.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Response is a single provider answer to a prompt. Raw holds the provider's
// reply verbatim so a follow-up conversation can be replayed later.
type Response struct {
	ID        int64           `json:"id"`
	PromptID  int64           `json:"prompt_id"`
	Prompt    string          `json:"prompt,omitempty"`
	Model     string          `json:"model"`
	RunID     string          `json:"run_id,omitempty"`
	Content   string          `json:"response"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Link is a citation URL extracted from a response.
type Link struct {
	ID         int64      `json:"id"`
	ResponseID int64      `json:"response_id"`
	URL        string     `json:"url"`
	Hostname   string     `json:"hostname"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// SearchQuery is a query the provider's search tool issued while answering.
type SearchQuery struct {
	ID         int64  `json:"id"`
	ResponseID int64  `json:"response_id"`
	Query      string `json:"query"`
}

// BrandSentiment records the sentiment a response expressed toward a brand.
type BrandSentiment struct {
	ID         int64  `json:"id"`
	ResponseID int64  `json:"response_id"`
	Brand      string `json:"brand"`
	Sentiment  string `json:"sentiment"`
}

// ResponseFollowUp is a conversation continuing a response. Each turn is either
// a user message object or a raw provider reply, in the order they happened.
type ResponseFollowUp struct {
	ID         int64             `json:"id"`
	ResponseID int64             `json:"response_id"`
	Turns      []json.RawMessage `json:"followup"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewResponse carries everything one pipeline branch writes for a single
// model: the response row and its dependent links, queries and sentiments.
type NewResponse struct {
	PromptID      int64
	Model         string
	RunID         string
	Content       string
	Raw           json.RawMessage
	Links         []Link
	SearchQueries []string
	Sentiments    []BrandSentiment
}
