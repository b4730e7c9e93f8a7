package models

import "time"

// PromptRun is the audit record of one pipeline invocation.
type PromptRun struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	PromptID        int64     `json:"prompt_id"`
	Trigger         string    `json:"trigger"`
	ModelsRequested int       `json:"models_requested"`
	ModelsSucceeded int       `json:"models_succeeded"`
	Errors          string    `json:"errors,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HostnameCount is the number of links citing a hostname.
type HostnameCount struct {
	Hostname string `json:"hostname"`
	Count    int    `json:"count"`
}

// BrandScore sums sentiment per brand: positive +1, neutral 0, negative -1.
type BrandScore struct {
	Brand    string `json:"brand"`
	Score    int    `json:"sentiment_score"`
	Mentions int    `json:"mentions"`
}

// WeeklyCount is a per-week count for a hostname or brand key.
type WeeklyCount struct {
	Week  string `json:"week"`
	Key   string `json:"key"`
	Count int    `json:"count"`
}
