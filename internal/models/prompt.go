package models

import "time"

// Prompt is a monitored question asked of one or more provider:model targets.
// When Schedule is set, NextRunAt holds the next occurrence the scheduler
// will pick it up at.
type Prompt struct {
	ID        int64      `json:"id"`
	Prompt    string     `json:"prompt"`
	Models    []string   `json:"models"`
	Schedule  *string    `json:"schedule,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	Tags      []Tag      `json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Tag groups prompts for filtering.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Competitor is a tracked third-party brand whose name is fed to sentiment
// analysis alongside the first-party brands.
type Competitor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
