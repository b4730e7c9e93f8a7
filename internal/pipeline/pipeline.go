// Package pipeline runs prompts against provider models and persists the
// results.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// Run triggers recorded in the prompt_runs audit table.
const (
	TriggerManual    = "manual"
	TriggerScheduler = "schedule"
	TriggerMCP       = "mcp"
)

// ErrNoModels means a run was requested with an empty model list.
var ErrNoModels = errors.New("no models to run")

// Responder asks a "provider:model" target a prompt.
type Responder interface {
	GetResponse(ctx context.Context, prompt, modelID string, prior []json.RawMessage) (*ai.Response, error)
}

// SentimentAnalyzer extracts brand sentiment from response text.
type SentimentAnalyzer interface {
	AnalyzeBrandSentiment(ctx context.Context, brands []string, text string) ([]ai.BrandMention, error)
}

// Runner executes prompts. Each model branch commits in its own transaction,
// so one failing model never discards the rows of another.
type Runner struct {
	store     *storage.Store
	responder Responder
	sentiment SentimentAnalyzer
	brands    []string
}

// NewRunner creates a Runner. brands are the first-party brands tracked in
// addition to the stored competitors.
func NewRunner(store *storage.Store, responder Responder, sentiment SentimentAnalyzer, brands []string) *Runner {
	return &Runner{
		store:     store,
		responder: responder,
		sentiment: sentiment,
		brands:    brands,
	}
}

// Outcome is the result of one model branch.
type Outcome struct {
	Model      string `json:"model"`
	ResponseID int64  `json:"response_id,omitempty"`
	Err        error  `json:"-"`
}

// MarshalJSON reports the branch error as a string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type alias Outcome
	var msg string
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return json.Marshal(struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(o), Error: msg})
}

// RunResult collects the outcome of every branch of one run, in the order the
// models were requested.
type RunResult struct {
	RunID    string    `json:"run_id"`
	PromptID int64     `json:"prompt_id"`
	Outcomes []Outcome `json:"outcomes"`
}

// ResponseIDs returns the IDs of the responses that were stored.
func (r *RunResult) ResponseIDs() []int64 {
	ids := []int64{}
	for _, o := range r.Outcomes {
		if o.Err == nil {
			ids = append(ids, o.ResponseID)
		}
	}
	return ids
}

// Succeeded returns the number of branches that committed.
func (r *RunResult) Succeeded() int {
	return len(r.ResponseIDs())
}

// Err joins the errors of all failed branches, or returns nil.
func (r *RunResult) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Model, o.Err))
		}
	}
	return errors.Join(errs...)
}

// ModelsFor returns the models a run of p should target. A filter naming one
// of the prompt's models narrows the run to it; anything else runs them all.
func ModelsFor(p *models.Prompt, filter string) []string {
	for _, m := range p.Models {
		if filter != "" && m == filter {
			return []string{m}
		}
	}
	return p.Models
}

// RunPrompt asks every model in modelIDs the prompt concurrently and stores
// each answer with its links, search queries and brand sentiments. Invalid
// model identifiers fail the whole call before any work starts; per-model
// failures are reported in the result.
func (r *Runner) RunPrompt(ctx context.Context, p *models.Prompt, modelIDs []string, trigger string) (*RunResult, error) {
	if len(modelIDs) == 0 {
		return nil, ErrNoModels
	}
	for _, id := range modelIDs {
		if _, err := ai.ParseModelID(id); err != nil {
			return nil, err
		}
	}

	brands, err := r.trackedBrands(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:    uuid.NewString(),
		PromptID: p.ID,
		Outcomes: make([]Outcome, len(modelIDs)),
	}

	var g errgroup.Group
	for i, modelID := range modelIDs {
		g.Go(func() error {
			id, err := r.runBranch(ctx, p, modelID, result.RunID, brands)
			result.Outcomes[i] = Outcome{Model: modelID, ResponseID: id, Err: err}
			if err != nil {
				slog.Warn("model branch failed",
					"prompt_id", p.ID,
					"model", modelID,
					"run_id", result.RunID,
					"error", err,
				)
			}
			return nil // branches fail independently
		})
	}
	_ = g.Wait()

	r.recordRun(context.WithoutCancel(ctx), result, trigger)

	slog.Info("prompt run complete",
		"prompt_id", p.ID,
		"run_id", result.RunID,
		"trigger", trigger,
		"requested", len(modelIDs),
		"succeeded", result.Succeeded(),
	)
	return result, nil
}

// runBranch handles one model. Network calls finish before the transaction
// opens so the single database connection is never held across them. Once
// the provider has answered, the rest of the branch ignores cancellation so
// a completed answer is always stored.
func (r *Runner) runBranch(ctx context.Context, p *models.Prompt, modelID, runID string, brands []string) (int64, error) {
	resp, err := r.responder.GetResponse(ctx, p.Prompt, modelID, nil)
	if err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)

	mentions, err := r.sentiment.AnalyzeBrandSentiment(ctx, brands, resp.Content)
	if err != nil {
		return 0, err
	}

	nr := &models.NewResponse{
		PromptID:      p.ID,
		Model:         modelID,
		RunID:         runID,
		Content:       resp.Content,
		Raw:           resp.Raw.Payload,
		Links:         buildLinks(resp.URLs),
		SearchQueries: resp.SearchQueries,
	}
	for _, m := range mentions {
		nr.Sentiments = append(nr.Sentiments, models.BrandSentiment{Brand: m.Brand, Sentiment: m.Sentiment})
	}

	return r.store.SaveResponse(ctx, nr)
}

// buildLinks derives a hostname for each URL. URLs without a usable host are
// skipped.
func buildLinks(urls []string) []models.Link {
	links := make([]models.Link, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true

		host, err := ai.Hostname(u)
		if err != nil || host == "" {
			slog.Warn("skipping citation without host", "url", u, "error", err)
			continue
		}
		links = append(links, models.Link{URL: u, Hostname: host})
	}
	return links
}

// trackedBrands returns competitor names followed by the first-party brands,
// without case-insensitive duplicates.
func (r *Runner) trackedBrands(ctx context.Context) ([]string, error) {
	competitors, err := r.store.ListCompetitors(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading competitors: %w", err)
	}

	seen := make(map[string]bool, len(competitors)+len(r.brands))
	var brands []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		brands = append(brands, name)
	}
	for _, c := range competitors {
		add(c.Name)
	}
	for _, b := range r.brands {
		add(b)
	}
	return brands, nil
}

func (r *Runner) recordRun(ctx context.Context, result *RunResult, trigger string) {
	run := &models.PromptRun{
		RunID:           result.RunID,
		PromptID:        result.PromptID,
		Trigger:         trigger,
		ModelsRequested: len(result.Outcomes),
		ModelsSucceeded: result.Succeeded(),
	}
	if err := result.Err(); err != nil {
		run.Errors = err.Error()
	}
	if _, err := r.store.CreatePromptRun(ctx, run); err != nil {
		slog.Error("failed to record prompt run", "run_id", result.RunID, "error", err)
	}
}
