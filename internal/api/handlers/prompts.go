package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/scheduler"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// ModelRegistry lists and validates "provider:model" identifiers.
type ModelRegistry interface {
	Catalog() []ai.ProviderModels
	ValidateModel(modelID string) (ai.ModelID, error)
}

// PromptGenerator drafts monitoring prompts from a topic description.
type PromptGenerator interface {
	GeneratePrompts(ctx context.Context, input string) ([]string, error)
}

const defaultGeneratorInput = `Searching the TigerData website (https://www.tigerdata.com/), generate a list of prompts that someone might type into ChatGPT searching for technology that is related to what TigerData provides. The prompts should be in the form of "What is ..." or "How would I do ..." type questions. The questions should not directly mention TigerData or Timescale, but rather be like "How would I have time-series data in Postgres".`

const relatedGeneratorInputTmpl = `Given the following prompt:

%s

Generate a list of related search prompts a user might type into ChatGPT or Perplexity. Feel free to expand on the base idea of the prompt.`

// promptInput is the body of prompt create and update requests. Create
// accepts either a single prompt or a batch in Prompts.
type promptInput struct {
	Prompt   string   `json:"prompt"`
	Prompts  []string `json:"prompts"`
	Models   []string `json:"models"`
	Schedule string   `json:"schedule"`
	TagIDs   []int64  `json:"tag_ids"`
}

// resolve validates models and schedule and computes the first run.
func (in *promptInput) resolve(registry ModelRegistry, loc *time.Location, now time.Time) (schedule *string, next *time.Time, err error) {
	if len(in.Models) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one model is required", pipeline.ErrNoModels)
	}
	for _, m := range in.Models {
		if _, err := registry.ValidateModel(m); err != nil {
			return nil, nil, err
		}
	}

	expr := strings.TrimSpace(in.Schedule)
	if expr == "" {
		return nil, nil, nil
	}
	at, err := scheduler.NextRun(expr, now, loc)
	if err != nil {
		return nil, nil, err
	}
	return &expr, &at, nil
}

// ListPrompts handles GET /api/prompts. An optional "tag" query parameter
// filters by tag ID.
func ListPrompts(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tagID, err := queryID(r, "tag")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		prompts, err := store.ListPrompts(r.Context(), tagID)
		if err != nil {
			writeDomainError(w, err, "Failed to list prompts")
			return
		}
		writeJSON(w, http.StatusOK, prompts)
	}
}

// GetPrompt handles GET /api/prompts/{id}.
func GetPrompt(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p, err := store.GetPrompt(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "Prompt")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// CreatePrompts handles POST /api/prompts. Every prompt in the request gets
// the same models, schedule and tags.
func CreatePrompts(store *storage.Store, registry ModelRegistry, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var in promptInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var texts []string
		for _, p := range append([]string{in.Prompt}, in.Prompts...) {
			if p = strings.TrimSpace(p); p != "" {
				texts = append(texts, p)
			}
		}
		if len(texts) == 0 {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}

		schedule, next, err := in.resolve(registry, loc, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		created := make([]*models.Prompt, 0, len(texts))
		for _, text := range texts {
			id, err := store.CreatePrompt(ctx, &models.Prompt{
				Prompt:    text,
				Models:    in.Models,
				Schedule:  schedule,
				NextRunAt: next,
			}, in.TagIDs)
			if err != nil {
				writeDomainError(w, err, "Failed to create prompt")
				return
			}
			p, err := store.GetPrompt(ctx, id)
			if err != nil {
				writeDomainError(w, err, "Failed to load created prompt")
				return
			}
			created = append(created, p)
		}

		slog.Info("prompts created", "count", len(created), "scheduled", schedule != nil)
		writeJSON(w, http.StatusCreated, created)
	}
}

// UpdatePrompt handles PUT /api/prompts/{id}. The schedule is re-evaluated,
// so the next run moves to the first occurrence after now. An empty prompt
// keeps the current text.
func UpdatePrompt(store *storage.Store, registry ModelRegistry, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		existing, err := store.GetPrompt(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Prompt")
			return
		}

		var in promptInput
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		schedule, next, err := in.resolve(registry, loc, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		existing.Models = in.Models
		existing.Schedule = schedule
		existing.NextRunAt = next
		if text := strings.TrimSpace(in.Prompt); text != "" {
			existing.Prompt = text
		}

		if err := store.UpdatePrompt(ctx, existing, in.TagIDs); err != nil {
			writeDomainError(w, err, "Failed to update prompt")
			return
		}

		updated, err := store.GetPrompt(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Prompt")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DeletePrompt handles DELETE /api/prompts/{id}.
func DeletePrompt(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := store.DeletePrompt(r.Context(), id); err != nil {
			writeDomainError(w, err, "Prompt")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// RunPrompt handles POST /api/prompts/{id}/run. An optional "model" query
// parameter naming one of the prompt's models runs only that model. The
// response lists every model's outcome; the status is 200 when at least one
// model succeeded and 502 when all failed.
func RunPrompt(store *storage.Store, runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p, err := store.GetPrompt(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Prompt")
			return
		}

		// A client that disconnects must not abort a run already paid for.
		result, err := runner.RunPrompt(context.WithoutCancel(ctx), p, pipeline.ModelsFor(p, r.URL.Query().Get("model")), pipeline.TriggerManual)
		if err != nil {
			writeDomainError(w, err, "Failed to run prompt")
			return
		}

		status := http.StatusOK
		if result.Succeeded() == 0 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, struct {
			*pipeline.RunResult
			ResponseIDs []int64 `json:"response_ids"`
		}{result, result.ResponseIDs()})
	}
}

// GetPromptRuns handles GET /api/prompts/{id}/runs. It returns the most
// recent run audit records, newest first.
func GetPromptRuns(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		runs, err := store.GetRecentRuns(r.Context(), id, queryInt(r, "limit", 20))
		if err != nil {
			writeDomainError(w, err, "Failed to get prompt runs")
			return
		}
		if runs == nil {
			runs = []models.PromptRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

// GeneratePrompts handles POST /api/prompts/generate. The body's "base" text
// is sent to the generator; without it, "prompt_id" asks for prompts related
// to a stored prompt, and with neither a default topic is used.
func GeneratePrompts(store *storage.Store, generator PromptGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if generator == nil {
			writeError(w, http.StatusServiceUnavailable,
				"Prompt generator not configured. Add an OpenAI API key to config.toml")
			return
		}

		var body struct {
			Base     string `json:"base"`
			PromptID int64  `json:"prompt_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		input := strings.TrimSpace(body.Base)
		if input == "" && body.PromptID != 0 {
			p, err := store.GetPrompt(ctx, body.PromptID)
			if err != nil {
				writeDomainError(w, err, "Prompt")
				return
			}
			input = fmt.Sprintf(relatedGeneratorInputTmpl, p.Prompt)
		}
		if input == "" {
			input = defaultGeneratorInput
		}

		prompts, err := generator.GeneratePrompts(ctx, input)
		if err != nil {
			writeDomainError(w, err, "Failed to generate prompts")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"prompts": prompts})
	}
}

// GetModels handles GET /api/models. It returns the model catalogue grouped
// by provider and the default selection for new prompts.
func GetModels(registry ModelRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers": registry.Catalog(),
			"defaults":  ai.DefaultModels,
		})
	}
}
