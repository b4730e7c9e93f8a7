package storage

import (
	"context"
	"testing"

	"github.com/hoanghai1803/citewatch/internal/models"
)

func TestCreateAndListPromptRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := seedPrompt(t, store, "a", "openai:gpt-5")
	b := seedPrompt(t, store, "b", "openai:gpt-5")

	runs := []models.PromptRun{
		{RunID: "r1", PromptID: a, Trigger: "manual", ModelsRequested: 2, ModelsSucceeded: 2},
		{RunID: "r2", PromptID: a, Trigger: "schedule", ModelsRequested: 2, ModelsSucceeded: 1, Errors: "xai:grok-3: provider request failed"},
		{RunID: "r3", PromptID: b, Trigger: "mcp", ModelsRequested: 1, ModelsSucceeded: 1},
	}
	for i := range runs {
		if _, err := store.CreatePromptRun(ctx, &runs[i]); err != nil {
			t.Fatalf("CreatePromptRun() error: %v", err)
		}
	}

	got, err := store.GetRecentRuns(ctx, a, 10)
	if err != nil {
		t.Fatalf("GetRecentRuns() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].RunID != "r2" {
		t.Errorf("newest run = %q, want r2", got[0].RunID)
	}
	if got[0].ModelsSucceeded != 1 || got[0].Errors == "" {
		t.Errorf("run r2 = %+v", got[0])
	}

	all, _ := store.GetRecentRuns(ctx, 0, 10)
	if len(all) != 3 {
		t.Errorf("got %d runs across prompts, want 3", len(all))
	}
}
