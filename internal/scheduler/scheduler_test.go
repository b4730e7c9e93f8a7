package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// fakeRunner records calls and reports every model as failed or succeeded.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []int64
	fail   map[int64]bool
	called chan struct{}
}

func (f *fakeRunner) RunPrompt(_ context.Context, p *models.Prompt, modelIDs []string, trigger string) (*pipeline.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p.ID)
	f.mu.Unlock()
	if f.called != nil {
		select {
		case f.called <- struct{}{}:
		default:
		}
	}

	result := &pipeline.RunResult{RunID: "run", PromptID: p.ID}
	for i, m := range modelIDs {
		o := pipeline.Outcome{Model: m, ResponseID: int64(i + 1)}
		if f.fail[p.ID] {
			o = pipeline.Outcome{Model: m, Err: errors.New("provider down")}
		}
		result.Outcomes = append(result.Outcomes, o)
	}
	return result, nil
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return storage.NewStore(db)
}

func seedScheduled(t *testing.T, store *storage.Store, schedule string, next time.Time) int64 {
	t.Helper()
	id, err := store.CreatePrompt(context.Background(), &models.Prompt{
		Prompt:    "which database?",
		Models:    []string{"openai:gpt-5"},
		Schedule:  &schedule,
		NextRunAt: &next,
	}, nil)
	if err != nil {
		t.Fatalf("seeding prompt: %v", err)
	}
	return id
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTickAdvancesNextRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 34, 0, 0, time.UTC)

	dueID := seedScheduled(t, store, "0 0 * * *", now.Add(-time.Hour))
	laterID := seedScheduled(t, store, "0 0 * * *", now.Add(time.Hour))

	runner := &fakeRunner{}
	s := New(store, runner, Options{Now: fixedClock(now)})
	s.Tick(ctx)

	if len(runner.calls) != 1 || runner.calls[0] != dueID {
		t.Fatalf("expected one run of prompt %d, got %v", dueID, runner.calls)
	}

	p, err := store.GetPrompt(ctx, dueID)
	if err != nil {
		t.Fatalf("GetPrompt() error: %v", err)
	}
	want := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	if p.NextRunAt == nil || !p.NextRunAt.Equal(want) {
		t.Errorf("next run: got %v, want %v", p.NextRunAt, want)
	}
	if !p.NextRunAt.After(now) {
		t.Errorf("next run %v not after now %v", p.NextRunAt, now)
	}

	later, err := store.GetPrompt(ctx, laterID)
	if err != nil {
		t.Fatalf("GetPrompt() error: %v", err)
	}
	if !later.NextRunAt.Equal(now.Add(time.Hour)) {
		t.Errorf("prompt not yet due was modified: %v", later.NextRunAt)
	}

	// A second tick at the same instant finds nothing due.
	s.Tick(ctx)
	if len(runner.calls) != 1 {
		t.Errorf("expected no further runs, got %v", runner.calls)
	}
}

func TestTickFailureKeepsNextRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 34, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)

	failing := seedScheduled(t, store, "0 0 * * *", past)
	healthy := seedScheduled(t, store, "0 * * * *", past)

	runner := &fakeRunner{fail: map[int64]bool{failing: true}}
	s := New(store, runner, Options{Now: fixedClock(now)})
	s.Tick(ctx)

	if len(runner.calls) != 2 {
		t.Fatalf("expected both prompts to run, got %v", runner.calls)
	}

	p, err := store.GetPrompt(ctx, failing)
	if err != nil {
		t.Fatalf("GetPrompt() error: %v", err)
	}
	if !p.NextRunAt.Equal(past) {
		t.Errorf("failed prompt next run changed to %v", p.NextRunAt)
	}

	h, err := store.GetPrompt(ctx, healthy)
	if err != nil {
		t.Fatalf("GetPrompt() error: %v", err)
	}
	if want := time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC); !h.NextRunAt.Equal(want) {
		t.Errorf("healthy prompt next run: got %v, want %v", h.NextRunAt, want)
	}

	// Retried on the next tick.
	s.Tick(ctx)
	if len(runner.calls) != 3 || runner.calls[2] != failing {
		t.Errorf("expected failing prompt to be retried, got %v", runner.calls)
	}
}

func TestStartRunOnStartAndStop(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2025, 6, 10, 12, 34, 0, 0, time.UTC)
	seedScheduled(t, store, "@hourly", now.Add(-time.Minute))

	runner := &fakeRunner{called: make(chan struct{}, 1)}
	s := New(store, runner, Options{Interval: time.Hour, RunOnStart: true, Now: fixedClock(now)})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error starting twice")
	}

	select {
	case <-runner.called:
	case <-time.After(5 * time.Second):
		t.Fatal("run on start did not happen")
	}

	s.Stop()
	s.Stop() // no-op

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart error: %v", err)
	}
	s.Stop()
}
