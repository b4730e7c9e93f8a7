// Package scheduler runs prompts whose schedule has come due.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

const defaultInterval = 5 * time.Minute

// PromptRunner executes one prompt against a set of models.
type PromptRunner interface {
	RunPrompt(ctx context.Context, p *models.Prompt, modelIDs []string, trigger string) (*pipeline.RunResult, error)
}

// Options configures a Scheduler.
type Options struct {
	// Interval between due checks. Ticks are aligned to multiples of it.
	Interval time.Duration
	// RunOnStart performs a due check immediately on Start.
	RunOnStart bool
	// Location schedules are evaluated in. Nil means UTC.
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler periodically runs due prompts. Ticks never overlap: a tick that
// is still running when the next boundary passes delays the following one.
type Scheduler struct {
	store  *storage.Store
	runner PromptRunner
	opts   Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler.
func New(store *storage.Store, runner PromptRunner, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{store: store, runner: runner, opts: opts}
}

// Start launches the scheduling loop. It returns an error if the scheduler
// is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("scheduler already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	slog.Info("scheduler started",
		"interval", s.opts.Interval.String(),
		"run_on_start", s.opts.RunOnStart,
		"timezone", s.opts.Location.String(),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if s.opts.RunOnStart {
		s.Tick(ctx)
	}

	for {
		now := s.opts.Now()
		wait := NextAlignedTick(now, s.opts.Interval).Sub(now)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every due prompt once, one after another. A failing prompt is
// logged and keeps its next run time, so it is picked up again next tick.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.opts.Now()

	due, err := s.store.GetDuePrompts(ctx, now)
	if err != nil {
		slog.Error("failed to load due prompts", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	slog.Info("running due prompts", "count", len(due))
	for i := range due {
		if ctx.Err() != nil {
			return
		}
		s.runDue(ctx, &due[i])
	}
}

func (s *Scheduler) runDue(ctx context.Context, p *models.Prompt) {
	if p.Schedule == nil {
		return
	}

	result, err := s.runner.RunPrompt(ctx, p, p.Models, pipeline.TriggerScheduler)
	if err != nil {
		slog.Error("scheduled run failed", "prompt_id", p.ID, "error", err)
		return
	}
	if result.Succeeded() == 0 {
		slog.Error("scheduled run failed for every model",
			"prompt_id", p.ID,
			"run_id", result.RunID,
			"error", result.Err(),
		)
		return
	}

	next, err := NextRun(*p.Schedule, s.opts.Now(), s.opts.Location)
	if err != nil {
		slog.Error("failed to compute next run", "prompt_id", p.ID, "schedule", *p.Schedule, "error", err)
		return
	}
	if err := s.store.SetNextRun(ctx, p.ID, next); err != nil {
		slog.Error("failed to save next run", "prompt_id", p.ID, "error", err)
		return
	}

	slog.Info("scheduled run complete",
		"prompt_id", p.ID,
		"run_id", result.RunID,
		"succeeded", result.Succeeded(),
		"next_run_at", next.UTC().Format(time.RFC3339),
	)
}
