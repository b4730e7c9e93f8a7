package storage

import (
	"context"
	"fmt"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// CreatePromptRun records the outcome of one pipeline invocation and returns
// its row ID.
func (s *Store) CreatePromptRun(ctx context.Context, run *models.PromptRun) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_runs
			(run_id, prompt_id, trigger, models_requested, models_succeeded, errors)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.PromptID, run.Trigger,
		run.ModelsRequested, run.ModelsSucceeded, run.Errors,
	)
	if err != nil {
		return 0, fmt.Errorf("creating prompt run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting prompt run id: %w", err)
	}
	return id, nil
}

// GetRecentRuns returns the most recent runs of a prompt, newest first.
// A zero promptID returns runs across all prompts.
func (s *Store) GetRecentRuns(ctx context.Context, promptID int64, limit int) ([]models.PromptRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, run_id, prompt_id, trigger, models_requested, models_succeeded, errors, created_at
		 FROM prompt_runs`
	args := []any{}
	if promptID != 0 {
		query += ` WHERE prompt_id = ?`
		args = append(args, promptID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	runs := []models.PromptRun{}
	for rows.Next() {
		var (
			run       models.PromptRun
			createdAt string
		)
		if err := rows.Scan(
			&run.ID, &run.RunID, &run.PromptID, &run.Trigger,
			&run.ModelsRequested, &run.ModelsSucceeded, &run.Errors, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning prompt run row: %w", err)
		}
		run.CreatedAt = parseTime(createdAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prompt run rows: %w", err)
	}
	return runs, nil
}
