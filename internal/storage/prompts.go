package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

const promptColumns = `id, prompt, models, schedule, next_run_at, created_at, updated_at`

// scanPrompt reads one prompt row selected with promptColumns. Tags are
// loaded separately.
func scanPrompt(sc scanner) (models.Prompt, error) {
	var (
		p          models.Prompt
		modelsJSON string
		schedule   sql.NullString
		nextRunAt  sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := sc.Scan(&p.ID, &p.Prompt, &modelsJSON, &schedule, &nextRunAt, &createdAt, &updatedAt); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(modelsJSON), &p.Models); err != nil {
		return p, fmt.Errorf("decoding models for prompt %d: %w", p.ID, err)
	}
	p.Schedule = nullStringToPtr(schedule)
	p.NextRunAt = parseTimePtr(nextRunAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.Tags = []models.Tag{}
	return p, nil
}

// CreatePrompt inserts a prompt together with its tag associations and
// returns the new ID.
func (s *Store) CreatePrompt(ctx context.Context, p *models.Prompt, tagIDs []int64) (int64, error) {
	modelsJSON, err := json.Marshal(p.Models)
	if err != nil {
		return 0, fmt.Errorf("encoding prompt models: %w", err)
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO prompts (prompt, models, schedule, next_run_at) VALUES (?, ?, ?, ?)`,
			p.Prompt, string(modelsJSON), nullableString(p.Schedule), nullableTime(p.NextRunAt),
		)
		if err != nil {
			return fmt.Errorf("inserting prompt: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting prompt id: %w", err)
		}
		return setPromptTags(ctx, tx, id, tagIDs)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetPrompt returns a prompt with its tags, or ErrNotFound.
func (s *Store) GetPrompt(ctx context.Context, id int64) (*models.Prompt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting prompt %d: %w", id, err)
	}

	prompts := []models.Prompt{p}
	if err := s.attachTags(ctx, prompts); err != nil {
		return nil, err
	}
	return &prompts[0], nil
}

// ListPrompts returns every prompt, newest first. When tagID is non-zero only
// prompts carrying that tag are returned.
func (s *Store) ListPrompts(ctx context.Context, tagID int64) ([]models.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts`
	var args []any
	if tagID != 0 {
		query += ` WHERE id IN (SELECT prompt_id FROM prompts_tags WHERE tag_id = ?)`
		args = append(args, tagID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	return s.queryPrompts(ctx, query, args...)
}

// GetDuePrompts returns scheduled prompts whose next run is at or before now,
// oldest due first.
func (s *Store) GetDuePrompts(ctx context.Context, now time.Time) ([]models.Prompt, error) {
	return s.queryPrompts(ctx,
		`SELECT `+promptColumns+`
		 FROM prompts
		 WHERE schedule IS NOT NULL AND next_run_at IS NOT NULL AND next_run_at <= ?
		 ORDER BY next_run_at ASC, id ASC`,
		formatTime(now),
	)
}

func (s *Store) queryPrompts(ctx context.Context, query string, args ...any) ([]models.Prompt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying prompts: %w", err)
	}

	prompts := []models.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating prompt rows: %w", err)
	}
	// Release the single connection before loading tags.
	rows.Close()

	if err := s.attachTags(ctx, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// UpdatePrompt rewrites a prompt's text, models, schedule and next run, and
// replaces its tag set.
func (s *Store) UpdatePrompt(ctx context.Context, p *models.Prompt, tagIDs []int64) error {
	modelsJSON, err := json.Marshal(p.Models)
	if err != nil {
		return fmt.Errorf("encoding prompt models: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE prompts
			 SET prompt = ?, models = ?, schedule = ?, next_run_at = ?, updated_at = datetime('now')
			 WHERE id = ?`,
			p.Prompt, string(modelsJSON), nullableString(p.Schedule), nullableTime(p.NextRunAt), p.ID,
		)
		if err != nil {
			return fmt.Errorf("updating prompt %d: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM prompts_tags WHERE prompt_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clearing prompt tags: %w", err)
		}
		return setPromptTags(ctx, tx, p.ID, tagIDs)
	})
}

// SetNextRun records when a scheduled prompt is due next.
func (s *Store) SetNextRun(ctx context.Context, id int64, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE prompts SET next_run_at = ?, updated_at = datetime('now') WHERE id = ?`,
		formatTime(next), id,
	)
	if err != nil {
		return fmt.Errorf("setting next run for prompt %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePrompt removes a prompt. Its responses and runs cascade with it.
func (s *Store) DeletePrompt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting prompt %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
