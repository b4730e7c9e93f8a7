package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hoanghai1803/citewatch/internal/models"
)

func scanFollowUp(sc scanner) (models.ResponseFollowUp, error) {
	var (
		f         models.ResponseFollowUp
		turns     string
		createdAt string
		updatedAt string
	)
	if err := sc.Scan(&f.ID, &f.ResponseID, &turns, &createdAt, &updatedAt); err != nil {
		return f, err
	}
	if err := json.Unmarshal([]byte(turns), &f.Turns); err != nil {
		return f, fmt.Errorf("decoding follow-up %d turns: %w", f.ID, err)
	}
	if f.Turns == nil {
		f.Turns = []json.RawMessage{}
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return f, nil
}

// CreateFollowUp starts an empty follow-up conversation on a response.
func (s *Store) CreateFollowUp(ctx context.Context, responseID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO response_followups (response_id, followup) VALUES (?, '[]')`, responseID)
	if err != nil {
		return 0, fmt.Errorf("creating follow-up for response %d: %w", responseID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting follow-up id: %w", err)
	}
	return id, nil
}

// GetFollowUp returns a follow-up or ErrNotFound.
func (s *Store) GetFollowUp(ctx context.Context, id int64) (*models.ResponseFollowUp, error) {
	f, err := scanFollowUp(s.db.QueryRowContext(ctx,
		`SELECT id, response_id, followup, created_at, updated_at FROM response_followups WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting follow-up %d: %w", id, err)
	}
	return &f, nil
}

// ListFollowUps returns the follow-ups of a response, oldest first.
func (s *Store) ListFollowUps(ctx context.Context, responseID int64) ([]models.ResponseFollowUp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, response_id, followup, created_at, updated_at
		 FROM response_followups WHERE response_id = ? ORDER BY created_at, id`, responseID)
	if err != nil {
		return nil, fmt.Errorf("querying follow-ups: %w", err)
	}
	defer rows.Close()

	followUps := []models.ResponseFollowUp{}
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning follow-up: %w", err)
		}
		followUps = append(followUps, f)
	}
	return followUps, rows.Err()
}

// AppendFollowUpTurns adds turns to the end of a follow-up. Existing turns
// are never reordered or removed.
func (s *Store) AppendFollowUpTurns(ctx context.Context, id int64, turns ...json.RawMessage) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT followup FROM response_followups WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reading follow-up %d: %w", id, err)
		}

		var existing []json.RawMessage
		if err := json.Unmarshal([]byte(current), &existing); err != nil {
			return fmt.Errorf("decoding follow-up %d turns: %w", id, err)
		}
		updated, err := json.Marshal(append(existing, turns...))
		if err != nil {
			return fmt.Errorf("encoding follow-up %d turns: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE response_followups SET followup = ?, updated_at = datetime('now') WHERE id = ?`,
			string(updated), id,
		); err != nil {
			return fmt.Errorf("updating follow-up %d: %w", id, err)
		}
		return nil
	})
}

// DeleteFollowUp removes a whole follow-up conversation.
func (s *Store) DeleteFollowUp(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM response_followups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting follow-up %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
