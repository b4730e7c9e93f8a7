package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// ListCompetitors returns every tracked competitor ordered by name.
func (s *Store) ListCompetitors(ctx context.Context) ([]models.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, added_at, updated_at FROM competitors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying competitors: %w", err)
	}
	defer rows.Close()

	competitors := []models.Competitor{}
	for rows.Next() {
		var (
			c         models.Competitor
			addedAt   string
			updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &addedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning competitor: %w", err)
		}
		c.AddedAt = parseTime(addedAt)
		c.UpdatedAt = parseTime(updatedAt)
		competitors = append(competitors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating competitors: %w", err)
	}
	return competitors, nil
}

// GetCompetitor returns a competitor or ErrNotFound.
func (s *Store) GetCompetitor(ctx context.Context, id int64) (*models.Competitor, error) {
	var (
		c         models.Competitor
		addedAt   string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, added_at, updated_at FROM competitors WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.URL, &addedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting competitor %d: %w", id, err)
	}
	c.AddedAt = parseTime(addedAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// CreateCompetitor adds a competitor and returns its ID.
func (s *Store) CreateCompetitor(ctx context.Context, name, url string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("competitor name cannot be empty")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO competitors (name, url) VALUES (?, ?)`, name, strings.TrimSpace(url))
	if err != nil {
		return 0, fmt.Errorf("creating competitor: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting competitor id: %w", err)
	}
	return id, nil
}

// UpdateCompetitor changes a competitor's name and URL.
func (s *Store) UpdateCompetitor(ctx context.Context, id int64, name, url string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("competitor name cannot be empty")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE competitors SET name = ?, url = ?, updated_at = datetime('now') WHERE id = ?`,
		name, strings.TrimSpace(url), id)
	if err != nil {
		return fmt.Errorf("updating competitor %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCompetitor removes a competitor. Past sentiment rows are kept since
// they store the brand name, not a reference.
func (s *Store) DeleteCompetitor(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM competitors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting competitor %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
