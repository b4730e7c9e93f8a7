package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// normalizeTag trims and lowercases a tag name.
func normalizeTag(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// CreateTag inserts a tag and returns its ID. Creating a tag that already
// exists returns the existing ID.
func (s *Store) CreateTag(ctx context.Context, name string) (int64, error) {
	name = normalizeTag(name)
	if name == "" {
		return 0, fmt.Errorf("tag name cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name,
	); err != nil {
		return 0, fmt.Errorf("creating tag: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = ?`, name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("getting tag id: %w", err)
	}
	return id, nil
}

// ListTags returns all tags ordered alphabetically.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return tags, nil
}

// GetTag returns a single tag or ErrNotFound.
func (s *Store) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag %d: %w", id, err)
	}
	return &t, nil
}

// RenameTag changes a tag's name.
func (s *Store) RenameTag(ctx context.Context, id int64, name string) error {
	name = normalizeTag(name)
	if name == "" {
		return fmt.Errorf("tag name cannot be empty")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tags SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("renaming tag %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTag removes a tag and detaches it from every prompt.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tag %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// setPromptTags links a prompt to the given tags. Unknown tag IDs are ignored.
func setPromptTags(ctx context.Context, tx *sql.Tx, promptID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO prompts_tags (prompt_id, tag_id)
		 SELECT ?, id FROM tags WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("preparing prompt tag insert: %w", err)
	}
	defer stmt.Close()

	for _, tagID := range tagIDs {
		if _, err := stmt.ExecContext(ctx, promptID, tagID); err != nil {
			return fmt.Errorf("linking tag %d to prompt %d: %w", tagID, promptID, err)
		}
	}
	return nil
}

// attachTags loads the tags for the given prompts in one query and assigns
// them in place.
func (s *Store) attachTags(ctx context.Context, prompts []models.Prompt) error {
	if len(prompts) == 0 {
		return nil
	}

	index := make(map[int64]int, len(prompts))
	args := make([]any, 0, len(prompts))
	for i, p := range prompts {
		index[p.ID] = i
		args = append(args, p.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT pt.prompt_id, t.id, t.name
		 FROM prompts_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.prompt_id IN (`+placeholders(len(args))+`)
		 ORDER BY t.name`, args...)
	if err != nil {
		return fmt.Errorf("querying prompt tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			promptID int64
			tag      models.Tag
		)
		if err := rows.Scan(&promptID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("scanning prompt tag: %w", err)
		}
		if i, ok := index[promptID]; ok {
			prompts[i].Tags = append(prompts[i].Tags, tag)
		}
	}
	return rows.Err()
}
