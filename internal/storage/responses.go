package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// Tx is a write transaction over the response tables. Obtain one with InTx.
type Tx struct {
	tx *sql.Tx
}

// InTx runs fn inside a single transaction. Every write made through the Tx
// commits together when fn returns nil and is rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// InsertResponse writes a response row and returns its ID.
func (t *Tx) InsertResponse(ctx context.Context, r *models.Response) (int64, error) {
	raw := r.Raw
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO responses (prompt_id, model, run_id, response, raw) VALUES (?, ?, ?, ?, ?)`,
		r.PromptID, r.Model, r.RunID, r.Content, string(raw),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: response for prompt %d: %v", ErrInsertFailed, r.PromptID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: response id: %v", ErrInsertFailed, err)
	}
	return id, nil
}

// InsertLink writes a citation link for a response.
func (t *Tx) InsertLink(ctx context.Context, responseID int64, url, hostname string) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO links (response_id, url, hostname) VALUES (?, ?, ?)`,
		responseID, url, hostname,
	); err != nil {
		return fmt.Errorf("%w: link %q: %v", ErrInsertFailed, url, err)
	}
	return nil
}

// InsertSearchQuery writes a search query issued while producing a response.
func (t *Tx) InsertSearchQuery(ctx context.Context, responseID int64, query string) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO search_queries (response_id, query) VALUES (?, ?)`,
		responseID, query,
	); err != nil {
		return fmt.Errorf("%w: search query: %v", ErrInsertFailed, err)
	}
	return nil
}

// InsertBrandSentiment writes one (brand, sentiment) pair for a response.
func (t *Tx) InsertBrandSentiment(ctx context.Context, responseID int64, brand, sentiment string) error {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO brand_sentiment (response_id, brand, sentiment) VALUES (?, ?, ?)`,
		responseID, brand, sentiment,
	); err != nil {
		return fmt.Errorf("%w: sentiment for %q: %v", ErrInsertFailed, brand, err)
	}
	return nil
}

// SaveResponse writes a response and all of its links, search queries and
// brand sentiments in one transaction. Either every row commits or none do.
func (s *Store) SaveResponse(ctx context.Context, nr *models.NewResponse) (int64, error) {
	var id int64
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.InsertResponse(ctx, &models.Response{
			PromptID: nr.PromptID,
			Model:    nr.Model,
			RunID:    nr.RunID,
			Content:  nr.Content,
			Raw:      nr.Raw,
		})
		if err != nil {
			return err
		}
		for _, l := range nr.Links {
			if err := tx.InsertLink(ctx, id, l.URL, l.Hostname); err != nil {
				return err
			}
		}
		for _, q := range nr.SearchQueries {
			if err := tx.InsertSearchQuery(ctx, id, q); err != nil {
				return err
			}
		}
		for _, bs := range nr.Sentiments {
			if err := tx.InsertBrandSentiment(ctx, id, bs.Brand, bs.Sentiment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInsertFailed) {
			err = fmt.Errorf("%w: %v", ErrInsertFailed, err)
		}
		return 0, err
	}
	return id, nil
}

// ResponseFilter narrows ListResponses. Zero values match everything.
type ResponseFilter struct {
	Provider string
	TagID    int64
	PromptID int64
	Limit    int
	Offset   int
}

const responseColumns = `r.id, r.prompt_id, p.prompt, r.model, r.run_id, r.response, r.created_at`

func scanResponse(sc scanner) (models.Response, error) {
	var (
		r         models.Response
		createdAt string
	)
	if err := sc.Scan(&r.ID, &r.PromptID, &r.Prompt, &r.Model, &r.RunID, &r.Content, &createdAt); err != nil {
		return r, err
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// ListResponses returns responses newest first without their raw payloads.
// Provider matches the provider segment of the model identifier.
func (s *Store) ListResponses(ctx context.Context, f ResponseFilter) ([]models.Response, error) {
	var (
		where []string
		args  []any
	)
	if f.Provider != "" {
		where = append(where, `r.model LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(f.Provider)+":%")
	}
	if f.TagID != 0 {
		where = append(where, `r.prompt_id IN (SELECT prompt_id FROM prompts_tags WHERE tag_id = ?)`)
		args = append(args, f.TagID)
	}
	if f.PromptID != 0 {
		where = append(where, `r.prompt_id = ?`)
		args = append(args, f.PromptID)
	}

	query := `SELECT ` + responseColumns + ` FROM responses r JOIN prompts p ON p.id = r.prompt_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying responses: %w", err)
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning response row: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating response rows: %w", err)
	}
	return responses, nil
}

// GetResponse returns a response with its prompt text and raw payload.
func (s *Store) GetResponse(ctx context.Context, id int64) (*models.Response, error) {
	var (
		r         models.Response
		raw       string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT r.id, r.prompt_id, p.prompt, r.model, r.run_id, r.response, r.raw, r.created_at
		 FROM responses r JOIN prompts p ON p.id = r.prompt_id
		 WHERE r.id = ?`, id,
	).Scan(&r.ID, &r.PromptID, &r.Prompt, &r.Model, &r.RunID, &r.Content, &raw, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting response %d: %w", id, err)
	}
	r.Raw = json.RawMessage(raw)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// escapeLike escapes LIKE wildcards in s using backslash.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
