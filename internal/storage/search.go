package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// SearchResponses performs a full-text search over response content using
// FTS5, best match first.
func (s *Store) SearchResponses(ctx context.Context, query string, limit int) ([]models.Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Response{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+responseColumns+`
		 FROM responses_fts fts
		 JOIN responses r ON r.id = fts.rowid
		 JOIN prompts p ON p.id = r.prompt_id
		 WHERE responses_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		ftsQuery(query), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching responses: %w", err)
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return responses, nil
}

// ftsQuery quotes each term so user input cannot inject FTS5 syntax.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
