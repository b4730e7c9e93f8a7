package storage

import (
	"context"
	"fmt"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// GetLinksByResponse returns the links cited by one response ordered by
// hostname.
func (s *Store) GetLinksByResponse(ctx context.Context, responseID int64) ([]models.Link, error) {
	return s.queryLinks(ctx,
		`SELECT l.id, l.response_id, l.url, l.hostname, r.created_at
		 FROM links l JOIN responses r ON r.id = l.response_id
		 WHERE l.response_id = ?
		 ORDER BY l.hostname, l.id`, responseID)
}

// GetRecentLinks returns the links from the most recent responses.
func (s *Store) GetRecentLinks(ctx context.Context, limit int) ([]models.Link, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryLinks(ctx,
		`SELECT l.id, l.response_id, l.url, l.hostname, r.created_at
		 FROM links l JOIN responses r ON r.id = l.response_id
		 ORDER BY r.created_at DESC, l.id DESC
		 LIMIT ?`, limit)
}

// GetLinksByHostname returns every link citing the given hostname, newest
// first.
func (s *Store) GetLinksByHostname(ctx context.Context, hostname string) ([]models.Link, error) {
	return s.queryLinks(ctx,
		`SELECT l.id, l.response_id, l.url, l.hostname, r.created_at
		 FROM links l JOIN responses r ON r.id = l.response_id
		 WHERE l.hostname = ?
		 ORDER BY r.created_at DESC, l.id DESC`, hostname)
}

// GetHostnameCounts returns how often each hostname was cited, most cited
// first.
func (s *Store) GetHostnameCounts(ctx context.Context) ([]models.HostnameCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hostname, COUNT(id) AS n FROM links GROUP BY hostname ORDER BY n DESC, hostname`)
	if err != nil {
		return nil, fmt.Errorf("querying hostname counts: %w", err)
	}
	defer rows.Close()

	counts := []models.HostnameCount{}
	for rows.Next() {
		var c models.HostnameCount
		if err := rows.Scan(&c.Hostname, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning hostname count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *Store) queryLinks(ctx context.Context, query string, args ...any) ([]models.Link, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		var (
			l         models.Link
			createdAt string
		)
		if err := rows.Scan(&l.ID, &l.ResponseID, &l.URL, &l.Hostname, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		if t := parseTime(createdAt); !t.IsZero() {
			l.CreatedAt = &t
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}
	return links, nil
}
