package storage

import (
	"context"
	"fmt"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// Weeks are keyed by strftime('%Y-%W'). The top keys are taken from the week
// of the newest response, then their counts are returned for every week.
const weeklyHostnameCountsSQL = `
WITH weekly AS (
	SELECT strftime('%Y-%W', r.created_at) AS week, l.hostname AS key, COUNT(l.id) AS n
	FROM links l JOIN responses r ON r.id = l.response_id
	GROUP BY week, key
), top AS (
	SELECT key FROM weekly
	WHERE week = (SELECT strftime('%Y-%W', MAX(created_at)) FROM responses)
	ORDER BY n DESC, key
	LIMIT ?
)
SELECT week, key, n FROM weekly
WHERE key IN (SELECT key FROM top)
ORDER BY week DESC, n DESC, key`

const weeklyBrandCountsSQL = `
WITH weekly AS (
	SELECT strftime('%Y-%W', r.created_at) AS week, bs.brand AS key, COUNT(bs.id) AS n
	FROM brand_sentiment bs JOIN responses r ON r.id = bs.response_id
	GROUP BY week, key
), top AS (
	SELECT key FROM weekly
	WHERE week = (SELECT strftime('%Y-%W', MAX(created_at)) FROM responses)
	ORDER BY n DESC, key
	LIMIT ?
)
SELECT week, key, n FROM weekly
WHERE key IN (SELECT key FROM top)
ORDER BY week DESC, n DESC, key`

// GetWeeklyHostnameCounts returns weekly citation counts for the top
// hostnames of the latest week.
func (s *Store) GetWeeklyHostnameCounts(ctx context.Context, top int) ([]models.WeeklyCount, error) {
	return s.weeklyCounts(ctx, weeklyHostnameCountsSQL, top)
}

// GetWeeklyBrandCounts returns weekly mention counts for the top brands of
// the latest week.
func (s *Store) GetWeeklyBrandCounts(ctx context.Context, top int) ([]models.WeeklyCount, error) {
	return s.weeklyCounts(ctx, weeklyBrandCountsSQL, top)
}

func (s *Store) weeklyCounts(ctx context.Context, query string, top int) ([]models.WeeklyCount, error) {
	if top <= 0 {
		top = 5
	}
	rows, err := s.db.QueryContext(ctx, query, top)
	if err != nil {
		return nil, fmt.Errorf("querying weekly counts: %w", err)
	}
	defer rows.Close()

	counts := []models.WeeklyCount{}
	for rows.Next() {
		var c models.WeeklyCount
		if err := rows.Scan(&c.Week, &c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning weekly count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
