package storage

import (
	"context"
	"fmt"

	"github.com/hoanghai1803/citewatch/internal/models"
)

// GetSearchQueriesByResponse returns the search queries a response issued.
func (s *Store) GetSearchQueriesByResponse(ctx context.Context, responseID int64) ([]models.SearchQuery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, response_id, query FROM search_queries WHERE response_id = ? ORDER BY id`, responseID)
	if err != nil {
		return nil, fmt.Errorf("querying search queries: %w", err)
	}
	defer rows.Close()

	queries := []models.SearchQuery{}
	for rows.Next() {
		var q models.SearchQuery
		if err := rows.Scan(&q.ID, &q.ResponseID, &q.Query); err != nil {
			return nil, fmt.Errorf("scanning search query: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// GetBrandSentimentsByResponse returns the brand sentiments of a response.
func (s *Store) GetBrandSentimentsByResponse(ctx context.Context, responseID int64) ([]models.BrandSentiment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, response_id, brand, sentiment FROM brand_sentiment WHERE response_id = ? ORDER BY brand, id`, responseID)
	if err != nil {
		return nil, fmt.Errorf("querying brand sentiments: %w", err)
	}
	defer rows.Close()

	sentiments := []models.BrandSentiment{}
	for rows.Next() {
		var bs models.BrandSentiment
		if err := rows.Scan(&bs.ID, &bs.ResponseID, &bs.Brand, &bs.Sentiment); err != nil {
			return nil, fmt.Errorf("scanning brand sentiment: %w", err)
		}
		sentiments = append(sentiments, bs)
	}
	return sentiments, rows.Err()
}

// GetBrandScores sums sentiment per brand (positive +1, neutral 0,
// negative -1), highest score first.
func (s *Store) GetBrandScores(ctx context.Context) ([]models.BrandScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT brand,
				SUM(CASE sentiment WHEN 'positive' THEN 1 WHEN 'negative' THEN -1 ELSE 0 END) AS score,
				COUNT(id)
		 FROM brand_sentiment
		 GROUP BY brand
		 ORDER BY score DESC, brand`)
	if err != nil {
		return nil, fmt.Errorf("querying brand scores: %w", err)
	}
	defer rows.Close()

	scores := []models.BrandScore{}
	for rows.Next() {
		var bs models.BrandScore
		if err := rows.Scan(&bs.Brand, &bs.Score, &bs.Mentions); err != nil {
			return nil, fmt.Errorf("scanning brand score: %w", err)
		}
		scores = append(scores, bs)
	}
	return scores, rows.Err()
}
