package storage

import (
	"context"
	"testing"

	"github.com/hoanghai1803/citewatch/internal/models"
)

func TestAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	promptID := seedPrompt(t, store, "q", "openai:gpt-5")

	bundles := []models.NewResponse{
		{
			PromptID: promptID, Model: "openai:gpt-5", Content: "a",
			Links: []models.Link{
				{URL: "https://a.com/1", Hostname: "a.com"},
				{URL: "https://b.com/1", Hostname: "b.com"},
			},
			Sentiments: []models.BrandSentiment{
				{Brand: "Timescale", Sentiment: models.SentimentPositive},
				{Brand: "InfluxDB", Sentiment: models.SentimentNegative},
			},
		},
		{
			PromptID: promptID, Model: "xai:grok-3", Content: "b",
			Links: []models.Link{{URL: "https://a.com/2", Hostname: "a.com"}},
			Sentiments: []models.BrandSentiment{
				{Brand: "Timescale", Sentiment: models.SentimentNeutral},
			},
		},
	}
	for i := range bundles {
		if _, err := store.SaveResponse(ctx, &bundles[i]); err != nil {
			t.Fatalf("SaveResponse() error: %v", err)
		}
	}

	counts, err := store.GetHostnameCounts(ctx)
	if err != nil {
		t.Fatalf("GetHostnameCounts() error: %v", err)
	}
	if len(counts) != 2 || counts[0].Hostname != "a.com" || counts[0].Count != 2 {
		t.Errorf("hostname counts = %+v", counts)
	}

	byHost, _ := store.GetLinksByHostname(ctx, "a.com")
	if len(byHost) != 2 {
		t.Errorf("got %d links for a.com, want 2", len(byHost))
	}

	recent, _ := store.GetRecentLinks(ctx, 2)
	if len(recent) != 2 {
		t.Errorf("got %d recent links, want 2", len(recent))
	}

	scores, err := store.GetBrandScores(ctx)
	if err != nil {
		t.Fatalf("GetBrandScores() error: %v", err)
	}
	want := map[string]int{"Timescale": 1, "InfluxDB": -1}
	for _, s := range scores {
		if want[s.Brand] != s.Score {
			t.Errorf("score for %s = %d, want %d", s.Brand, s.Score, want[s.Brand])
		}
	}

	weeklyHosts, err := store.GetWeeklyHostnameCounts(ctx, 1)
	if err != nil {
		t.Fatalf("GetWeeklyHostnameCounts() error: %v", err)
	}
	if len(weeklyHosts) != 1 || weeklyHosts[0].Key != "a.com" || weeklyHosts[0].Count != 2 {
		t.Errorf("weekly hostnames = %+v", weeklyHosts)
	}

	weeklyBrands, err := store.GetWeeklyBrandCounts(ctx, 5)
	if err != nil {
		t.Fatalf("GetWeeklyBrandCounts() error: %v", err)
	}
	if len(weeklyBrands) != 2 || weeklyBrands[0].Key != "Timescale" {
		t.Errorf("weekly brands = %+v", weeklyBrands)
	}
}
