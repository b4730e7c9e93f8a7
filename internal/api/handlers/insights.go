package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/citewatch/internal/storage"
)

// trendTop is how many hostnames and brands the weekly trends include.
const trendTop = 10

// GetLinks handles GET /api/links. It returns the most recently cited links
// and how often each hostname has been cited overall.
func GetLinks(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		recent, err := store.GetRecentLinks(ctx, queryInt(r, "limit", 20))
		if err != nil {
			writeDomainError(w, err, "Failed to get links")
			return
		}
		counts, err := store.GetHostnameCounts(ctx)
		if err != nil {
			writeDomainError(w, err, "Failed to get hostname counts")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"recent":    recent,
			"hostnames": counts,
		})
	}
}

// GetLinksByHostname handles GET /api/links/{hostname}.
func GetLinksByHostname(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostname := chi.URLParam(r, "hostname")
		if hostname == "" {
			writeError(w, http.StatusBadRequest, "hostname parameter is required")
			return
		}

		links, err := store.GetLinksByHostname(r.Context(), hostname)
		if err != nil {
			writeDomainError(w, err, "Failed to get links")
			return
		}
		writeJSON(w, http.StatusOK, links)
	}
}

// GetSentiments handles GET /api/sentiments. Each brand's score sums +1 for
// positive and -1 for negative mentions.
func GetSentiments(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scores, err := store.GetBrandScores(r.Context())
		if err != nil {
			writeDomainError(w, err, "Failed to get brand scores")
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

// GetTrends handles GET /api/trends. It returns weekly citation counts for
// the most cited hostnames and weekly mention counts for the most mentioned
// brands.
func GetTrends(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		hostnames, err := store.GetWeeklyHostnameCounts(ctx, trendTop)
		if err != nil {
			writeDomainError(w, err, "Failed to get hostname trends")
			return
		}
		brands, err := store.GetWeeklyBrandCounts(ctx, trendTop)
		if err != nil {
			writeDomainError(w, err, "Failed to get brand trends")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"hostnames": hostnames,
			"brands":    brands,
		})
	}
}
