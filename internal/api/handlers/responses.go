package handlers

import (
	"net/http"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// responseDetail is a stored response with everything derived from it.
type responseDetail struct {
	*models.Response
	Links         []models.Link             `json:"links"`
	SearchQueries []models.SearchQuery      `json:"search_queries"`
	Sentiments    []models.BrandSentiment   `json:"sentiments"`
	FollowUps     []models.ResponseFollowUp `json:"followups"`
}

// ListResponses handles GET /api/responses. Supported query parameters are
// provider, tag, prompt, limit and offset.
func ListResponses(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tagID, err := queryID(r, "tag")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		promptID, err := queryID(r, "prompt")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		responses, err := store.ListResponses(r.Context(), storage.ResponseFilter{
			Provider: strings.TrimSpace(r.URL.Query().Get("provider")),
			TagID:    tagID,
			PromptID: promptID,
			Limit:    queryInt(r, "limit", 100),
			Offset:   queryInt(r, "offset", 0),
		})
		if err != nil {
			writeDomainError(w, err, "Failed to list responses")
			return
		}
		writeJSON(w, http.StatusOK, responses)
	}
}

// GetResponse handles GET /api/responses/{id}. It returns the response with
// its links, search queries, brand sentiments and follow-up threads.
func GetResponse(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := store.GetResponse(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Response")
			return
		}

		detail := responseDetail{Response: resp}
		if detail.Links, err = store.GetLinksByResponse(ctx, id); err != nil {
			writeDomainError(w, err, "Failed to get response links")
			return
		}
		if detail.SearchQueries, err = store.GetSearchQueriesByResponse(ctx, id); err != nil {
			writeDomainError(w, err, "Failed to get search queries")
			return
		}
		if detail.Sentiments, err = store.GetBrandSentimentsByResponse(ctx, id); err != nil {
			writeDomainError(w, err, "Failed to get brand sentiments")
			return
		}
		if detail.FollowUps, err = store.ListFollowUps(ctx, id); err != nil {
			writeDomainError(w, err, "Failed to list follow-ups")
			return
		}

		if detail.Links == nil {
			detail.Links = []models.Link{}
		}
		if detail.SearchQueries == nil {
			detail.SearchQueries = []models.SearchQuery{}
		}
		if detail.Sentiments == nil {
			detail.Sentiments = []models.BrandSentiment{}
		}
		if detail.FollowUps == nil {
			detail.FollowUps = []models.ResponseFollowUp{}
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// SearchResponses handles GET /api/search?q={query}&limit={limit}. It
// performs full-text search over response content using FTS5.
func SearchResponses(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if strings.TrimSpace(query) == "" {
			writeJSON(w, http.StatusOK, []models.Response{})
			return
		}

		responses, err := store.SearchResponses(r.Context(), query, queryInt(r, "limit", 20))
		if err != nil {
			writeDomainError(w, err, "Search failed")
			return
		}
		writeJSON(w, http.StatusOK, responses)
	}
}
