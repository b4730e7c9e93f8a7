package handlers

import (
	"net/http"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/storage"
)

type competitorInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListCompetitors handles GET /api/competitors.
func ListCompetitors(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		competitors, err := store.ListCompetitors(r.Context())
		if err != nil {
			writeDomainError(w, err, "Failed to get competitors")
			return
		}
		writeJSON(w, http.StatusOK, competitors)
	}
}

// CreateCompetitor handles POST /api/competitors. Competitor names are
// tracked in brand sentiment on every subsequent run.
func CreateCompetitor(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body competitorInput
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		id, err := store.CreateCompetitor(ctx, body.Name, body.URL)
		if err != nil {
			writeDomainError(w, err, "Failed to create competitor")
			return
		}
		c, err := store.GetCompetitor(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Competitor")
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// UpdateCompetitor handles PUT /api/competitors/{id}.
func UpdateCompetitor(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var body competitorInput
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		if err := store.UpdateCompetitor(ctx, id, body.Name, body.URL); err != nil {
			writeDomainError(w, err, "Competitor")
			return
		}
		c, err := store.GetCompetitor(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Competitor")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// DeleteCompetitor handles DELETE /api/competitors/{id}.
func DeleteCompetitor(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := store.DeleteCompetitor(r.Context(), id); err != nil {
			writeDomainError(w, err, "Competitor")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
