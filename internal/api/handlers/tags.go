package handlers

import (
	"net/http"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/storage"
)

type tagInput struct {
	Name string `json:"name"`
}

// ListTags handles GET /api/tags.
func ListTags(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := store.ListTags(r.Context())
		if err != nil {
			writeDomainError(w, err, "Failed to get tags")
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

// CreateTag handles POST /api/tags. Tag names are case-insensitive; creating
// an existing tag returns it.
func CreateTag(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body tagInput
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		id, err := store.CreateTag(ctx, body.Name)
		if err != nil {
			writeDomainError(w, err, "Failed to create tag")
			return
		}
		tag, err := store.GetTag(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Tag")
			return
		}
		writeJSON(w, http.StatusCreated, tag)
	}
}

// RenameTag handles PUT /api/tags/{id}.
func RenameTag(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var body tagInput
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		if err := store.RenameTag(ctx, id, body.Name); err != nil {
			writeDomainError(w, err, "Tag")
			return
		}
		tag, err := store.GetTag(ctx, id)
		if err != nil {
			writeDomainError(w, err, "Tag")
			return
		}
		writeJSON(w, http.StatusOK, tag)
	}
}

// DeleteTag handles DELETE /api/tags/{id}. The tag is detached from every
// prompt that carried it.
func DeleteTag(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := store.DeleteTag(r.Context(), id); err != nil {
			writeDomainError(w, err, "Tag")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
