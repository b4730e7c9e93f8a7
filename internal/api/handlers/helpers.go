package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/pipeline"
	"github.com/hoanghai1803/citewatch/internal/scheduler"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// writeJSON encodes v as JSON and writes it to the response with the given
// HTTP status code. Content-Type is always set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response with the given HTTP status code.
// The response body is {"error": "message"}.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrInvalidModelFormat),
		errors.Is(err, ai.ErrUnsupportedProvider),
		errors.Is(err, ai.ErrUnknownModel),
		errors.Is(err, ai.ErrUnsupportedProviderForFollowUp),
		errors.Is(err, scheduler.ErrInvalidSchedule),
		errors.Is(err, pipeline.ErrNoModels),
		errors.Is(err, pipeline.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrProviderRequestFailed),
		errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status statusFor picks. Client errors
// carry the error text; server errors are logged and replaced by fallback.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	switch {
	case status == http.StatusNotFound:
		writeError(w, status, fallback+": not found")
	case status < http.StatusInternalServerError:
		writeError(w, status, err.Error())
	case status == http.StatusBadGateway:
		slog.Warn(fallback, "error", err)
		writeError(w, status, err.Error())
	default:
		slog.Error(fallback, "error", err)
		writeError(w, status, fallback)
	}
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseID extracts an int64 from a chi URL parameter.
func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return 0, fmt.Errorf("missing URL parameter %q", param)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %q parameter: %w", param, err)
	}
	return id, nil
}

// queryInt reads a positive integer query parameter, falling back to def
// when it is absent or invalid.
func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// queryID reads an optional int64 query parameter. Absent means 0.
func queryID(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %q query parameter: %w", name, err)
	}
	return id, nil
}
