package handlers

import (
	"context"
	"net/http"

	"github.com/hoanghai1803/citewatch/internal/pipeline"
)

// StartFollowUp handles POST /api/responses/{id}/followups. It opens an empty
// follow-up thread on a response from a provider that supports continuation.
func StartFollowUp(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		followUpID, err := runner.StartFollowUp(r.Context(), id)
		if err != nil {
			writeDomainError(w, err, "Response")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": followUpID})
	}
}

// GetFollowUp handles GET /api/responses/{id}/followups/{followupID}. The
// conversation is returned as display entries in order.
func GetFollowUp(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, followUpID, ok := followUpParams(w, r)
		if !ok {
			return
		}

		conv, err := runner.FollowUpConversation(r.Context(), responseID, followUpID)
		if err != nil {
			writeDomainError(w, err, "Follow-up")
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

// ContinueFollowUp handles POST /api/responses/{id}/followups/{followupID}.
// The body carries the next user message; the reply is requested from the
// response's model and appended to the thread.
func ContinueFollowUp(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, followUpID, ok := followUpParams(w, r)
		if !ok {
			return
		}

		var body struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		conv, err := runner.ContinueFollowUp(context.WithoutCancel(r.Context()), responseID, followUpID, body.Message)
		if err != nil {
			writeDomainError(w, err, "Follow-up")
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

// DeleteFollowUp handles DELETE /api/responses/{id}/followups/{followupID}.
func DeleteFollowUp(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, followUpID, ok := followUpParams(w, r)
		if !ok {
			return
		}

		if err := runner.DeleteFollowUp(r.Context(), responseID, followUpID); err != nil {
			writeDomainError(w, err, "Follow-up")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func followUpParams(w http.ResponseWriter, r *http.Request) (responseID, followUpID int64, ok bool) {
	responseID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	followUpID, err = parseID(r, "followupID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return responseID, followUpID, true
}
