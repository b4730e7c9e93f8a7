package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hoanghai1803/citewatch/internal/ai"
	"github.com/hoanghai1803/citewatch/internal/models"
	"github.com/hoanghai1803/citewatch/internal/storage"
)

// ErrEmptyMessage means a follow-up message was blank.
var ErrEmptyMessage = errors.New("message is required")

// Conversation is a follow-up rendered for display.
type Conversation struct {
	Response *models.Response        `json:"response"`
	FollowUp *models.ResponseFollowUp `json:"followup"`
	Entries  []ai.DisplayEntry        `json:"entries"`
}

// loadFollowUp fetches a response and one of its follow-ups. A follow-up that
// belongs to another response is reported as not found.
func (r *Runner) loadFollowUp(ctx context.Context, responseID, followUpID int64) (*models.Response, *models.ResponseFollowUp, error) {
	resp, err := r.store.GetResponse(ctx, responseID)
	if err != nil {
		return nil, nil, err
	}
	fu, err := r.store.GetFollowUp(ctx, followUpID)
	if err != nil {
		return nil, nil, err
	}
	if fu.ResponseID != responseID {
		return nil, nil, fmt.Errorf("follow-up %d of response %d: %w", followUpID, responseID, storage.ErrNotFound)
	}
	return resp, fu, nil
}

// StartFollowUp opens an empty follow-up on a response whose provider can
// continue conversations.
func (r *Runner) StartFollowUp(ctx context.Context, responseID int64) (int64, error) {
	resp, err := r.store.GetResponse(ctx, responseID)
	if err != nil {
		return 0, err
	}
	id, err := ai.ParseModelID(resp.Model)
	if err != nil {
		return 0, err
	}
	if !ai.SupportsFollowUp(id.Provider) {
		return 0, fmt.Errorf("%w: %s", ai.ErrUnsupportedProviderForFollowUp, resp.Model)
	}
	return r.store.CreateFollowUp(ctx, responseID)
}

// FollowUpConversation renders a stored follow-up.
func (r *Runner) FollowUpConversation(ctx context.Context, responseID, followUpID int64) (*Conversation, error) {
	resp, fu, err := r.loadFollowUp(ctx, responseID, followUpID)
	if err != nil {
		return nil, err
	}
	raw, err := ai.RawFor(resp.Model, resp.Raw)
	if err != nil {
		return nil, err
	}
	entries, err := ai.ParseFollowUp(resp.Prompt, raw, fu.Turns)
	if err != nil {
		return nil, err
	}
	return &Conversation{Response: resp, FollowUp: fu, Entries: entries}, nil
}

// ContinueFollowUp sends message to the model that produced the response,
// replaying the conversation so far, and appends the message and the reply
// to the follow-up.
func (r *Runner) ContinueFollowUp(ctx context.Context, responseID, followUpID int64, message string) (*Conversation, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	resp, fu, err := r.loadFollowUp(ctx, responseID, followUpID)
	if err != nil {
		return nil, err
	}
	raw, err := ai.RawFor(resp.Model, resp.Raw)
	if err != nil {
		return nil, err
	}
	prior, err := ai.PriorMessages(resp.Prompt, raw, fu.Turns)
	if err != nil {
		return nil, err
	}

	reply, err := r.responder.GetResponse(ctx, message, resp.Model, prior)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	if err := r.store.AppendFollowUpTurns(ctx, followUpID, ai.NewUserTurn(message), reply.Raw.Payload); err != nil {
		return nil, err
	}
	return r.FollowUpConversation(ctx, responseID, followUpID)
}

// DeleteFollowUp removes a follow-up thread of a response.
func (r *Runner) DeleteFollowUp(ctx context.Context, responseID, followUpID int64) error {
	if _, _, err := r.loadFollowUp(ctx, responseID, followUpID); err != nil {
		return err
	}
	return r.store.DeleteFollowUp(ctx, followUpID)
}
