package services

import (
	"strings"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

// TransitionRequest asks to move one result out of pending.
type TransitionRequest struct {
	ResultID string                `json:"result_id"`
	Target   models.ApprovalStatus `json:"target_status"`
	ActorID  string                `json:"actor_id"`
	Notes    *string               `json:"notes,omitempty"`
}

// CanTransition reports whether the approval lifecycle allows from -> to.
// pending is the only state with outgoing edges.
func CanTransition(from, to models.ApprovalStatus) bool {
	return from.CanTransitionTo(to)
}

// ValidateTransitionArgs checks the arguments that do not depend on the
// stored record. The result id is checked separately by the caller.
func ValidateTransitionArgs(target models.ApprovalStatus, actorID string, notes *string) ValidationErrors {
	var errs ValidationErrors

	if target != models.ApprovalApproved && target != models.ApprovalRejected {
		errs = append(errs, *NewValidationError("target_status", "must be approved or rejected", target))
	}
	if strings.TrimSpace(actorID) == "" {
		errs = append(errs, *NewValidationError("actor_id", "is required", actorID))
	}
	if target == models.ApprovalRejected && normalizeNotes(notes) == nil {
		errs = append(errs, *NewValidationError("notes", "are required when rejecting a result", nil))
	}

	return errs
}

// ValidateTransition validates a full single-record request.
func ValidateTransition(req TransitionRequest) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(req.ResultID) == "" {
		errs = append(errs, *NewValidationError("result_id", "is required", req.ResultID))
	}
	return append(errs, ValidateTransitionArgs(req.Target, req.ActorID, req.Notes)...)
}

// PlanTransition builds the compare-and-set the store applies atomically.
// Decisions are only taken on pending results, so the plan expects pending.
func PlanTransition(req TransitionRequest, at time.Time) (repositories.StatusTransition, error) {
	from := models.ApprovalPending
	if !CanTransition(from, req.Target) {
		return repositories.StatusTransition{}, &TransitionError{
			ResultID: req.ResultID,
			From:     string(from),
			To:       string(req.Target),
			Err:      ErrInvalidStateTransition,
		}
	}
	return repositories.StatusTransition{
		From:    from,
		To:      req.Target,
		ActorID: strings.TrimSpace(req.ActorID),
		Notes:   normalizeNotes(req.Notes),
		At:      at,
	}, nil
}

// normalizeNotes trims notes; blank notes become nil.
func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
