package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"golang.org/x/sync/errgroup"
)

type BulkTransitionRequest struct {
	ResultIDs []string              `json:"result_ids"`
	Target    models.ApprovalStatus `json:"target_status"`
	ActorID   string                `json:"actor_id"`
	Notes     *string               `json:"notes,omitempty"`
}

// BulkOutcome is the result of one record within a bulk request.
type BulkOutcome struct {
	ResultID  string `json:"result_id"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

type BulkTransitionResult struct {
	TargetStatus   models.ApprovalStatus `json:"target_status"`
	SucceededCount int                   `json:"succeeded_count"`
	FailedCount    int                   `json:"failed_count"`
	TotalCount     int                   `json:"total_count"`
	Results        []BulkOutcome         `json:"results"`

	// Statistics is nil when the recount after the bulk run failed.
	Statistics *ReviewStatistics `json:"statistics"`
}

// MarshalJSON adds approved_count or rejected_count, whichever matches the
// target status.
func (r BulkTransitionResult) MarshalJSON() ([]byte, error) {
	type plain BulkTransitionResult
	out := struct {
		plain
		ApprovedCount *int `json:"approved_count,omitempty"`
		RejectedCount *int `json:"rejected_count,omitempty"`
	}{plain: plain(r)}

	count := r.SucceededCount
	switch r.TargetStatus {
	case models.ApprovalApproved:
		out.ApprovedCount = &count
	case models.ApprovalRejected:
		out.RejectedCount = &count
	}
	return json.Marshal(out)
}

// dedupeIDs trims ids, drops blanks and keeps the first occurrence of each.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// BulkTransition attempts every distinct id independently. A failing record
// never blocks the others and nothing is rolled back.
func (s *reviewService) BulkTransition(ctx context.Context, req BulkTransitionRequest) (*BulkTransitionResult, error) {
	op := s.svcLogger.WithOperation(ctx, "bulk_transition_results", req.ActorID)

	ids := dedupeIDs(req.ResultIDs)
	if len(ids) == 0 {
		op.LogResult("", "graded_result", ErrEmptySelection)
		return nil, ErrEmptySelection
	}
	if errs := ValidateTransitionArgs(req.Target, req.ActorID, req.Notes); len(errs) > 0 {
		op.LogResult("", "graded_result", errs)
		return nil, errs
	}
	s.metrics.ObserveBulkSize(len(ids))

	outcomes := make([]BulkOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(s.config.BulkConcurrency)

	for i, id := range ids {
		i, id := i, id // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			_, err := s.applyTransition(ctx, TransitionRequest{
				ResultID: id,
				Target:   req.Target,
				ActorID:  req.ActorID,
				Notes:    req.Notes,
			})
			s.metrics.ObserveTransition(req.Target, err)
			outcomes[i] = BulkOutcome{ResultID: id, Success: err == nil}
			if err != nil {
				outcomes[i].ErrorCode = ErrorCode(err)
				outcomes[i].Message = err.Error()
			}
			// Per-record failures are reported in the outcome, never to the group.
			return nil
		})
	}
	_ = g.Wait()

	report := &BulkTransitionResult{
		TargetStatus: req.Target,
		TotalCount:   len(ids),
		Results:      outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			report.SucceededCount++
		} else {
			report.FailedCount++
		}
	}

	stats, err := s.computeStatistics(ctx, s.config.Now().UTC())
	if err != nil {
		s.logger.Warn("Failed to recompute statistics after bulk transition", "error", err)
	} else {
		report.Statistics = stats
	}

	s.events.BulkTransitioned(ctx, report, req.ActorID)
	op.LogResult("", "graded_result", nil)
	op.LogAudit(AuditEventTransition, "", "graded_result", nil, map[string]interface{}{
		"target_status":   req.Target,
		"total_count":     report.TotalCount,
		"succeeded_count": report.SucceededCount,
	})
	s.logger.Info("Bulk transition finished",
		"target_status", req.Target,
		"total_count", report.TotalCount,
		"succeeded_count", report.SucceededCount,
		"failed_count", report.FailedCount)

	return report, nil
}
