package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/result-review-service/internal/events"
	"github.com/SAP-F-2025/result-review-service/internal/models"
)

// ReviewEventService publishes review lifecycle events after the store has
// committed the change. Publishing is best effort: failures are logged and
// never reported to the caller of the originating operation.
type ReviewEventService interface {
	ResultSubmitted(ctx context.Context, result *models.GradedResult)
	ResultDecided(ctx context.Context, result *models.GradedResult)
	BulkTransitioned(ctx context.Context, report *BulkTransitionResult, actorID string)
}

type reviewEventService struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewReviewEventService(eventPublisher events.EventPublisher, logger *slog.Logger) ReviewEventService {
	return &reviewEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

func (s *reviewEventService) ResultSubmitted(ctx context.Context, result *models.GradedResult) {
	s.publish(ctx, events.NewResultSubmittedEvent(result), "result_id", result.ID)
}

func (s *reviewEventService) ResultDecided(ctx context.Context, result *models.GradedResult) {
	s.publish(ctx, events.NewResultDecidedEvent(result), "result_id", result.ID)
}

func (s *reviewEventService) BulkTransitioned(ctx context.Context, report *BulkTransitionResult, actorID string) {
	data := events.ResultsBulkTransitionedEvent{
		TargetStatus:   report.TargetStatus,
		ActorID:        actorID,
		TotalCount:     report.TotalCount,
		SucceededCount: report.SucceededCount,
		SucceededIDs:   []string{},
		FailedIDs:      []string{},
	}
	for _, outcome := range report.Results {
		if outcome.Success {
			data.SucceededIDs = append(data.SucceededIDs, outcome.ResultID)
		} else {
			data.FailedIDs = append(data.FailedIDs, outcome.ResultID)
		}
	}
	s.publish(ctx, events.NewResultsBulkTransitionedEvent(data), "target_status", report.TargetStatus)
}

func (s *reviewEventService) publish(ctx context.Context, event *events.ReviewEvent, args ...any) {
	if s.eventPublisher == nil {
		return
	}
	// Committed changes are published even if the request was cancelled.
	if err := s.eventPublisher.PublishReviewEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("Failed to publish review event",
			append([]any{"event_type", event.Type, "event_id", event.ID, "error", err}, args...)...)
		return
	}
	s.logger.Debug("Review event published", append([]any{"event_type", event.Type, "event_id", event.ID}, args...)...)
}
