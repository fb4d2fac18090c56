package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/cache"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

// ReviewService is the lecturer side of the approval workflow. Callers are
// expected to have checked the lecturer role; actor ids come from the
// verified principal.
type ReviewService interface {
	// Single-record transitions
	Transition(ctx context.Context, req TransitionRequest) (*models.GradedResult, error)
	Approve(ctx context.Context, resultID, actorID string, notes *string) (*models.GradedResult, error)
	Reject(ctx context.Context, resultID, actorID string, notes *string) (*models.GradedResult, error)

	// Bulk transitions, best effort per record
	BulkTransition(ctx context.Context, req BulkTransitionRequest) (*BulkTransitionResult, error)

	// Queries
	GetResult(ctx context.Context, resultID string) (*models.GradedResult, error)
	ListByStatus(ctx context.Context, status models.ApprovalStatus, filters repositories.ResultFilters) (*ResultListResponse, error)
	GetStatistics(ctx context.Context) (*ReviewStatistics, error)
}

type ResultListResponse struct {
	Results []*models.GradedResult `json:"results"`
	Total   int64                  `json:"total"`
	Page    int                    `json:"page"`
	Size    int                    `json:"size"`
}

type reviewService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	events    ReviewEventService
	metrics   *ReviewMetrics
	logger    *slog.Logger
	svcLogger *ServiceLogger
	config    ServiceConfig
}

func NewReviewService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	eventService ReviewEventService,
	metrics *ReviewMetrics,
	logger *slog.Logger,
	config ServiceConfig,
) ReviewService {
	return &reviewService{
		repo:    repo,
		cache:   cacheService,
		events:  eventService,
		metrics: metrics,
		logger:  logger,
		svcLogger: NewServiceLogger(logger, LogConfig{
			Service:   "result-review-service",
			Component: "review",
		}),
		config: config.withDefaults(),
	}
}

// ===== SINGLE TRANSITIONS =====

func (s *reviewService) Approve(ctx context.Context, resultID, actorID string, notes *string) (*models.GradedResult, error) {
	return s.Transition(ctx, TransitionRequest{
		ResultID: resultID,
		Target:   models.ApprovalApproved,
		ActorID:  actorID,
		Notes:    notes,
	})
}

func (s *reviewService) Reject(ctx context.Context, resultID, actorID string, notes *string) (*models.GradedResult, error) {
	return s.Transition(ctx, TransitionRequest{
		ResultID: resultID,
		Target:   models.ApprovalRejected,
		ActorID:  actorID,
		Notes:    notes,
	})
}

func (s *reviewService) Transition(ctx context.Context, req TransitionRequest) (*models.GradedResult, error) {
	req.ResultID = strings.TrimSpace(req.ResultID)
	op := s.svcLogger.WithOperation(ctx, "transition_result", req.ActorID)

	if errs := ValidateTransition(req); len(errs) > 0 {
		s.metrics.ObserveTransition(req.Target, errs)
		op.LogResult(req.ResultID, "graded_result", errs)
		return nil, errs
	}

	updated, err := s.applyTransition(ctx, req)
	s.metrics.ObserveTransition(req.Target, err)
	op.LogResult(req.ResultID, "graded_result", err)
	if err != nil {
		return nil, err
	}

	op.LogAudit(AuditEventTransition, updated.ID, "graded_result", models.ApprovalPending, updated.ApprovalStatus)
	return updated, nil
}

// applyTransition runs an already validated request against the store and
// performs the post-commit side effects.
func (s *reviewService) applyTransition(ctx context.Context, req TransitionRequest) (*models.GradedResult, error) {
	plan, err := PlanTransition(req, s.config.Now().UTC())
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Result().TransitionStatus(ctx, req.ResultID, plan)
	if err != nil {
		return nil, s.describeTransitionFailure(ctx, req, err)
	}

	s.afterTransition(ctx, updated)
	return updated, nil
}

func (s *reviewService) describeTransitionFailure(ctx context.Context, req TransitionRequest, err error) error {
	switch {
	case repositories.IsNotFoundError(err):
		return &TransitionError{ResultID: req.ResultID, To: string(req.Target), Err: ErrResultNotFound}
	case repositories.IsStatusConflict(err):
		te := &TransitionError{ResultID: req.ResultID, To: string(req.Target), Err: ErrInvalidStateTransition}
		// The conflict was decided by the store; the lookup only names the state.
		if current, getErr := s.repo.Result().GetByID(ctx, req.ResultID); getErr == nil && current.ApprovalStatus.IsTerminal() {
			te.From = string(current.ApprovalStatus)
		}
		return te
	default:
		return fmt.Errorf("failed to transition result %s: %w", req.ResultID, err)
	}
}

func (s *reviewService) afterTransition(ctx context.Context, updated *models.GradedResult) {
	if updated.ApprovalStatus == models.ApprovalApproved {
		s.invalidateStudentResults(ctx, updated.StudentMatNo)
	}
	s.events.ResultDecided(ctx, updated)
}

func (s *reviewService) invalidateStudentResults(ctx context.Context, matNo string) {
	if err := s.cache.Delete(context.WithoutCancel(ctx), cache.StudentResultsKey(matNo)); err != nil {
		s.logger.Warn("Failed to invalidate student results cache", "mat_no", matNo, "error", err)
	}
}

// ===== QUERIES =====

func (s *reviewService) GetResult(ctx context.Context, resultID string) (*models.GradedResult, error) {
	resultID = strings.TrimSpace(resultID)
	if resultID == "" {
		return nil, ValidationErrors{*NewValidationError("result_id", "is required", resultID)}
	}

	result, err := s.repo.Result().GetByID(ctx, resultID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *reviewService) ListByStatus(ctx context.Context, status models.ApprovalStatus, filters repositories.ResultFilters) (*ResultListResponse, error) {
	if !status.IsValid() {
		return nil, ValidationErrors{*NewValidationError("status", "must be pending, approved or rejected", status)}
	}
	filters = normalizeFilters(filters)

	results, total, err := s.repo.Result().ListByStatus(ctx, status, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s results: %w", status, err)
	}

	return &ResultListResponse{
		Results: results,
		Total:   total,
		Page:    filters.Offset/filters.Limit + 1,
		Size:    filters.Limit,
	}, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizeFilters(filters repositories.ResultFilters) repositories.ResultFilters {
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}
	if filters.Limit > maxPageSize {
		filters.Limit = maxPageSize
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	filters.Subject = strings.TrimSpace(filters.Subject)
	filters.Search = strings.TrimSpace(filters.Search)
	return filters
}
