package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
)

// ResultRepository stores graded results and owns their approval columns.
type ResultRepository interface {
	Create(ctx context.Context, result *models.GradedResult) error
	GetByID(ctx context.Context, id string) (*models.GradedResult, error)

	// Query operations
	ListByStatus(ctx context.Context, status models.ApprovalStatus, filters ResultFilters) ([]*models.GradedResult, int64, error)
	ListApprovedByStudent(ctx context.Context, matNo string, filters ResultFilters) ([]*models.GradedResult, int64, error)

	// TransitionStatus applies the transition only when the stored status equals
	// t.From. It returns ErrRecordNotFound or ErrStatusConflict otherwise.
	TransitionStatus(ctx context.Context, id string, t StatusTransition) (*models.GradedResult, error)

	// CountStatistics counts every partition in one scan. Recent counters
	// include rows whose timestamp falls in [since, asOf].
	CountStatistics(ctx context.Context, since, asOf time.Time) (*ResultCounts, error)
}
