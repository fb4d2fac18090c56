package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const countStatisticsSQL = `
SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE approval_status = @pending) AS pending,
	COUNT(*) FILTER (WHERE approval_status = @approved) AS approved,
	COUNT(*) FILTER (WHERE approval_status = @rejected) AS rejected,
	COUNT(*) FILTER (WHERE created_at >= @since AND created_at <= @as_of) AS recent_created,
	COUNT(*) FILTER (WHERE approval_status = @approved AND approved_at >= @since AND approved_at <= @as_of) AS recent_approved,
	COUNT(*) FILTER (WHERE approval_status = @rejected AND approved_at >= @since AND approved_at <= @as_of) AS recent_rejected
FROM graded_results`

type ResultPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.GradedResult) error {
	return repositories.Classify(r.db.WithContext(ctx).Create(result).Error)
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, id string) (*models.GradedResult, error) {
	var result models.GradedResult
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&result).Error; err != nil {
		return nil, repositories.Classify(err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByStatus(ctx context.Context, status models.ApprovalStatus, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.GradedResult{}).Where("approval_status = ?", status)
	return r.list(query, filters)
}

func (r *ResultPostgreSQL) ListApprovedByStudent(ctx context.Context, matNo string, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.GradedResult{}).
		Where("student_mat_no = ? AND approval_status = ?", matNo, models.ApprovalApproved)
	return r.list(query, filters)
}

func (r *ResultPostgreSQL) list(query *gorm.DB, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	var results []*models.GradedResult
	var total int64

	// apply filter first
	query = r.helpers.ApplyResultFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, repositories.Classify(err)
	}

	// then apply pagination and sorting
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&results).Error; err != nil {
		return nil, 0, repositories.Classify(err)
	}

	return results, total, nil
}

func (r *ResultPostgreSQL) TransitionStatus(ctx context.Context, id string, t repositories.StatusTransition) (*models.GradedResult, error) {
	if !t.From.CanTransitionTo(t.To) {
		return nil, repositories.ErrStatusConflict
	}

	var updated models.GradedResult
	res := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ? AND approval_status = ?", id, t.From).
		Updates(map[string]interface{}{
			"approval_status": t.To,
			"approved_by":     t.ActorID,
			"approved_at":     t.At,
			"approval_notes":  t.Notes,
			"updated_at":      t.At,
		})
	if res.Error != nil {
		return nil, repositories.Classify(res.Error)
	}
	if res.RowsAffected == 1 {
		return &updated, nil
	}

	// Nothing matched: either the id is unknown or the status moved on.
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.GradedResult{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return nil, repositories.Classify(err)
	}
	if count == 0 {
		return nil, repositories.ErrRecordNotFound
	}
	return nil, repositories.ErrStatusConflict
}

func (r *ResultPostgreSQL) CountStatistics(ctx context.Context, since, asOf time.Time) (*repositories.ResultCounts, error) {
	var counts repositories.ResultCounts
	err := r.db.WithContext(ctx).Raw(countStatisticsSQL, map[string]interface{}{
		"pending":  models.ApprovalPending,
		"approved": models.ApprovalApproved,
		"rejected": models.ApprovalRejected,
		"since":    since,
		"as_of":    asOf,
	}).Scan(&counts).Error
	if err != nil {
		return nil, repositories.Classify(err)
	}
	return &counts, nil
}
