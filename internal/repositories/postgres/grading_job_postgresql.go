package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"gorm.io/gorm"
)

type GradingJobPostgreSQL struct {
	db *gorm.DB
}

func NewGradingJobPostgreSQL(db *gorm.DB) repositories.GradingJobRepository {
	return &GradingJobPostgreSQL{db: db}
}

func (g *GradingJobPostgreSQL) Create(ctx context.Context, job *models.GradingJob) error {
	return repositories.Classify(g.db.WithContext(ctx).Create(job).Error)
}

func (g *GradingJobPostgreSQL) GetByID(ctx context.Context, id string) (*models.GradingJob, error) {
	var job models.GradingJob
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, repositories.Classify(err)
	}
	return &job, nil
}

func (g *GradingJobPostgreSQL) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return g.update(ctx, id, []models.GradingJobStatus{models.GradingJobQueued}, map[string]interface{}{
		"status":     models.GradingJobRunning,
		"started_at": at,
		"updated_at": at,
	})
}

func (g *GradingJobPostgreSQL) MarkCompleted(ctx context.Context, id, resultID string, at time.Time) error {
	return g.update(ctx, id, []models.GradingJobStatus{models.GradingJobRunning}, map[string]interface{}{
		"status":       models.GradingJobCompleted,
		"result_id":    resultID,
		"completed_at": at,
		"updated_at":   at,
	})
}

func (g *GradingJobPostgreSQL) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	return g.update(ctx, id, []models.GradingJobStatus{models.GradingJobQueued, models.GradingJobRunning}, map[string]interface{}{
		"status":        models.GradingJobFailed,
		"error_message": message,
		"completed_at":  at,
		"updated_at":    at,
	})
}

func (g *GradingJobPostgreSQL) FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Model(&models.GradingJob{}).
		Where("status IN ?", []models.GradingJobStatus{models.GradingJobQueued, models.GradingJobRunning}).
		Updates(map[string]interface{}{
			"status":        models.GradingJobFailed,
			"error_message": message,
			"completed_at":  at,
			"updated_at":    at,
		})
	return res.RowsAffected, repositories.Classify(res.Error)
}

// update moves a job forward only from one of the allowed statuses.
func (g *GradingJobPostgreSQL) update(ctx context.Context, id string, from []models.GradingJobStatus, values map[string]interface{}) error {
	res := g.db.WithContext(ctx).Model(&models.GradingJob{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if res.Error != nil {
		return repositories.Classify(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := g.db.WithContext(ctx).Model(&models.GradingJob{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return repositories.Classify(err)
	}
	if count == 0 {
		return repositories.ErrRecordNotFound
	}
	return repositories.ErrStatusConflict
}
