package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
)

// GradingJobRepository tracks uploads handed to the grading engine.
type GradingJobRepository interface {
	Create(ctx context.Context, job *models.GradingJob) error
	GetByID(ctx context.Context, id string) (*models.GradingJob, error)

	// Lifecycle
	MarkRunning(ctx context.Context, id string, at time.Time) error
	MarkCompleted(ctx context.Context, id, resultID string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error

	// FailInterrupted fails jobs left queued or running by a previous process.
	FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error)
}
