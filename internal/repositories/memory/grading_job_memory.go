package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

type GradingJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.GradingJob
}

func NewGradingJobStore() *GradingJobStore {
	return &GradingJobStore{jobs: make(map[string]*models.GradingJob)}
}

func (s *GradingJobStore) Create(ctx context.Context, job *models.GradingJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return repositories.ErrDuplicateKey
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	c := *job
	s.jobs[job.ID] = &c
	return nil
}

func (s *GradingJobStore) GetByID(ctx context.Context, id string) (*models.GradingJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	c := *job
	return &c, nil
}

func (s *GradingJobStore) MarkRunning(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, func(job *models.GradingJob) bool {
		if job.Status != models.GradingJobQueued {
			return false
		}
		job.Status = models.GradingJobRunning
		job.StartedAt = &at
		job.UpdatedAt = at
		return true
	})
}

func (s *GradingJobStore) MarkCompleted(ctx context.Context, id, resultID string, at time.Time) error {
	return s.update(ctx, id, func(job *models.GradingJob) bool {
		if job.Status != models.GradingJobRunning {
			return false
		}
		job.Status = models.GradingJobCompleted
		job.ResultID = &resultID
		job.CompletedAt = &at
		job.UpdatedAt = at
		return true
	})
}

func (s *GradingJobStore) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	return s.update(ctx, id, func(job *models.GradingJob) bool {
		if job.IsFinished() {
			return false
		}
		failJob(job, message, at)
		return true
	})
}

func (s *GradingJobStore) FailInterrupted(ctx context.Context, message string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, job := range s.jobs {
		if !job.IsFinished() {
			failJob(job, message, at)
			n++
		}
	}
	return n, nil
}

func (s *GradingJobStore) update(ctx context.Context, id string, apply func(*models.GradingJob) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return repositories.ErrRecordNotFound
	}
	if !apply(job) {
		return repositories.ErrStatusConflict
	}
	return nil
}

func failJob(job *models.GradingJob, message string, at time.Time) {
	msg := message
	job.Status = models.GradingJobFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &at
	job.UpdatedAt = at
}
