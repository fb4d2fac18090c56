package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// GradingEngine grades one submission and returns the result payload.
type GradingEngine interface {
	Grade(ctx context.Context, submission *GradingSubmission) (*IngestResultRequest, error)
}

// GradingSubmission holds the uploaded files in memory for the worker.
type GradingSubmission struct {
	QuestionsFilename string
	Questions         []byte
	AnswersFilename   string
	Answers           []byte
	Guidelines        string
}

type GradingJobService interface {
	Submit(ctx context.Context, req *GradingJobRequest, requestedBy string) (*models.GradingJob, error)
	GetJob(ctx context.Context, jobID string) (*models.GradingJob, error)

	// Worker lifecycle
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type GradingJobRequest struct {
	Submission  GradingSubmission
	StudentInfo *models.StudentInfo
	ExamInfo    *models.ExamInfo
}

type queuedJob struct {
	jobID      string
	submission GradingSubmission
	student    *models.StudentInfo
	exam       *models.ExamInfo
}

type GradingJobConfig struct {
	Workers        int
	QueueSize      int
	EngineTimeout  time.Duration
	MaxUploadBytes int64
}

const interruptedJobMessage = "grading interrupted by a service restart"

type gradingJobService struct {
	repo      repositories.Repository
	engine    GradingEngine
	intake    IntakeService
	metrics   *ReviewMetrics
	logger    *slog.Logger
	svcLogger *ServiceLogger
	config    GradingJobConfig
	now       func() time.Time

	queue    chan queuedJob
	mu       sync.RWMutex
	closed   bool
	workers  errgroup.Group
	stopOnce sync.Once
	cancel   context.CancelFunc
}

func NewGradingJobService(
	repo repositories.Repository,
	engine GradingEngine,
	intake IntakeService,
	metrics *ReviewMetrics,
	logger *slog.Logger,
	config GradingJobConfig,
	serviceConfig ServiceConfig,
) GradingJobService {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}
	if config.EngineTimeout <= 0 {
		config.EngineTimeout = 2 * time.Minute
	}
	return &gradingJobService{
		repo:    repo,
		engine:  engine,
		intake:  intake,
		metrics: metrics,
		logger:  logger,
		svcLogger: NewServiceLogger(logger, LogConfig{
			Service:   "result-review-service",
			Component: "grading_jobs",
		}),
		config: config,
		now:    serviceConfig.withDefaults().Now,
		queue:  make(chan queuedJob, config.QueueSize),
	}
}

// ===== SUBMISSION =====

func (s *gradingJobService) Submit(ctx context.Context, req *GradingJobRequest, requestedBy string) (*models.GradingJob, error) {
	op := s.svcLogger.WithOperation(ctx, "submit_grading_job", requestedBy)

	if errs := s.validateSubmission(req); len(errs) > 0 {
		op.LogResult("", "grading_job", errs)
		return nil, errs
	}

	sub := req.Submission
	job := &models.GradingJob{
		ID:                uuid.NewString(),
		Status:            models.GradingJobQueued,
		RequestedBy:       requestedBy,
		QuestionsFilename: sub.QuestionsFilename,
		QuestionsSize:     int64(len(sub.Questions)),
	}
	if len(sub.Answers) > 0 {
		name, size := sub.AnswersFilename, int64(len(sub.Answers))
		job.AnswersFilename = &name
		job.AnswersSize = &size
	}
	if g := strings.TrimSpace(sub.Guidelines); g != "" {
		job.Guidelines = &g
	}
	if req.StudentInfo != nil {
		job.StudentInfo = datatypes.NewJSONType(*req.StudentInfo)
	}
	if req.ExamInfo != nil {
		job.ExamInfo = datatypes.NewJSONType(*req.ExamInfo)
	}

	if err := s.repo.GradingJob().Create(ctx, job); err != nil {
		err = fmt.Errorf("failed to create grading job: %w", err)
		op.LogResult("", "grading_job", err)
		return nil, err
	}

	if err := s.enqueue(queuedJob{jobID: job.ID, submission: sub, student: req.StudentInfo, exam: req.ExamInfo}); err != nil {
		s.fail(context.WithoutCancel(ctx), job.ID, err.Error())
		op.LogResult(job.ID, "grading_job", err)
		return nil, err
	}

	op.LogResult(job.ID, "grading_job", nil)
	op.LogAudit(AuditEventCreate, job.ID, "grading_job", nil, job.Status)
	return job, nil
}

func (s *gradingJobService) validateSubmission(req *GradingJobRequest) ValidationErrors {
	var errs ValidationErrors
	if req == nil {
		return append(errs, *NewValidationError("questions_file", "is required", nil))
	}
	sub := req.Submission
	switch {
	case len(sub.Questions) == 0:
		errs = append(errs, *NewValidationError("questions_file", "must not be empty", sub.QuestionsFilename))
	case s.config.MaxUploadBytes > 0 && int64(len(sub.Questions)) > s.config.MaxUploadBytes:
		errs = append(errs, *NewValidationError("questions_file", fmt.Sprintf("must not exceed %d bytes", s.config.MaxUploadBytes), len(sub.Questions)))
	}
	if strings.TrimSpace(sub.QuestionsFilename) == "" {
		errs = append(errs, *NewValidationError("questions_file", "must have a file name", nil))
	}
	if s.config.MaxUploadBytes > 0 && int64(len(sub.Answers)) > s.config.MaxUploadBytes {
		errs = append(errs, *NewValidationError("answers_file", fmt.Sprintf("must not exceed %d bytes", s.config.MaxUploadBytes), len(sub.Answers)))
	}
	return errs
}

func (s *gradingJobService) enqueue(item queuedJob) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrGradingQueueFull
	}
	select {
	case s.queue <- item:
		return nil
	default:
		return ErrGradingQueueFull
	}
}

func (s *gradingJobService) GetJob(ctx context.Context, jobID string) (*models.GradingJob, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, ValidationErrors{*NewValidationError("job_id", "is required", jobID)}
	}
	job, err := s.repo.GradingJob().GetByID(ctx, jobID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGradingJobNotFound
		}
		return nil, fmt.Errorf("failed to get grading job: %w", err)
	}
	return job, nil
}

// ===== WORKERS =====

// Start fails jobs a previous process left unfinished and launches the workers.
func (s *gradingJobService) Start(ctx context.Context) error {
	failed, err := s.repo.GradingJob().FailInterrupted(ctx, interruptedJobMessage, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to recover interrupted grading jobs: %w", err)
	}
	if failed > 0 {
		s.logger.Warn("Failed grading jobs interrupted by restart", "count", failed)
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	for i := 0; i < s.config.Workers; i++ {
		i := i // per-iteration copy (go 1.21 loop semantics)
		s.workers.Go(func() error {
			s.runWorker(workerCtx, i)
			return nil
		})
	}
	s.logger.Info("Grading workers started", "workers", s.config.Workers, "queue_size", s.config.QueueSize)
	return nil
}

// Shutdown stops accepting jobs and waits for queued jobs to drain. Jobs still
// running when ctx expires are cancelled and marked failed.
func (s *gradingJobService) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		_ = s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if s.cancel != nil {
			s.cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (s *gradingJobService) runWorker(ctx context.Context, worker int) {
	for item := range s.queue {
		if ctx.Err() != nil {
			s.fail(context.Background(), item.jobID, interruptedJobMessage)
			continue
		}
		s.process(ctx, worker, item)
	}
}

func (s *gradingJobService) process(ctx context.Context, worker int, item queuedJob) {
	logger := s.logger.With("job_id", item.jobID, "worker", worker)
	storeCtx := context.WithoutCancel(ctx)

	if err := s.repo.GradingJob().MarkRunning(storeCtx, item.jobID, s.now().UTC()); err != nil {
		logger.Error("Failed to mark grading job running", "error", err)
		return
	}

	engineCtx, cancel := context.WithTimeout(ctx, s.config.EngineTimeout)
	payload, err := s.engine.Grade(engineCtx, &item.submission)
	cancel()
	if err == nil && payload == nil {
		err = fmt.Errorf("%w: empty response", ErrGradingEngine)
	}
	if err != nil {
		logger.Warn("Grading engine failed", "error", err)
		s.fail(storeCtx, item.jobID, gradingFailureMessage(err))
		return
	}

	applyJobMetadata(payload, item)
	jobID := item.jobID
	payload.GradingJobID = &jobID

	summary, err := s.intake.IngestResult(storeCtx, payload, "grading-job:"+item.jobID)
	if err != nil {
		logger.Warn("Graded result rejected at intake", "error", err)
		s.fail(storeCtx, item.jobID, "graded result rejected: "+err.Error())
		return
	}

	if err := s.repo.GradingJob().MarkCompleted(storeCtx, item.jobID, summary.ResultID, s.now().UTC()); err != nil {
		logger.Error("Failed to mark grading job completed", "result_id", summary.ResultID, "error", err)
		return
	}
	s.metrics.ObserveGradingJob(models.GradingJobCompleted)
	logger.Info("Grading job completed", "result_id", summary.ResultID)
}

func (s *gradingJobService) fail(ctx context.Context, jobID, message string) {
	if err := s.repo.GradingJob().MarkFailed(ctx, jobID, message, s.now().UTC()); err != nil {
		s.logger.Error("Failed to mark grading job failed", "job_id", jobID, "error", err)
		return
	}
	s.metrics.ObserveGradingJob(models.GradingJobFailed)
}

func gradingFailureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "grading engine timed out"
	}
	return err.Error()
}

// applyJobMetadata lets lecturer supplied student and exam details override
// what the engine extracted from the script.
func applyJobMetadata(payload *IngestResultRequest, item queuedJob) {
	if item.student != nil {
		if v := strings.TrimSpace(item.student.Name); v != "" {
			payload.StudentInfo.Name = v
		}
		if v := strings.TrimSpace(item.student.Level); v != "" {
			payload.StudentInfo.Level = v
		}
		if v := strings.TrimSpace(item.student.MatNo); v != "" {
			payload.StudentInfo.MatNo = v
		}
	}
	if item.exam != nil {
		if v := strings.TrimSpace(item.exam.ExamTitle); v != "" {
			payload.ExamInfo.ExamTitle = v
		}
		if v := strings.TrimSpace(item.exam.Subject); v != "" {
			payload.ExamInfo.Subject = v
		}
	}
	if strings.TrimSpace(payload.ExamInfo.QuestionsFilename) == "" {
		payload.ExamInfo.QuestionsFilename = item.submission.QuestionsFilename
	}
	if payload.ExamInfo.AnswersFilename == nil && item.submission.AnswersFilename != "" {
		name := item.submission.AnswersFilename
		payload.ExamInfo.AnswersFilename = &name
	}
	if payload.Summary.GuidelinesUsed == nil && strings.TrimSpace(item.submission.Guidelines) != "" {
		g := item.submission.Guidelines
		payload.Summary.GuidelinesUsed = &g
	}
}
