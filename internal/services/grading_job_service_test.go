package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/events"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories/memory"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   []GradingSubmission
	payload func() *IngestResultRequest
	err     error
}

func (e *fakeEngine) Grade(_ context.Context, submission *GradingSubmission) (*IngestResultRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, *submission)
	if e.err != nil {
		return nil, e.err
	}
	if e.payload == nil {
		return nil, nil
	}
	return e.payload(), nil
}

func newGradingFixture(engine GradingEngine, cfg GradingJobConfig) (*memory.Repository, GradingJobService) {
	repo := memory.NewRepository()
	intake := NewIntakeService(repo, NewReviewEventService(events.NewMockEventPublisher(testLogger()), testLogger()),
		testLogger(), validator.New(), testConfig())
	svc := NewGradingJobService(repo, engine, intake, NewReviewMetrics(nil), testLogger(), cfg, testConfig())
	return repo, svc
}

func testSubmission() *GradingJobRequest {
	return &GradingJobRequest{
		Submission: GradingSubmission{
			QuestionsFilename: "questions.pdf",
			Questions:         []byte("%PDF-1.4 questions"),
			AnswersFilename:   "answers.pdf",
			Answers:           []byte("%PDF-1.4 answers"),
			Guidelines:        "Award method marks",
		},
	}
}

func TestGradingJobService_CompletesJob(t *testing.T) {
	engine := &fakeEngine{payload: validIngestRequest}
	repo, svc := newGradingFixture(engine, GradingJobConfig{Workers: 2, QueueSize: 4})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	req := testSubmission()
	req.ExamInfo = &models.ExamInfo{ExamTitle: "Mechanics II"}
	job, err := svc.Submit(ctx, req, "Dr. Smith")
	require.NoError(t, err)
	assert.Equal(t, models.GradingJobQueued, job.Status)

	require.NoError(t, svc.Shutdown(ctx))

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradingJobCompleted, stored.Status)
	require.NotNil(t, stored.ResultID)

	result, err := repo.Result().GetByID(ctx, *stored.ResultID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, result.ApprovalStatus)
	assert.Equal(t, "Mechanics II", result.ExamTitle)
	require.NotNil(t, result.GradingJobID)
	assert.Equal(t, job.ID, *result.GradingJobID)
	assert.Equal(t, "Award method marks", *result.Summary.Data().GuidelinesUsed)

	require.Len(t, engine.calls, 1)
	assert.Equal(t, "questions.pdf", engine.calls[0].QuestionsFilename)
}

func TestGradingJobService_EngineFailureFailsJob(t *testing.T) {
	engine := &fakeEngine{err: errors.New("model unavailable")}
	_, svc := newGradingFixture(engine, GradingJobConfig{Workers: 1, QueueSize: 2})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	job, err := svc.Submit(ctx, testSubmission(), "Dr. Smith")
	require.NoError(t, err)
	require.NoError(t, svc.Shutdown(ctx))

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradingJobFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "model unavailable")
	assert.Nil(t, stored.ResultID)
}

func TestGradingJobService_InvalidPayloadFailsJob(t *testing.T) {
	engine := &fakeEngine{payload: func() *IngestResultRequest {
		req := validIngestRequest()
		req.Summary.TotalScore = 99
		return req
	}}
	repo, svc := newGradingFixture(engine, GradingJobConfig{Workers: 1, QueueSize: 2})
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	job, err := svc.Submit(ctx, testSubmission(), "Dr. Smith")
	require.NoError(t, err)
	require.NoError(t, svc.Shutdown(ctx))

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GradingJobFailed, stored.Status)

	counts, err := repo.Result().CountStatistics(ctx, testNow, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Total)
}

func TestGradingJobService_QueueFull(t *testing.T) {
	_, svc := newGradingFixture(&fakeEngine{payload: validIngestRequest}, GradingJobConfig{Workers: 1, QueueSize: 1})
	ctx := context.Background()

	_, err := svc.Submit(ctx, testSubmission(), "Dr. Smith")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, testSubmission(), "Dr. Smith")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGradingQueueFull))
	assert.True(t, IsTransient(err))
}

func TestGradingJobService_ValidatesSubmission(t *testing.T) {
	_, svc := newGradingFixture(&fakeEngine{}, GradingJobConfig{MaxUploadBytes: 8})
	ctx := context.Background()

	req := testSubmission()
	req.Submission.Questions = nil
	_, err := svc.Submit(ctx, req, "Dr. Smith")
	assert.True(t, IsValidation(err))

	_, err = svc.Submit(ctx, testSubmission(), "Dr. Smith")
	assert.True(t, IsValidation(err))

	_, err = svc.GetJob(ctx, "missing")
	assert.True(t, errors.Is(err, ErrGradingJobNotFound))
}

func TestGradingJobService_StartFailsInterruptedJobs(t *testing.T) {
	repo, svc := newGradingFixture(&fakeEngine{}, GradingJobConfig{Workers: 1})
	ctx := context.Background()

	started := testNow.Add(-time.Minute)
	for _, job := range []*models.GradingJob{
		{ID: "queued", Status: models.GradingJobQueued, RequestedBy: "Dr. Smith", QuestionsFilename: "q.pdf"},
		{ID: "running", Status: models.GradingJobRunning, RequestedBy: "Dr. Smith", QuestionsFilename: "q.pdf", StartedAt: &started},
	} {
		require.NoError(t, repo.GradingJob().Create(ctx, job))
	}

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, svc.Shutdown(ctx))

	for _, id := range []string{"queued", "running"} {
		job, err := svc.GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.GradingJobFailed, job.Status)
		assert.Equal(t, interruptedJobMessage, *job.ErrorMessage)
	}
}
