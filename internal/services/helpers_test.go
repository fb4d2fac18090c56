package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/cache"
	"github.com/SAP-F-2025/result-review-service/internal/events"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/SAP-F-2025/result-review-service/internal/repositories/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() ServiceConfig {
	return ServiceConfig{
		BulkConcurrency:      4,
		RecentActivityWindow: 7 * 24 * time.Hour,
		StudentCacheTTL:      time.Minute,
		Now:                  func() time.Time { return testNow },
	}
}

type reviewFixture struct {
	repo      *memory.Repository
	cache     *mapCache
	publisher *events.MockEventPublisher
	service   ReviewService
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	repo := memory.NewRepository()
	c := newMapCache()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewReviewService(repo, c, NewReviewEventService(publisher, testLogger()), NewReviewMetrics(nil), testLogger(), testConfig())
	return &reviewFixture{repo: repo, cache: c, publisher: publisher, service: svc}
}

type seedOption func(*models.GradedResult)

func withStatus(status models.ApprovalStatus) seedOption {
	return func(r *models.GradedResult) { r.ApprovalStatus = status }
}

func withCreatedAt(at time.Time) seedOption {
	return func(r *models.GradedResult) {
		r.CreatedAt = at
		r.UpdatedAt = at
	}
}

func withApprovedAt(at time.Time) seedOption {
	return func(r *models.GradedResult) {
		actor := "Dr. Smith"
		r.ApprovedAt = &at
		r.ApprovedBy = &actor
	}
}

func withScore(totalScore, percentage float64, grade string) seedOption {
	return func(r *models.GradedResult) {
		s := r.Summary.Data()
		s.TotalScore = totalScore
		s.Percentage = percentage
		s.LetterGrade = grade
		r.Summary = datatypes.NewJSONType(s)
	}
}

func withExam(title, subject string) seedOption {
	return func(r *models.GradedResult) {
		e := r.ExamInfo.Data()
		e.ExamTitle = title
		e.Subject = subject
		r.ExamInfo = datatypes.NewJSONType(e)
	}
}

func seedResult(t *testing.T, repo *memory.Repository, id, matNo string, opts ...seedOption) *models.GradedResult {
	t.Helper()
	r := &models.GradedResult{
		ID: id,
		Summary: datatypes.NewJSONType(models.ResultSummary{
			TotalQuestions:   4,
			MarksPerQuestion: 25,
			TotalScore:       70,
			Percentage:       70,
			LetterGrade:      "B",
		}),
		StudentInfo:    datatypes.NewJSONType(models.StudentInfo{Name: "Ada Obi", Level: "200", MatNo: matNo}),
		ExamInfo:       datatypes.NewJSONType(models.ExamInfo{ExamTitle: "Mechanics", Subject: "Physics", QuestionsFilename: "q.pdf"}),
		ApprovalStatus: models.ApprovalPending,
		CreatedAt:      testNow.Add(-time.Hour),
		UpdatedAt:      testNow.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.SyncLookupColumns()
	require.NoError(t, repo.Results().Create(context.Background(), r))
	return r
}

func strPtr(s string) *string { return &s }

// mapCache is an in-memory CacheService that records deletions.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]interface{})}
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if results, ok := value.([]*models.GradedResult); ok {
		copied := make([]*models.GradedResult, len(results))
		for i, r := range results {
			copied[i] = r.Clone()
		}
		value = copied
	}
	c.entries[key] = value
	return nil
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	results, ok := value.([]*models.GradedResult)
	out, isResults := dest.(*[]*models.GradedResult)
	if !ok || !isResults {
		return cache.ErrCacheMiss
	}
	copied := make([]*models.GradedResult, len(results))
	for i, r := range results {
		copied[i] = r.Clone()
	}
	*out = copied
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// MockResultRepository is a mock implementation of ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Create(ctx context.Context, result *models.GradedResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) GetByID(ctx context.Context, id string) (*models.GradedResult, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*models.GradedResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockResultRepository) ListByStatus(ctx context.Context, status models.ApprovalStatus, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	args := m.Called(ctx, status, filters)
	results, _ := args.Get(0).([]*models.GradedResult)
	return results, args.Get(1).(int64), args.Error(2)
}

func (m *MockResultRepository) ListApprovedByStudent(ctx context.Context, matNo string, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	args := m.Called(ctx, matNo, filters)
	results, _ := args.Get(0).([]*models.GradedResult)
	return results, args.Get(1).(int64), args.Error(2)
}

func (m *MockResultRepository) TransitionStatus(ctx context.Context, id string, t repositories.StatusTransition) (*models.GradedResult, error) {
	args := m.Called(ctx, id, t)
	if r, ok := args.Get(0).(*models.GradedResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockResultRepository) CountStatistics(ctx context.Context, since, asOf time.Time) (*repositories.ResultCounts, error) {
	args := m.Called(ctx, since, asOf)
	if c, ok := args.Get(0).(*repositories.ResultCounts); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRepository struct {
	results *MockResultRepository
	jobs    *memory.GradingJobStore
}

func newMockRepository(results *MockResultRepository) *mockRepository {
	return &mockRepository{results: results, jobs: memory.NewGradingJobStore()}
}

func (m *mockRepository) Result() repositories.ResultRepository         { return m.results }
func (m *mockRepository) GradingJob() repositories.GradingJobRepository { return m.jobs }
