// Package memory keeps results and grading jobs in process memory. It backs
// STORE_DRIVER=memory and the service tests, with the same conditional
// transition semantics as the postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*models.GradedResult
	now     func() time.Time
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]*models.GradedResult),
		now:     time.Now,
	}
}

func (s *ResultStore) Create(ctx context.Context, result *models.GradedResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[result.ID]; exists {
		return repositories.ErrDuplicateKey
	}
	now := s.now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = result.CreatedAt
	}
	s.results[result.ID] = result.Clone()
	return nil
}

func (s *ResultStore) GetByID(ctx context.Context, id string) (*models.GradedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	return result.Clone(), nil
}

func (s *ResultStore) ListByStatus(ctx context.Context, status models.ApprovalStatus, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	return s.list(ctx, filters, func(r *models.GradedResult) bool {
		return r.ApprovalStatus == status
	})
}

func (s *ResultStore) ListApprovedByStudent(ctx context.Context, matNo string, filters repositories.ResultFilters) ([]*models.GradedResult, int64, error) {
	return s.list(ctx, filters, func(r *models.GradedResult) bool {
		return r.StudentMatNo == matNo && r.ApprovalStatus == models.ApprovalApproved
	})
}

func (s *ResultStore) TransitionStatus(ctx context.Context, id string, t repositories.StatusTransition) (*models.GradedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[id]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}

	updated := result.Clone()
	if err := t.Apply(updated); err != nil {
		return nil, err
	}
	s.results[id] = updated

	return updated.Clone(), nil
}

func (s *ResultStore) CountStatistics(ctx context.Context, since, asOf time.Time) (*repositories.ResultCounts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	inWindow := func(t time.Time) bool {
		return !t.Before(since) && !t.After(asOf)
	}

	var counts repositories.ResultCounts
	for _, r := range s.results {
		counts.Total++
		if inWindow(r.CreatedAt) {
			counts.RecentCreated++
		}
		switch r.ApprovalStatus {
		case models.ApprovalPending:
			counts.Pending++
		case models.ApprovalApproved:
			counts.Approved++
			if r.ApprovedAt != nil && inWindow(*r.ApprovedAt) {
				counts.RecentApproved++
			}
		case models.ApprovalRejected:
			counts.Rejected++
			if r.ApprovedAt != nil && inWindow(*r.ApprovedAt) {
				counts.RecentRejected++
			}
		}
	}
	return &counts, nil
}

func (s *ResultStore) list(ctx context.Context, filters repositories.ResultFilters, match func(*models.GradedResult) bool) ([]*models.GradedResult, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	var matched []*models.GradedResult
	for _, r := range s.results {
		if match(r) && matchesFilters(r, filters) {
			matched = append(matched, r.Clone())
		}
	}
	s.mu.RUnlock()

	sortResults(matched, filters.SortBy, filters.SortOrder)
	total := int64(len(matched))

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*models.GradedResult{}, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func matchesFilters(r *models.GradedResult, filters repositories.ResultFilters) bool {
	if subject := strings.TrimSpace(filters.Subject); subject != "" && !strings.EqualFold(r.Subject, subject) {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(filters.Search)); search != "" {
		if !strings.Contains(strings.ToLower(r.ExamTitle), search) && !strings.Contains(strings.ToLower(r.Subject), search) {
			return false
		}
	}
	if filters.DateFrom != nil && r.CreatedAt.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && r.CreatedAt.After(*filters.DateTo) {
		return false
	}
	return true
}

func sortResults(results []*models.GradedResult, sortBy, sortOrder string) {
	asc := strings.EqualFold(sortOrder, "asc")
	less := func(a, b *models.GradedResult) int {
		switch sortBy {
		case "exam_title":
			return strings.Compare(a.ExamTitle, b.ExamTitle)
		case "percentage":
			return compareFloat(a.Summary.Data().Percentage, b.Summary.Data().Percentage)
		case "total_score":
			return compareFloat(a.Summary.Data().TotalScore, b.Summary.Data().TotalScore)
		case "letter_grade":
			return strings.Compare(a.Summary.Data().LetterGrade, b.Summary.Data().LetterGrade)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		c := less(results[i], results[j])
		if c == 0 {
			c = strings.Compare(results[i].ID, results[j].ID)
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
