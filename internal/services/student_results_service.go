package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/cache"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

// StudentResultsService is the read-only student view. It only ever returns
// approved results belonging to the requested matriculation number.
type StudentResultsService interface {
	ListForStudent(ctx context.Context, matNo string) ([]*models.GradedResult, error)
	GetStudentResults(ctx context.Context, principal *models.Principal, matNo string, query StudentResultsQuery) (*StudentResultsResponse, error)
	ApprovedResultsFor(ctx context.Context, principal *models.Principal, matNo string) ([]*models.GradedResult, error)
}

// ===== DTOs =====

type StudentResultsQuery struct {
	Search    string `form:"search"`
	Subject   string `form:"subject"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=created_at exam_title percentage total_score letter_grade"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,gte=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,gte=1,lte=100"`
}

type StudentResultsSummary struct {
	TotalResults      int      `json:"total_results"`
	AveragePercentage float64  `json:"average_percentage"`
	PassRate          float64  `json:"pass_rate"`
	HighestPercentage float64  `json:"highest_percentage"`
	LowestPercentage  float64  `json:"lowest_percentage"`
	Subjects          []string `json:"subjects"`
}

type StudentResultsResponse struct {
	MatNo      string                 `json:"mat_no"`
	Student    *models.StudentInfo    `json:"student,omitempty"`
	Results    []*models.GradedResult `json:"results"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
	Summary    StudentResultsSummary  `json:"summary"`
}

type studentResultsService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	svcLogger *ServiceLogger
	config    ServiceConfig
}

func NewStudentResultsService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, config ServiceConfig) StudentResultsService {
	return &studentResultsService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
		svcLogger: NewServiceLogger(logger, LogConfig{
			Service:   "result-review-service",
			Component: "student_results",
		}),
		config: config.withDefaults(),
	}
}

// ===== ACCESS =====

// authorizeStudentView lets students read only their own results; lecturers
// may read any student's approved results. matNo must already be normalised.
func authorizeStudentView(principal *models.Principal, matNo string) error {
	if principal == nil {
		return ErrUnauthorized
	}
	switch principal.Role {
	case models.RoleLecturer:
		return nil
	case models.RoleStudent:
		if own := models.NormalizeMatNo(principal.MatNo); own != "" && own == matNo {
			return nil
		}
		return NewPermissionError(principal.ID, matNo, "student_results", "read", "results belong to another student")
	}
	return NewPermissionError(principal.ID, matNo, "student_results", "read", "role cannot read student results")
}

// ===== QUERIES =====

// ListForStudent returns every approved result of the student, newest first.
func (s *studentResultsService) ListForStudent(ctx context.Context, matNo string) ([]*models.GradedResult, error) {
	matNo = models.NormalizeMatNo(matNo)
	if matNo == "" {
		return nil, ValidationErrors{*NewValidationError("mat_no", "is required", matNo)}
	}

	key := cache.StudentResultsKey(matNo)
	var cached []*models.GradedResult
	switch err := s.cache.Get(ctx, key, &cached); {
	case err == nil:
		return s.visibleTo(matNo, cached), nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("Student results cache read failed", "mat_no", matNo, "error", err)
	}

	results, _, err := s.repo.Result().ListApprovedByStudent(ctx, matNo, repositories.ResultFilters{
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list results for student: %w", err)
	}
	if results == nil {
		results = []*models.GradedResult{}
	}

	if err := s.cache.Set(ctx, key, results, s.config.StudentCacheTTL); err != nil {
		s.logger.Warn("Student results cache write failed", "mat_no", matNo, "error", err)
	}
	return s.visibleTo(matNo, results), nil
}

// visibleTo re-checks ownership and approval on whatever the store or cache
// returned.
func (s *studentResultsService) visibleTo(matNo string, results []*models.GradedResult) []*models.GradedResult {
	visible := make([]*models.GradedResult, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		r.SyncLookupColumns()
		if r.IsVisibleToStudent() && r.StudentMatNo == matNo {
			visible = append(visible, r)
			continue
		}
		s.logger.Error("Dropped result not visible to student", "result_id", r.ID, "mat_no", matNo, "status", r.ApprovalStatus)
	}
	return visible
}

func (s *studentResultsService) ApprovedResultsFor(ctx context.Context, principal *models.Principal, matNo string) ([]*models.GradedResult, error) {
	matNo = models.NormalizeMatNo(matNo)
	if err := authorizeStudentView(principal, matNo); err != nil {
		return nil, err
	}
	return s.ListForStudent(ctx, matNo)
}

func (s *studentResultsService) GetStudentResults(ctx context.Context, principal *models.Principal, matNo string, query StudentResultsQuery) (*StudentResultsResponse, error) {
	matNo = models.NormalizeMatNo(matNo)
	op := s.svcLogger.WithOperation(ctx, "get_student_results", principalID(principal))

	all, err := s.ApprovedResultsFor(ctx, principal, matNo)
	if err != nil {
		op.LogResult(matNo, "student_results", err)
		return nil, err
	}

	filtered := filterStudentResults(all, query.Search, query.Subject)
	sortStudentResults(filtered, query.SortBy, query.SortOrder)

	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	response := &StudentResultsResponse{
		MatNo:      matNo,
		Results:    paginate(filtered, page, pageSize),
		Total:      len(filtered),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(len(filtered)) / float64(pageSize))),
		Summary:    SummarizeStudentResults(all),
	}
	if len(all) > 0 {
		info := all[0].StudentInfo.Data()
		response.Student = &info
	}

	op.LogResult(matNo, "student_results", nil)
	return response, nil
}

// ===== HELPERS =====

func principalID(p *models.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func filterStudentResults(results []*models.GradedResult, search, subject string) []*models.GradedResult {
	search = strings.ToLower(strings.TrimSpace(search))
	subject = strings.TrimSpace(subject)

	out := make([]*models.GradedResult, 0, len(results))
	for _, r := range results {
		if subject != "" && !strings.EqualFold(r.Subject, subject) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.ExamTitle), search) &&
			!strings.Contains(strings.ToLower(r.Subject), search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sortStudentResults(results []*models.GradedResult, sortBy, sortOrder string) {
	desc := !strings.EqualFold(sortOrder, "asc")
	slices.SortStableFunc(results, func(a, b *models.GradedResult) int {
		var c int
		switch sortBy {
		case "exam_title":
			c = strings.Compare(strings.ToLower(a.ExamTitle), strings.ToLower(b.ExamTitle))
		case "percentage":
			c = compareFloat(a.Summary.Data().Percentage, b.Summary.Data().Percentage)
		case "total_score":
			c = compareFloat(a.Summary.Data().TotalScore, b.Summary.Data().TotalScore)
		case "letter_grade":
			// Ascending runs from the worst grade to the best.
			c = gradeRank(b.Summary.Data().LetterGrade) - gradeRank(a.Summary.Data().LetterGrade)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
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

func paginate(results []*models.GradedResult, page, pageSize int) []*models.GradedResult {
	start := (page - 1) * pageSize
	if start >= len(results) {
		return []*models.GradedResult{}
	}
	end := min(start+pageSize, len(results))
	return results[start:end]
}

// SummarizeStudentResults aggregates percentages over the given results.
func SummarizeStudentResults(results []*models.GradedResult) StudentResultsSummary {
	summary := StudentResultsSummary{
		TotalResults: len(results),
		Subjects:     []string{},
	}
	if len(results) == 0 {
		return summary
	}

	seen := make(map[string]struct{})
	var total float64
	var passed int
	summary.HighestPercentage = math.Inf(-1)
	summary.LowestPercentage = math.Inf(1)

	for _, r := range results {
		pct := r.Summary.Data().Percentage
		total += pct
		if pct >= PassMark {
			passed++
		}
		summary.HighestPercentage = math.Max(summary.HighestPercentage, pct)
		summary.LowestPercentage = math.Min(summary.LowestPercentage, pct)

		if r.Subject == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(r.Subject)]; !ok {
			seen[strings.ToLower(r.Subject)] = struct{}{}
			summary.Subjects = append(summary.Subjects, r.Subject)
		}
	}

	slices.Sort(summary.Subjects)
	summary.AveragePercentage = round2(total / float64(len(results)))
	summary.PassRate = round2(float64(passed) / float64(len(results)) * 100)
	summary.HighestPercentage = round2(summary.HighestPercentage)
	summary.LowestPercentage = round2(summary.LowestPercentage)
	return summary
}
