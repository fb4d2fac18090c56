package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IntakeService stores results produced by the grading engine. Every stored
// result starts pending, whatever the payload says.
type IntakeService interface {
	IngestResult(ctx context.Context, req *IngestResultRequest, submittedBy string) (*models.IngestSummary, error)
}

// ===== REQUEST DTOs =====

type IngestSummaryInput struct {
	TotalQuestions   int     `json:"total_questions" validate:"gte=0"`
	MarksPerQuestion float64 `json:"marks_per_question" validate:"gte=0"`
	TotalScore       float64 `json:"total_score" validate:"gte=0"`
	// Percentage and LetterGrade are derived when absent.
	Percentage     *float64 `json:"percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	LetterGrade    string   `json:"letter_grade,omitempty" validate:"omitempty,max=5"`
	GuidelinesUsed *string  `json:"guidelines_used,omitempty"`
}

type IngestResultRequest struct {
	Summary         IngestSummaryInput       `json:"summary"`
	DetailedResults []models.QuestionOutcome `json:"detailed_results" validate:"max=500"`
	StudentInfo     models.StudentInfo       `json:"student_info"`
	ExamInfo        models.ExamInfo          `json:"exam_info"`

	// Accepted for compatibility with the grading engine payload and ignored.
	ApprovalStatus string `json:"approval_status,omitempty"`

	// Set by the grading job worker, never taken from the request body.
	GradingJobID *string `json:"-"`
}

type intakeService struct {
	repo      repositories.Repository
	events    ReviewEventService
	logger    *slog.Logger
	svcLogger *ServiceLogger
	validator *validator.Validator
	config    ServiceConfig
}

func NewIntakeService(
	repo repositories.Repository,
	eventService ReviewEventService,
	logger *slog.Logger,
	validator *validator.Validator,
	config ServiceConfig,
) IntakeService {
	return &intakeService{
		repo:   repo,
		events: eventService,
		logger: logger,
		svcLogger: NewServiceLogger(logger, LogConfig{
			Service:   "result-review-service",
			Component: "intake",
		}),
		validator: validator,
		config:    config.withDefaults(),
	}
}

func (s *intakeService) IngestResult(ctx context.Context, req *IngestResultRequest, submittedBy string) (*models.IngestSummary, error) {
	op := s.svcLogger.WithOperation(ctx, "ingest_result", submittedBy)

	if req == nil {
		err := ValidationErrors{*NewValidationError("body", "is required", nil)}
		op.LogResult("", "graded_result", err)
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		op.LogResult("", "graded_result", err)
		return nil, err
	}

	result := BuildGradedResult(req, s.config.Now().UTC())
	if errs := s.validator.Business().ValidateGradedResult(result); len(errs) > 0 {
		err := classifyResultViolations(errs)
		op.LogResult(result.ID, "graded_result", err)
		return nil, err
	}

	if err := s.repo.Result().Create(ctx, result); err != nil {
		err = fmt.Errorf("failed to store result: %w", mapRepositoryError(err, ErrResultNotFound))
		op.LogResult(result.ID, "graded_result", err)
		return nil, err
	}

	op.LogResult(result.ID, "graded_result", nil)
	op.LogAudit(AuditEventCreate, result.ID, "graded_result", nil, result.ApprovalStatus)
	s.events.ResultSubmitted(ctx, result)

	summary := result.Summary.Data()
	return &models.IngestSummary{
		ResultID:       result.ID,
		ApprovalStatus: result.ApprovalStatus,
		LetterGrade:    summary.LetterGrade,
		Percentage:     summary.Percentage,
		CreatedAt:      result.CreatedAt,
	}, nil
}

// BuildGradedResult turns an ingest payload into a new pending record,
// deriving the percentage and letter grade when they are missing.
func BuildGradedResult(req *IngestResultRequest, now time.Time) *models.GradedResult {
	in := req.Summary
	details := make([]models.QuestionOutcome, len(req.DetailedResults))
	copy(details, req.DetailedResults)

	summary := models.ResultSummary{
		TotalQuestions:   in.TotalQuestions,
		MarksPerQuestion: in.MarksPerQuestion,
		TotalScore:       in.TotalScore,
		LetterGrade:      strings.TrimSpace(in.LetterGrade),
		GuidelinesUsed:   in.GuidelinesUsed,
	}
	if summary.TotalQuestions == 0 && len(details) > 0 {
		summary.TotalQuestions = len(details)
	}
	if in.Percentage != nil {
		summary.Percentage = *in.Percentage
	} else if maxScore := validator.MaxAttainable(summary, details); maxScore > 0 {
		summary.Percentage = round2(summary.TotalScore / maxScore * 100)
	}
	if summary.LetterGrade == "" {
		summary.LetterGrade = LetterGrade(summary.Percentage)
	}

	student := req.StudentInfo
	student.Name = strings.TrimSpace(student.Name)
	student.Level = strings.TrimSpace(student.Level)
	student.MatNo = models.NormalizeMatNo(student.MatNo)

	exam := req.ExamInfo
	exam.ExamTitle = strings.TrimSpace(exam.ExamTitle)
	exam.Subject = strings.TrimSpace(exam.Subject)

	result := &models.GradedResult{
		ID:              uuid.NewString(),
		Summary:         datatypes.NewJSONType(summary),
		DetailedResults: datatypes.JSONSlice[models.QuestionOutcome](details),
		StudentInfo:     datatypes.NewJSONType(student),
		ExamInfo:        datatypes.NewJSONType(exam),
		ApprovalStatus:  models.ApprovalPending,
		GradingJobID:    req.GradingJobID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	result.SyncLookupColumns()
	return result
}
