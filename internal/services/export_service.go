package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

type ExportService interface {
	// ExportResultsXLSX renders one approval partition for lecturers.
	ExportResultsXLSX(ctx context.Context, status models.ApprovalStatus, actorID string) ([]byte, error)
	// ExportStudentResultsCSV renders the approved results a principal may see.
	ExportStudentResultsCSV(ctx context.Context, principal *models.Principal, matNo string) ([]byte, error)
}

type exportService struct {
	repo      repositories.Repository
	students  StudentResultsService
	logger    *slog.Logger
	svcLogger *ServiceLogger
}

func NewExportService(repo repositories.Repository, students StudentResultsService, logger *slog.Logger) ExportService {
	return &exportService{
		repo:     repo,
		students: students,
		logger:   logger,
		svcLogger: NewServiceLogger(logger, LogConfig{
			Service:   "result-review-service",
			Component: "export",
		}),
	}
}

var reviewExportHeaders = []string{
	"Result ID", "Student", "Mat No", "Level", "Exam", "Subject", "Total Score",
	"Percentage", "Grade", "Status", "Approved By", "Approved At", "Notes", "Created At",
}

var studentExportHeaders = []string{
	"Exam", "Subject", "Total Questions", "Total Score", "Percentage", "Grade", "Approved At",
}

// ===== LECTURER EXPORT =====

func (s *exportService) ExportResultsXLSX(ctx context.Context, status models.ApprovalStatus, actorID string) ([]byte, error) {
	op := s.svcLogger.WithOperation(ctx, "export_results", actorID)

	if !status.IsValid() {
		err := ValidationErrors{*NewValidationError("status", "must be pending, approved or rejected", status)}
		op.LogResult("", "graded_result", err)
		return nil, err
	}

	results, _, err := s.repo.Result().ListByStatus(ctx, status, repositories.ResultFilters{
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		err = fmt.Errorf("failed to list %s results: %w", status, err)
		op.LogResult("", "graded_result", err)
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := writeSheetRow(f, sheetName, 1, toCells(reviewExportHeaders)); err != nil {
		return nil, err
	}
	for i, r := range results {
		if err := writeSheetRow(f, sheetName, i+2, reviewExportRow(r)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	op.LogResult(string(status), "graded_result", nil)
	op.LogAudit(AuditEventExport, string(status), "graded_result", nil, map[string]interface{}{"rows": len(results)})
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func reviewExportRow(r *models.GradedResult) []interface{} {
	summary := r.Summary.Data()
	student := r.StudentInfo.Data()
	exam := r.ExamInfo.Data()

	return []interface{}{
		r.ID,
		student.Name,
		student.MatNo,
		student.Level,
		exam.ExamTitle,
		exam.Subject,
		summary.TotalScore,
		summary.Percentage,
		summary.LetterGrade,
		string(r.ApprovalStatus),
		stringOrEmpty(r.ApprovedBy),
		timeOrEmpty(r.ApprovedAt),
		stringOrEmpty(r.ApprovalNotes),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ===== STUDENT EXPORT =====

func (s *exportService) ExportStudentResultsCSV(ctx context.Context, principal *models.Principal, matNo string) ([]byte, error) {
	op := s.svcLogger.WithOperation(ctx, "export_student_results", principalID(principal))

	results, err := s.students.ApprovedResultsFor(ctx, principal, matNo)
	if err != nil {
		op.LogResult(matNo, "student_results", err)
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(studentExportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		summary := r.Summary.Data()
		row := []string{
			r.ExamTitle,
			r.Subject,
			strconv.Itoa(summary.TotalQuestions),
			strconv.FormatFloat(summary.TotalScore, 'f', -1, 64),
			strconv.FormatFloat(summary.Percentage, 'f', 2, 64),
			summary.LetterGrade,
			timeOrEmpty(r.ApprovedAt),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	op.LogResult(matNo, "student_results", nil)
	return buf.Bytes(), nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
