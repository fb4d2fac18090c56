package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newExportFixture(t *testing.T) (*reviewFixture, ExportService) {
	t.Helper()
	f := newReviewFixture(t)
	students := NewStudentResultsService(f.repo, f.cache, testLogger(), testConfig())
	return f, NewExportService(f.repo, students, testLogger())
}

func TestExportService_ResultsXLSX(t *testing.T) {
	f, svc := newExportFixture(t)
	seedResult(t, f.repo, "r-1", "U1")
	seedResult(t, f.repo, "r-2", "U2", withExam("Optics", "Physics"))
	seedResult(t, f.repo, "r-3", "U3", withStatus(models.ApprovalApproved), withApprovedAt(testNow))

	data, err := svc.ExportResultsXLSX(context.Background(), models.ApprovalPending, "Dr. Smith")
	require.NoError(t, err)

	f2, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f2.Close()

	rows, err := f2.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reviewExportHeaders, rows[0])

	var ids []string
	for _, row := range rows[1:] {
		ids = append(ids, row[0])
		assert.Equal(t, "pending", row[9])
	}
	assert.ElementsMatch(t, []string{"r-1", "r-2"}, ids)
}

func TestExportService_ResultsXLSXRejectsUnknownStatus(t *testing.T) {
	_, svc := newExportFixture(t)

	_, err := svc.ExportResultsXLSX(context.Background(), models.ApprovalStatus("archived"), "Dr. Smith")
	assert.True(t, IsValidation(err))
}

func TestExportService_StudentResultsCSV(t *testing.T) {
	f, svc := newExportFixture(t)
	seedResult(t, f.repo, "r-1", "U1", withStatus(models.ApprovalApproved), withApprovedAt(testNow), withScore(70, 70, "B"))
	seedResult(t, f.repo, "r-2", "U1")

	student := &models.Principal{ID: "s-1", Role: models.RoleStudent, MatNo: "U1"}
	data, err := svc.ExportStudentResultsCSV(context.Background(), student, "U1")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, studentExportHeaders, records[0])
	assert.Equal(t, []string{"Mechanics", "Physics", "4", "70", "70.00", "B", "2025-03-14T09:30:00Z"}, records[1])

	other := &models.Principal{ID: "s-2", Role: models.RoleStudent, MatNo: "U2"}
	_, err = svc.ExportStudentResultsCSV(context.Background(), other, "U1")
	assert.True(t, errors.Is(err, ErrForbidden))
}
