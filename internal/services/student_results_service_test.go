package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/cache"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStudentFixture(t *testing.T) (*reviewFixture, StudentResultsService) {
	t.Helper()
	f := newReviewFixture(t)
	return f, NewStudentResultsService(f.repo, f.cache, testLogger(), testConfig())
}

func resultIDs(results []*models.GradedResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestStudentResults_OnlyApprovedAreVisible(t *testing.T) {
	f, svc := newStudentFixture(t)
	approvedAt := testNow.Add(-time.Hour)
	seedResult(t, f.repo, "pending", "U1")
	seedResult(t, f.repo, "approved", "U1", withStatus(models.ApprovalApproved), withApprovedAt(approvedAt))
	seedResult(t, f.repo, "rejected", "U1", withStatus(models.ApprovalRejected), withApprovedAt(approvedAt))
	seedResult(t, f.repo, "other-student", "U2", withStatus(models.ApprovalApproved), withApprovedAt(approvedAt))

	results, err := svc.ListForStudent(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{"approved"}, resultIDs(results))
}

func TestStudentResults_NoApprovedResults(t *testing.T) {
	f, svc := newStudentFixture(t)
	seedResult(t, f.repo, "pending", "U1")

	results, err := svc.ListForStudent(context.Background(), "U1")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = svc.ListForStudent(context.Background(), "  ")
	assert.True(t, IsValidation(err))
}

func TestStudentResults_ApprovalInvalidatesCache(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	seedResult(t, f.repo, "r-1", "U1")

	results, err := svc.ListForStudent(ctx, "U1")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.True(t, f.cache.has(cache.StudentResultsKey("U1")))

	_, err = f.service.Approve(ctx, "r-1", "Dr. Smith", nil)
	require.NoError(t, err)
	assert.False(t, f.cache.has(cache.StudentResultsKey("U1")))

	results, err = svc.ListForStudent(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r-1", results[0].ID)
	assert.Equal(t, "Dr. Smith", *results[0].ApprovedBy)

	// Served from the cache, with the lookup columns restored.
	results, err = svc.ListForStudent(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Mechanics", results[0].ExamTitle)
}

func TestStudentResults_CachedEntriesAreRechecked(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()

	stale := []*models.GradedResult{
		seedResult(t, f.repo, "pending", "U1"),
		seedResult(t, f.repo, "approved", "U1", withStatus(models.ApprovalApproved), withApprovedAt(testNow)),
		seedResult(t, f.repo, "foreign", "U2", withStatus(models.ApprovalApproved), withApprovedAt(testNow)),
	}
	require.NoError(t, f.cache.Set(ctx, cache.StudentResultsKey("U1"), stale, time.Minute))

	results, err := svc.ListForStudent(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{"approved"}, resultIDs(results))
}

func TestStudentResults_MatNoCaseIsNormalised(t *testing.T) {
	f, svc := newStudentFixture(t)
	ctx := context.Background()
	intake := NewIntakeService(f.repo, NewReviewEventService(f.publisher, testLogger()), testLogger(), validator.New(), testConfig())

	req := validIngestRequest()
	req.StudentInfo.MatNo = " u2021/5520027 "
	ingested, err := intake.IngestResult(ctx, req, "grader")
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, ingested.ResultID, "Dr. Smith", nil)
	require.NoError(t, err)

	stored, err := f.repo.Result().GetByID(ctx, ingested.ResultID)
	require.NoError(t, err)
	assert.Equal(t, "U2021/5520027", stored.StudentMatNo)

	student := &models.Principal{ID: "s-1", Role: models.RoleStudent, MatNo: "u2021/5520027"}
	for _, path := range []string{"u2021/5520027", "U2021/5520027"} {
		resp, err := svc.GetStudentResults(ctx, student, path, StudentResultsQuery{})
		require.NoError(t, err, path)
		assert.Equal(t, "U2021/5520027", resp.MatNo)
		assert.Equal(t, []string{ingested.ResultID}, resultIDs(resp.Results), path)
	}
}

func TestStudentResults_Authorization(t *testing.T) {
	f, svc := newStudentFixture(t)
	seedResult(t, f.repo, "r-1", "U2021/5520027", withStatus(models.ApprovalApproved), withApprovedAt(testNow))
	ctx := context.Background()

	tests := []struct {
		name      string
		principal *models.Principal
		check     func(t *testing.T, err error)
	}{
		{
			name:      "own results",
			principal: &models.Principal{ID: "s-1", Role: models.RoleStudent, MatNo: "u2021/5520027"},
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "lecturer",
			principal: &models.Principal{ID: "l-1", Role: models.RoleLecturer},
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "another student",
			principal: &models.Principal{ID: "s-2", Role: models.RoleStudent, MatNo: "U2021/0000001"},
			check: func(t *testing.T, err error) {
				var pe *PermissionError
				assert.True(t, errors.As(err, &pe))
				assert.True(t, errors.Is(err, ErrForbidden))
			},
		},
		{
			name:      "student without mat no",
			principal: &models.Principal{ID: "s-3", Role: models.RoleStudent},
			check:     func(t *testing.T, err error) { assert.True(t, errors.Is(err, ErrForbidden)) },
		},
		{
			name:      "grader",
			principal: &models.Principal{ID: "g-1", Role: models.RoleGrader},
			check:     func(t *testing.T, err error) { assert.True(t, errors.Is(err, ErrForbidden)) },
		},
		{
			name:      "anonymous",
			principal: nil,
			check:     func(t *testing.T, err error) { assert.True(t, errors.Is(err, ErrUnauthorized)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetStudentResults(ctx, tt.principal, "U2021/5520027", StudentResultsQuery{})
			tt.check(t, err)
		})
	}
}

func TestStudentResults_QueryAndSummary(t *testing.T) {
	f, svc := newStudentFixture(t)
	approved := func(created time.Time) []seedOption {
		return []seedOption{withStatus(models.ApprovalApproved), withApprovedAt(testNow), withCreatedAt(created)}
	}
	seedResult(t, f.repo, "mech", "U1", append(approved(testNow.Add(-3*time.Hour)),
		withExam("Mechanics", "Physics"), withScore(70, 70, "B"))...)
	seedResult(t, f.repo, "optics", "U1", append(approved(testNow.Add(-2*time.Hour)),
		withExam("Optics", "Physics"), withScore(40, 40, "F"))...)
	seedResult(t, f.repo, "algebra", "U1", append(approved(testNow.Add(-time.Hour)),
		withExam("Linear Algebra", "Mathematics"), withScore(91, 91, "A+"))...)
	seedResult(t, f.repo, "draft", "U1", withExam("Calculus", "Mathematics"))

	lecturer := &models.Principal{ID: "l-1", Role: models.RoleLecturer}
	ctx := context.Background()

	resp, err := svc.GetStudentResults(ctx, lecturer, "U1", StudentResultsQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "optics", "mech"}, resultIDs(resp.Results))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.TotalPages)
	require.NotNil(t, resp.Student)
	assert.Equal(t, "Ada Obi", resp.Student.Name)

	assert.Equal(t, 3, resp.Summary.TotalResults)
	assert.Equal(t, 67.0, resp.Summary.AveragePercentage)
	assert.Equal(t, 66.67, resp.Summary.PassRate)
	assert.Equal(t, 91.0, resp.Summary.HighestPercentage)
	assert.Equal(t, 40.0, resp.Summary.LowestPercentage)
	assert.Equal(t, []string{"Mathematics", "Physics"}, resp.Summary.Subjects)

	resp, err = svc.GetStudentResults(ctx, lecturer, "U1", StudentResultsQuery{Subject: "PHYSICS", SortBy: "percentage", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"optics", "mech"}, resultIDs(resp.Results))
	assert.Equal(t, 3, resp.Summary.TotalResults)

	resp, err = svc.GetStudentResults(ctx, lecturer, "U1", StudentResultsQuery{Search: "algebra"})
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra"}, resultIDs(resp.Results))

	resp, err = svc.GetStudentResults(ctx, lecturer, "U1", StudentResultsQuery{SortBy: "letter_grade"})
	require.NoError(t, err)
	assert.Equal(t, []string{"algebra", "mech", "optics"}, resultIDs(resp.Results))

	resp, err = svc.GetStudentResults(ctx, lecturer, "U1", StudentResultsQuery{SortBy: "exam_title", SortOrder: "asc", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"optics"}, resultIDs(resp.Results))
	assert.Equal(t, 2, resp.TotalPages)

	resp, err = svc.GetStudentResults(ctx, lecturer, "U1", StudentResultsQuery{Page: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSummarizeStudentResults_Empty(t *testing.T) {
	summary := SummarizeStudentResults(nil)
	assert.Equal(t, 0, summary.TotalResults)
	assert.Equal(t, 0.0, summary.HighestPercentage)
	assert.NotNil(t, summary.Subjects)
}
