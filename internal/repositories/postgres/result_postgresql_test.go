package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openMockDB(t *testing.T, mock func(m sqlmock.Sqlmock)) *gorm.DB {
	mockDB, m, err := sqlmock.New()
	require.NoError(t, err)
	mock(m)
	t.Cleanup(func() {
		assert.NoError(t, m.ExpectationsWereMet())
		_ = mockDB.Close()
	})

	db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{
		Conn: mockDB,
	}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

func TestResultPostgreSQL_GetByID(t *testing.T) {
	testCases := []struct {
		name    string
		mock    func(m sqlmock.Sqlmock)
		wantID  string
		wantErr error
	}{
		{
			name: "found",
			mock: func(m sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "approval_status", "student_mat_no"}).
					AddRow("r-1", "pending", "U2021/5520027")
				m.ExpectQuery(`^SELECT \* FROM "graded_results" WHERE id = \$1`).WillReturnRows(rows)
			},
			wantID: "r-1",
		},
		{
			name: "missing",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`^SELECT \* FROM "graded_results" WHERE id = \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantErr: repositories.ErrRecordNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewResultPostgreSQL(openMockDB(t, tc.mock))
			result, err := repo.GetByID(context.Background(), "r-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, result.ID)
			assert.Equal(t, models.ApprovalPending, result.ApprovalStatus)
		})
	}
}

func TestResultPostgreSQL_TransitionStatus(t *testing.T) {
	const updateSQL = `^UPDATE "graded_results" SET .* WHERE id = \$\d+ AND approval_status = \$\d+ RETURNING \*`
	const countSQL = `^SELECT count\(\*\) FROM "graded_results" WHERE id = \$1`

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	transition := repositories.StatusTransition{
		From:    models.ApprovalPending,
		To:      models.ApprovalApproved,
		ActorID: "Dr. Smith",
		At:      at,
	}

	testCases := []struct {
		name       string
		mock       func(m sqlmock.Sqlmock)
		wantStatus models.ApprovalStatus
		wantErr    error
	}{
		{
			name: "pending row is updated",
			mock: func(m sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "approval_status", "approved_by", "approved_at"}).
					AddRow("r-1", "approved", "Dr. Smith", at)
				m.ExpectQuery(updateSQL).WillReturnRows(rows)
			},
			wantStatus: models.ApprovalApproved,
		},
		{
			name: "row already decided",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(updateSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}))
				m.ExpectQuery(countSQL).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
			},
			wantErr: repositories.ErrStatusConflict,
		},
		{
			name: "unknown id",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(updateSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}))
				m.ExpectQuery(countSQL).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			},
			wantErr: repositories.ErrRecordNotFound,
		},
		{
			name: "store timeout is transient",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(updateSQL).WillReturnError(context.DeadlineExceeded)
			},
			wantErr: repositories.ErrTransientStore,
		},
		{
			name: "other driver errors pass through",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(updateSQL).WillReturnError(sql.ErrTxDone)
			},
			wantErr: sql.ErrTxDone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewResultPostgreSQL(openMockDB(t, tc.mock))
			updated, err := repo.TransitionStatus(context.Background(), "r-1", transition)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
				assert.Nil(t, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, updated.ApprovalStatus)
			require.NotNil(t, updated.ApprovedBy)
			assert.Equal(t, "Dr. Smith", *updated.ApprovedBy)
		})
	}
}

func TestResultPostgreSQL_TransitionStatus_OutsideLifecycle(t *testing.T) {
	repo := NewResultPostgreSQL(openMockDB(t, func(m sqlmock.Sqlmock) {}))

	updated, err := repo.TransitionStatus(context.Background(), "r-1", repositories.StatusTransition{
		From:    models.ApprovalApproved,
		To:      models.ApprovalRejected,
		ActorID: "Dr. Smith",
		At:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, repositories.ErrStatusConflict)
	assert.Nil(t, updated)
}

func TestResultPostgreSQL_CountStatistics(t *testing.T) {
	asOf := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
	db := openMockDB(t, func(m sqlmock.Sqlmock) {
		rows := sqlmock.NewRows([]string{"total", "pending", "approved", "rejected", "recent_created", "recent_approved", "recent_rejected"}).
			AddRow(10, 5, 3, 2, 4, 1, 1)
		m.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total,\s+COUNT\(\*\) FILTER`).WillReturnRows(rows)
	})

	counts, err := NewResultPostgreSQL(db).CountStatistics(context.Background(), asOf.AddDate(0, 0, -7), asOf)
	require.NoError(t, err)
	assert.Equal(t, repositories.ResultCounts{
		Total: 10, Pending: 5, Approved: 3, Rejected: 2,
		RecentCreated: 4, RecentApproved: 1, RecentRejected: 1,
	}, *counts)
	assert.Equal(t, counts.Total, counts.Pending+counts.Approved+counts.Rejected)
}

func TestResultPostgreSQL_ListApprovedByStudent(t *testing.T) {
	db := openMockDB(t, func(m sqlmock.Sqlmock) {
		m.ExpectQuery(`^SELECT count\(\*\) FROM "graded_results" WHERE student_mat_no = \$1 AND approval_status = \$2`).
			WithArgs("U2021/5520027", "approved").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		m.ExpectQuery(`^SELECT \* FROM "graded_results" WHERE student_mat_no = \$1 AND approval_status = \$2 ORDER BY created_at DESC,id DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "approval_status", "student_mat_no"}).
				AddRow("r-2", "approved", "U2021/5520027"))
	})

	results, total, err := NewResultPostgreSQL(db).ListApprovedByStudent(context.Background(), "U2021/5520027", repositories.ResultFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, "r-2", results[0].ID)
}
