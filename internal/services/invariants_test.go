package services

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/SAP-F-2025/result-review-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var randomStudents = []string{"U2021/0001", "U2021/0002", "U2021/0003"}

// seedRandomStore fills a store with mixed statuses and then decides a random
// share of the pending results through the service. It returns the expected
// status of every record.
func seedRandomStore(t *testing.T, f *reviewFixture, rng *rand.Rand, size int) map[string]*models.GradedResult {
	t.Helper()
	ctx := context.Background()
	want := make(map[string]*models.GradedResult, size)

	for i := 0; i < size; i++ {
		id := fmt.Sprintf("r-%02d", i)
		matNo := randomStudents[rng.Intn(len(randomStudents))]
		opts := []seedOption{withCreatedAt(testNow.Add(-rngHours(rng)))}
		if status := models.ApprovalStatuses[rng.Intn(len(models.ApprovalStatuses))]; status != models.ApprovalPending {
			opts = append(opts, withStatus(status), withApprovedAt(testNow.Add(-rngHours(rng))))
		}
		want[id] = seedResult(t, f.repo, id, matNo, opts...)
	}

	for i := 0; i < size; i++ {
		id := fmt.Sprintf("r-%02d", i)
		if want[id].ApprovalStatus != models.ApprovalPending || rng.Intn(2) == 0 {
			continue
		}
		var err error
		var updated *models.GradedResult
		if rng.Intn(2) == 0 {
			updated, err = f.service.Approve(ctx, id, "Dr. Smith", nil)
		} else {
			updated, err = f.service.Reject(ctx, id, "Dr. Smith", strPtr("Regrade"))
		}
		require.NoError(t, err)
		want[id] = updated
	}
	return want
}

func rngHours(rng *rand.Rand) time.Duration {
	return time.Duration(1+rng.Intn(24*30)) * time.Hour
}

func TestRandomStores_StudentViewOnlyShowsOwnApprovedResults(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			f, svc := newStudentFixture(t)
			want := seedRandomStore(t, f, rand.New(rand.NewSource(seed)), 25)

			for _, matNo := range randomStudents {
				results, err := svc.ListForStudent(context.Background(), matNo)
				require.NoError(t, err)

				expected := 0
				for _, r := range want {
					if r.StudentMatNo == matNo && r.ApprovalStatus == models.ApprovalApproved {
						expected++
					}
				}
				assert.Len(t, results, expected, matNo)
				for _, r := range results {
					assert.Equal(t, models.ApprovalApproved, r.ApprovalStatus, r.ID)
					assert.Equal(t, matNo, r.StudentMatNo, r.ID)
					assert.Equal(t, models.ApprovalApproved, want[r.ID].ApprovalStatus, r.ID)
				}
			}
		})
	}
}

func TestRandomStores_StatisticsPartitionTheStore(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			f := newReviewFixture(t)
			want := seedRandomStore(t, f, rand.New(rand.NewSource(seed)), 25)
			ctx := context.Background()

			var expected StatusBreakdown
			for _, r := range want {
				switch r.ApprovalStatus {
				case models.ApprovalPending:
					expected.Pending++
				case models.ApprovalApproved:
					expected.Approved++
				case models.ApprovalRejected:
					expected.Rejected++
				}
			}

			stats, err := f.service.GetStatistics(ctx)
			require.NoError(t, err)
			b := stats.StatusBreakdown
			assert.Equal(t, expected, b)
			assert.Equal(t, int64(len(want)), stats.TotalResults)
			assert.Equal(t, stats.TotalResults, b.Pending+b.Approved+b.Rejected)

			p := stats.Percentages
			assert.InDelta(t, 100, p.Pending+p.Approved+p.Rejected, 0.02)

			counts := map[models.ApprovalStatus]int64{
				models.ApprovalPending:  b.Pending,
				models.ApprovalApproved: b.Approved,
				models.ApprovalRejected: b.Rejected,
			}
			for status, count := range counts {
				list, err := f.service.ListByStatus(ctx, status, repositories.ResultFilters{Limit: maxPageSize})
				require.NoError(t, err)
				assert.Equal(t, count, list.Total, status)
				for _, r := range list.Results {
					assert.Equal(t, status, r.ApprovalStatus, r.ID)
				}
			}
		})
	}
}
