package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/repositories"
)

// ===== STATISTICS TYPES =====

type StatusBreakdown struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

type StatusPercentages struct {
	Pending  float64 `json:"pending"`
	Approved float64 `json:"approved"`
	Rejected float64 `json:"rejected"`
}

// RecentActivity counts what happened in [Since, GeneratedAt].
type RecentActivity struct {
	Created  int64     `json:"created"`
	Approved int64     `json:"approved"`
	Rejected int64     `json:"rejected"`
	Since    time.Time `json:"since"`
}

type ReviewStatistics struct {
	TotalResults    int64             `json:"total_results"`
	StatusBreakdown StatusBreakdown   `json:"status_breakdown"`
	Percentages     StatusPercentages `json:"percentages"`
	RecentActivity  RecentActivity    `json:"recent_activity"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// ===== AGGREGATION =====

// BuildStatistics derives the report from one consistent set of counts.
// Percentages are all zero when there are no results.
func BuildStatistics(counts *repositories.ResultCounts, since, asOf time.Time) *ReviewStatistics {
	return &ReviewStatistics{
		TotalResults: counts.Total,
		StatusBreakdown: StatusBreakdown{
			Pending:  counts.Pending,
			Approved: counts.Approved,
			Rejected: counts.Rejected,
		},
		Percentages: StatusPercentages{
			Pending:  percentOf(counts.Pending, counts.Total),
			Approved: percentOf(counts.Approved, counts.Total),
			Rejected: percentOf(counts.Rejected, counts.Total),
		},
		RecentActivity: RecentActivity{
			Created:  counts.RecentCreated,
			Approved: counts.RecentApproved,
			Rejected: counts.RecentRejected,
			Since:    since,
		},
		GeneratedAt: asOf,
	}
}

func (s *reviewService) GetStatistics(ctx context.Context) (*ReviewStatistics, error) {
	return s.computeStatistics(ctx, s.config.Now().UTC())
}

// computeStatistics is never cached: every call reflects the store as of asOf.
func (s *reviewService) computeStatistics(ctx context.Context, asOf time.Time) (*ReviewStatistics, error) {
	since := asOf.Add(-s.config.RecentActivityWindow)

	counts, err := s.repo.Result().CountStatistics(ctx, since, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	return BuildStatistics(counts, since, asOf), nil
}
