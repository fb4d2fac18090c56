package repositories

import (
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ResultFilters struct {
	Subject   string     `json:"subject"`
	Search    string     `json:"search"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "exam_title", "percentage", "total_score", "letter_grade"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

// ===== SHARED HELPER STRUCTS =====

// StatusTransition is the compare-and-set applied by TransitionStatus.
type StatusTransition struct {
	From    models.ApprovalStatus
	To      models.ApprovalStatus
	ActorID string
	Notes   *string
	At      time.Time
}

// Apply performs t on result in memory. It fails with ErrStatusConflict when
// result is not in t.From or the lifecycle has no edge t.From -> t.To, and
// leaves result untouched in that case.
func (t StatusTransition) Apply(result *models.GradedResult) error {
	if result.ApprovalStatus != t.From || !t.From.CanTransitionTo(t.To) {
		return ErrStatusConflict
	}
	actor := t.ActorID
	at := t.At
	result.ApprovalStatus = t.To
	result.ApprovedBy = &actor
	result.ApprovedAt = &at
	result.ApprovalNotes = t.Notes
	result.UpdatedAt = t.At
	return nil
}

// ===== SHARED STATISTICS STRUCTS =====

type ResultCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`

	RecentCreated  int64 `json:"recent_created"`
	RecentApproved int64 `json:"recent_approved"`
	RecentRejected int64 `json:"recent_rejected"`
}

// Repository groups the stores the services depend on.
type Repository interface {
	Result() ResultRepository
	GradingJob() GradingJobRepository
}
