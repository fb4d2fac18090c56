package events

import (
	"time"

	"github.com/SAP-F-2025/result-review-service/internal/models"
	"github.com/google/uuid"
)

const (
	eventSource  = "result-review-service"
	eventVersion = "1.0"
)

// EventType represents the review lifecycle events this service emits
type EventType string

const (
	EventResultSubmitted         EventType = "result.submitted"
	EventResultApproved          EventType = "result.approved"
	EventResultRejected          EventType = "result.rejected"
	EventResultsBulkTransitioned EventType = "results.bulk_transitioned"
)

// ReviewEvent is the envelope for every published event
type ReviewEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type ResultSubmittedEvent struct {
	ResultID     string  `json:"result_id"`
	StudentMatNo string  `json:"student_mat_no"`
	ExamTitle    string  `json:"exam_title"`
	Subject      string  `json:"subject"`
	Percentage   float64 `json:"percentage"`
	LetterGrade  string  `json:"letter_grade"`
	GradingJobID *string `json:"grading_job_id,omitempty"`
}

type ResultDecidedEvent struct {
	ResultID     string                `json:"result_id"`
	StudentMatNo string                `json:"student_mat_no"`
	ExamTitle    string                `json:"exam_title"`
	Status       models.ApprovalStatus `json:"status"`
	DecidedBy    string                `json:"decided_by"`
	DecidedAt    time.Time             `json:"decided_at"`
	Notes        *string               `json:"notes,omitempty"`
}

type ResultsBulkTransitionedEvent struct {
	TargetStatus   models.ApprovalStatus `json:"target_status"`
	ActorID        string                `json:"actor_id"`
	TotalCount     int                   `json:"total_count"`
	SucceededCount int                   `json:"succeeded_count"`
	SucceededIDs   []string              `json:"succeeded_ids"`
	FailedIDs      []string              `json:"failed_ids"`
}

// Event factory functions

func NewResultSubmittedEvent(result *models.GradedResult) *ReviewEvent {
	summary := result.Summary.Data()
	return newEvent(EventResultSubmitted, ResultSubmittedEvent{
		ResultID:     result.ID,
		StudentMatNo: result.StudentMatNo,
		ExamTitle:    result.ExamTitle,
		Subject:      result.Subject,
		Percentage:   summary.Percentage,
		LetterGrade:  summary.LetterGrade,
		GradingJobID: result.GradingJobID,
	})
}

// NewResultDecidedEvent builds result.approved or result.rejected from a
// record that has already left pending.
func NewResultDecidedEvent(result *models.GradedResult) *ReviewEvent {
	eventType := EventResultApproved
	if result.ApprovalStatus == models.ApprovalRejected {
		eventType = EventResultRejected
	}
	data := ResultDecidedEvent{
		ResultID:     result.ID,
		StudentMatNo: result.StudentMatNo,
		ExamTitle:    result.ExamTitle,
		Status:       result.ApprovalStatus,
		Notes:        result.ApprovalNotes,
	}
	if result.ApprovedBy != nil {
		data.DecidedBy = *result.ApprovedBy
	}
	if result.ApprovedAt != nil {
		data.DecidedAt = *result.ApprovedAt
	}
	return newEvent(eventType, data)
}

func NewResultsBulkTransitionedEvent(data ResultsBulkTransitionedEvent) *ReviewEvent {
	return newEvent(EventResultsBulkTransitioned, data)
}

func newEvent(eventType EventType, data interface{}) *ReviewEvent {
	return &ReviewEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// GenerateEventID returns a random UUID for an event envelope
func GenerateEventID() string {
	return uuid.NewString()
}
