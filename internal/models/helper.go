package models

import "time"

// IngestSummary is returned to the grading collaborator after a result is stored.
type IngestSummary struct {
	ResultID       string         `json:"result_id"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	LetterGrade    string         `json:"letter_grade"`
	Percentage     float64        `json:"percentage"`
	CreatedAt      time.Time      `json:"created_at"`
}
