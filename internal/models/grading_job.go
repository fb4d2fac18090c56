package models

import (
	"time"

	"gorm.io/datatypes"
)

type GradingJobStatus string

const (
	GradingJobQueued    GradingJobStatus = "queued"
	GradingJobRunning   GradingJobStatus = "running"
	GradingJobCompleted GradingJobStatus = "completed"
	GradingJobFailed    GradingJobStatus = "failed"
)

// GradingJob tracks one submission to the grading engine. Status is only ever
// reported from what the worker actually observed; there is no progress value.
type GradingJob struct {
	ID          string           `json:"id" gorm:"primaryKey;size:36"`
	Status      GradingJobStatus `json:"status" gorm:"not null;size:20;index"`
	RequestedBy string           `json:"requested_by" gorm:"not null;size:255;index"`

	QuestionsFilename string  `json:"questions_filename" gorm:"not null;size:255"`
	QuestionsSize     int64   `json:"questions_size"`
	AnswersFilename   *string `json:"answers_filename,omitempty" gorm:"size:255"`
	AnswersSize       *int64  `json:"answers_size,omitempty"`
	Guidelines        *string `json:"guidelines,omitempty" gorm:"type:text"`

	// Optional metadata supplied by the lecturer; overrides what the engine extracts.
	StudentInfo datatypes.JSONType[StudentInfo] `json:"student_info" gorm:"type:jsonb"`
	ExamInfo    datatypes.JSONType[ExamInfo]    `json:"exam_info" gorm:"type:jsonb"`

	ResultID     *string    `json:"result_id,omitempty" gorm:"size:36"`
	ErrorMessage *string    `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GradingJob) TableName() string {
	return "grading_jobs"
}

func (j *GradingJob) IsFinished() bool {
	return j.Status == GradingJobCompleted || j.Status == GradingJobFailed
}
