package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalStatuses lists every status in display order.
var ApprovalStatuses = []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalRejected}

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// CanTransitionTo reports whether the approval lifecycle allows s -> to.
// pending is the only state with outgoing edges and every edge ends in a
// terminal state.
func (s ApprovalStatus) CanTransitionTo(to ApprovalStatus) bool {
	return s == ApprovalPending && to.IsTerminal()
}

type ResultSummary struct {
	TotalQuestions   int     `json:"total_questions"`
	MarksPerQuestion float64 `json:"marks_per_question"`
	TotalScore       float64 `json:"total_score"`
	Percentage       float64 `json:"percentage"`
	LetterGrade      string  `json:"letter_grade"`
	GuidelinesUsed   *string `json:"guidelines_used"`
}

// QuestionOutcome is the graded outcome of a single question. The slice order
// in GradedResult.DetailedResults follows the question order of the paper.
type QuestionOutcome struct {
	QuestionNumber int     `json:"question_number"`
	Question       string  `json:"question"`
	StudentAnswer  string  `json:"student_answer"`
	Score          float64 `json:"score"`
	MaxMarks       float64 `json:"max_marks"`
	Feedback       string  `json:"feedback"`
}

type StudentInfo struct {
	Name  string `json:"name"`
	Level string `json:"level"`
	MatNo string `json:"mat_no"`
}

// NormalizeMatNo is the canonical form matriculation numbers are stored,
// looked up and compared in.
func NormalizeMatNo(matNo string) string {
	return strings.ToUpper(strings.TrimSpace(matNo))
}

type ExamInfo struct {
	ExamTitle         string  `json:"exam_title"`
	Subject           string  `json:"subject"`
	QuestionsFilename string  `json:"questions_filename"`
	AnswersFilename   *string `json:"answers_filename"`
}

type GradedResult struct {
	ID string `json:"id" gorm:"primaryKey;size:36"`

	Summary         datatypes.JSONType[ResultSummary]   `json:"summary" gorm:"type:jsonb;not null"`
	DetailedResults datatypes.JSONSlice[QuestionOutcome] `json:"detailed_results" gorm:"type:jsonb"`
	StudentInfo     datatypes.JSONType[StudentInfo]     `json:"student_info" gorm:"type:jsonb;not null"`
	ExamInfo        datatypes.JSONType[ExamInfo]        `json:"exam_info" gorm:"type:jsonb;not null"`

	// Denormalised lookup columns, copied from StudentInfo/ExamInfo at insert.
	StudentMatNo string `json:"-" gorm:"not null;size:50;index:idx_results_student_status"`
	ExamTitle    string `json:"-" gorm:"size:200"`
	Subject      string `json:"-" gorm:"size:100;index"`

	ApprovalStatus ApprovalStatus `json:"approval_status" gorm:"not null;size:20;index;index:idx_results_student_status"`
	ApprovedBy     *string        `json:"approved_by,omitempty" gorm:"size:255"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty" gorm:"index"`
	ApprovalNotes  *string        `json:"approval_notes,omitempty" gorm:"type:text"`

	GradingJobID *string `json:"grading_job_id,omitempty" gorm:"size:36;index"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GradedResult) TableName() string {
	return "graded_results"
}

// IsVisibleToStudent is true only for approved results.
func (r *GradedResult) IsVisibleToStudent() bool {
	return r.ApprovalStatus == ApprovalApproved
}

// Clone returns a copy that shares no mutable slices with r.
func (r *GradedResult) Clone() *GradedResult {
	if r == nil {
		return nil
	}
	c := *r
	if r.DetailedResults != nil {
		c.DetailedResults = append(datatypes.JSONSlice[QuestionOutcome](nil), r.DetailedResults...)
	}
	return &c
}

// SyncLookupColumns copies the indexed columns from the JSON documents. They
// are not serialised, so values decoded from JSON need this too.
func (r *GradedResult) SyncLookupColumns() {
	r.StudentMatNo = r.StudentInfo.Data().MatNo
	exam := r.ExamInfo.Data()
	r.ExamTitle = exam.ExamTitle
	r.Subject = exam.Subject
}
