package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/SAP-F-2025/result-review-service/internal/models"
)

const (
	// ScoreTolerance bounds the difference between total_score and the sum of
	// per-question scores.
	ScoreTolerance = 0.01
	// PercentageTolerance allows for the engine rounding percentages.
	PercentageTolerance = 0.05
)

// BusinessValidator checks the invariants of a graded result that struct tags
// cannot express.
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// MaxAttainable is the normalisation base for the percentage.
func MaxAttainable(summary models.ResultSummary, details []models.QuestionOutcome) float64 {
	maxScore := summary.MarksPerQuestion * float64(summary.TotalQuestions)
	if maxScore > 0 {
		return maxScore
	}
	for _, d := range details {
		maxScore += d.MaxMarks
	}
	return maxScore
}

// ValidateGradedResult validates score bounds and summary consistency.
func (v *BusinessValidator) ValidateGradedResult(result *models.GradedResult) ValidationErrors {
	var errs ValidationErrors
	summary := result.Summary.Data()
	student := result.StudentInfo.Data()
	exam := result.ExamInfo.Data()

	if !IsMatNo(student.MatNo) {
		errs = append(errs, *NewValidationErrorWithRule("student_info.mat_no", "must be a valid matriculation number", "mat_no", student.MatNo))
	}
	if strings.TrimSpace(exam.ExamTitle) == "" {
		errs = append(errs, *NewValidationErrorWithRule("exam_info.exam_title", "is required", "required", nil))
	}
	if summary.TotalQuestions < 0 {
		errs = append(errs, *NewValidationErrorWithRule("summary.total_questions", "must not be negative", "gte", summary.TotalQuestions))
	}
	if summary.MarksPerQuestion < 0 {
		errs = append(errs, *NewValidationErrorWithRule("summary.marks_per_question", "must not be negative", "gte", summary.MarksPerQuestion))
	}

	var sum float64
	for i, d := range result.DetailedResults {
		field := fmt.Sprintf("detailed_results[%d].score", i)
		if d.MaxMarks < 0 {
			errs = append(errs, *NewValidationErrorWithRule(fmt.Sprintf("detailed_results[%d].max_marks", i), "must not be negative", "gte", d.MaxMarks))
		}
		if d.Score < 0 || d.Score > d.MaxMarks {
			errs = append(errs, *NewValidationErrorWithRule(field, fmt.Sprintf("must be between 0 and %g", d.MaxMarks), "score_range", d.Score))
		}
		sum += d.Score
	}

	if len(result.DetailedResults) > 0 && math.Abs(sum-summary.TotalScore) > ScoreTolerance {
		errs = append(errs, *NewValidationErrorWithRule("summary.total_score",
			fmt.Sprintf("must equal the sum of question scores (%g)", sum), "score_sum", summary.TotalScore))
	}

	maxScore := MaxAttainable(summary, result.DetailedResults)
	switch {
	case summary.TotalScore < 0:
		errs = append(errs, *NewValidationErrorWithRule("summary.total_score", "must not be negative", "gte", summary.TotalScore))
	case maxScore > 0 && summary.TotalScore > maxScore+ScoreTolerance:
		errs = append(errs, *NewValidationErrorWithRule("summary.total_score",
			fmt.Sprintf("must not exceed the maximum attainable score (%g)", maxScore), "score_range", summary.TotalScore))
	}

	expected := 0.0
	if maxScore > 0 {
		expected = summary.TotalScore / maxScore * 100
	}
	if math.Abs(expected-summary.Percentage) > PercentageTolerance {
		errs = append(errs, *NewValidationErrorWithRule("summary.percentage",
			fmt.Sprintf("must equal total_score / maximum * 100 (%.2f)", expected), "percentage", summary.Percentage))
	}

	return errs
}
