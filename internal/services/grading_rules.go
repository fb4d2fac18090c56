package services

import (
	"fmt"
	"math"
)

// PassMark is the percentage at or above which a result counts as a pass.
const PassMark = 50.0

var letterGradeBands = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{75, "B+"},
	{70, "B"},
	{65, "C+"},
	{60, "C"},
	{55, "D+"},
	{50, "D"},
	{45, "E"},
}

// LetterGrade derives the grade used when the engine did not supply one.
func LetterGrade(percentage float64) string {
	for _, band := range letterGradeBands {
		if percentage >= band.min {
			return band.grade
		}
	}
	return "F"
}

// gradeRank orders letter grades best first; unknown grades sort last.
func gradeRank(grade string) int {
	for i, band := range letterGradeBands {
		if band.grade == grade {
			return i
		}
	}
	if grade == "F" {
		return len(letterGradeBands)
	}
	return len(letterGradeBands) + 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

// RuleResultConsistency names the business rule a graded result breaks when
// its scores, totals and percentage disagree.
const RuleResultConsistency = "result_consistency"

// consistencyChecks are the validator rules that compare fields of an
// otherwise well-formed result.
var consistencyChecks = map[string]bool{
	"score_range": true,
	"score_sum":   true,
	"percentage":  true,
}

// classifyResultViolations keeps malformed payloads as validation errors and
// reports a well-formed but inconsistent result as a business rule violation.
func classifyResultViolations(errs ValidationErrors) error {
	for _, e := range errs {
		if !consistencyChecks[e.Rule] {
			return errs
		}
	}
	message := fmt.Sprintf("graded result is inconsistent: %s %s", errs[0].Field, errs[0].Message)
	if len(errs) > 1 {
		message = fmt.Sprintf("graded result is inconsistent: %d checks failed", len(errs))
	}
	return NewBusinessRuleError(RuleResultConsistency, message, map[string]interface{}{
		"violations": errs,
	})
}
