package model

import (
	"time"

	"github.com/google/uuid"
)

// PassThreshold is the minimum full-precision score that counts as a
// pass on the 10-point MOET scale.
const PassThreshold = 5.0

// Result is the immutable record of one completed attempt. It is
// created exactly once per submission and never mutated afterward.
type Result struct {
	ID             uuid.UUID `json:"id"`
	QuizID         uuid.UUID `json:"quiz_id"`
	StudentID      uuid.UUID `json:"student_id"`
	StudentName    string    `json:"student_name"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	SecondsSpent   int       `json:"seconds_spent"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Passed reports whether the attempt reached the pass threshold.
// The comparison uses the full-precision score, not the 2-decimal
// display rounding.
func (r *Result) Passed() bool {
	return r.Score >= PassThreshold
}
