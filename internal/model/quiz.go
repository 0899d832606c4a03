package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizKind distinguishes self-paced practice from scheduled tests.
type QuizKind string

const (
	// QuizKindPractice starts its clock fresh on every attempt.
	QuizKindPractice QuizKind = "practice"
	// QuizKindTest has a fixed wall-clock deadline derived from
	// ScheduledStart + DurationMinutes, regardless of when the
	// student actually begins.
	QuizKindTest QuizKind = "test"
)

// Grade is the school grade a quiz targets.
type Grade string

const (
	Grade10 Grade = "10"
	Grade11 Grade = "11"
	Grade12 Grade = "12"
)

// Quiz is an ordered set of questions plus scheduling metadata. The
// question list is stored as one JSONB document; a running attempt
// always works on the snapshot loaded at attempt start.
type Quiz struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Kind            QuizKind   `json:"kind"`
	Grade           Grade      `json:"grade"`
	AuthorID        uuid.UUID  `json:"author_id"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"` // test only
	DurationMinutes int        `json:"duration_minutes"`
	Questions       []Question `json:"questions"`
	Published       bool       `json:"published"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TotalPoints sums the configured weights of all questions.
func (q *Quiz) TotalPoints() float64 {
	var total float64
	for i := range q.Questions {
		total += q.Questions[i].Points.Float()
	}
	return total
}

// CreateQuizRequest is the payload for creating a new quiz.
type CreateQuizRequest struct {
	Title           string               `json:"title" binding:"required,min=3,max=255"`
	Description     string               `json:"description" binding:"omitempty,max=2000"`
	Kind            string               `json:"kind" binding:"required,oneof=practice test"`
	Grade           string               `json:"grade" binding:"required,oneof=10 11 12"`
	ScheduledStart  *time.Time           `json:"scheduled_start" binding:"omitempty"`
	DurationMinutes int                  `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []AddQuestionRequest `json:"questions" binding:"omitempty,dive"`
}

// UpdateQuizRequest is the payload for updating an existing quiz.
// Pointer fields distinguish "not sent" from zero values.
type UpdateQuizRequest struct {
	Title           string               `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string              `json:"description" binding:"omitempty,max=2000"`
	Kind            string               `json:"kind" binding:"omitempty,oneof=practice test"`
	Grade           string               `json:"grade" binding:"omitempty,oneof=10 11 12"`
	ScheduledStart  *time.Time           `json:"scheduled_start" binding:"omitempty"`
	DurationMinutes *int                 `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Questions       []AddQuestionRequest `json:"questions" binding:"omitempty,dive"`
	Published       *bool                `json:"published" binding:"omitempty"`
}
