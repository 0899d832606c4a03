package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question formats of the
// MOET 2025 exam structure.
type QuestionKind string

const (
	// KindMCQ is Part I: one stem, four options, one correct answer.
	KindMCQ QuestionKind = "mcq"
	// KindGroupTF is Part II: one stem, four true/false statements.
	KindGroupTF QuestionKind = "group_tf"
	// KindShort is Part III: free-text answer compared case-insensitively.
	KindShort QuestionKind = "short"
)

// SubQuestion is a single true/false statement inside a group_tf question.
type SubQuestion struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	CorrectAnswer string    `json:"correct_answer"` // "True" or "False"
}

// Question is one gradable unit of a quiz. The per-kind fields overlap:
// Options/CorrectAnswer for mcq, SubQuestions for group_tf, and
// CorrectAnswer alone for short.
type Question struct {
	ID            uuid.UUID     `json:"id"`
	Kind          QuestionKind  `json:"kind"`
	Text          string        `json:"text"`
	ImageURL      string        `json:"image_url,omitempty"`
	Points        Points        `json:"points"`
	Options       []string      `json:"options,omitempty"`
	CorrectAnswer string        `json:"correct_answer,omitempty"`
	SubQuestions  []SubQuestion `json:"sub_questions,omitempty"`
	Solution      string        `json:"solution,omitempty"`
}

// Points is a question weight. Teachers enter weights through a form
// that historically produced either numbers or locale strings ("0,25"),
// so decoding normalizes both; anything malformed becomes 0 rather
// than an error.
type Points float64

// ParsePoints normalizes a raw weight string to a float. The comma is
// treated as a decimal separator. Normalization never fails: garbage
// input yields 0. Applying it to an already-normalized value is a
// no-op.
func ParsePoints(raw string) Points {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != f {
		return 0
	}
	return Points(f)
}

// UnmarshalJSON accepts a JSON number, a quoted locale string, or null.
func (p *Points) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = Points(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = ParsePoints(s)
		return nil
	}

	*p = 0
	return nil
}

// Float returns the normalized numeric weight.
func (p Points) Float() float64 { return float64(p) }

// AddQuestionRequest is the payload for appending a question to a quiz.
type AddQuestionRequest struct {
	Kind          string          `json:"kind" binding:"required,oneof=mcq group_tf short"`
	Text          string          `json:"text" binding:"required,min=1,max=5000"`
	ImageURL      string          `json:"image_url" binding:"omitempty,max=500"`
	Points        json.RawMessage `json:"points" binding:"required"`
	Options       []string        `json:"options" binding:"omitempty,max=10"`
	CorrectAnswer string          `json:"correct_answer" binding:"omitempty,max=2000"`
	SubQuestions  []SubQuestion   `json:"sub_questions" binding:"omitempty,dive"`
	Solution      string          `json:"solution" binding:"omitempty,max=10000"`
}
