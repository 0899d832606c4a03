package session

import (
	"fmt"
	"strings"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/google/uuid"
)

// Partial-credit tiers for group true/false questions. Getting 1-3 of
// the 4 statements right earns a fixed absolute bonus; only a full 4
// awards the question's configured weight. These values are the MOET
// 2025 grading convention and are intentionally independent of the
// question's Points except at the top tier.
const (
	groupTFBonusOne   = 0.1
	groupTFBonusTwo   = 0.25
	groupTFBonusThree = 0.5
	groupTFFullCount  = 4
)

// AnswerKeyFor returns the snapshot key for a whole question (mcq and
// short answers key on the question id alone).
func AnswerKeyFor(questionID uuid.UUID) string {
	return questionID.String()
}

// SubAnswerKeyFor returns the snapshot key for one statement of a
// group true/false question.
func SubAnswerKeyFor(questionID, subID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", questionID, subID)
}

// GradeAll computes the total score for a question list against an
// answer snapshot. It is a pure function: no clock, no I/O, no
// mutation. Missing snapshot keys simply fail the equality checks and
// contribute 0; there is no negative marking.
func GradeAll(questions []model.Question, snapshot map[string]string) float64 {
	var total float64
	for i := range questions {
		total += GradeQuestion(&questions[i], snapshot)
	}
	return total
}

// GradeQuestion computes the points earned by a single question.
func GradeQuestion(q *model.Question, snapshot map[string]string) float64 {
	switch q.Kind {
	case model.KindMCQ:
		// Exact string equality, no normalization. A correct answer
		// that is not among the options makes the question unwinnable;
		// that is an authoring mistake, not a grading error.
		if snapshot[AnswerKeyFor(q.ID)] == q.CorrectAnswer {
			return q.Points.Float()
		}
		return 0

	case model.KindShort:
		correct := strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
		if correct == "" {
			return 0
		}
		given := strings.ToLower(strings.TrimSpace(snapshot[AnswerKeyFor(q.ID)]))
		if given == correct {
			return q.Points.Float()
		}
		return 0

	case model.KindGroupTF:
		return gradeGroupTF(q, snapshot)
	}

	return 0
}

// gradeGroupTF counts matching statements and applies the step table.
// Questions with fewer than 4 statements can never reach the top tier;
// extra statements beyond the 4th still count toward c, but the table
// caps at the 4-correct tier.
func gradeGroupTF(q *model.Question, snapshot map[string]string) float64 {
	correct := 0
	for i := range q.SubQuestions {
		sq := &q.SubQuestions[i]
		if snapshot[SubAnswerKeyFor(q.ID, sq.ID)] == sq.CorrectAnswer {
			correct++
		}
	}

	if correct > groupTFFullCount {
		correct = groupTFFullCount
	}

	switch correct {
	case 1:
		return groupTFBonusOne
	case 2:
		return groupTFBonusTwo
	case 3:
		return groupTFBonusThree
	case groupTFFullCount:
		return q.Points.Float()
	}
	return 0
}
