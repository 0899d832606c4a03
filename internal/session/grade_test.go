package session

import (
	"testing"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/google/uuid"
)

func mcqQuestion(points model.Points, options []string, correct string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Kind:          model.KindMCQ,
		Text:          "stem",
		Points:        points,
		Options:       options,
		CorrectAnswer: correct,
	}
}

func shortQuestion(points model.Points, correct string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Kind:          model.KindShort,
		Text:          "stem",
		Points:        points,
		CorrectAnswer: correct,
	}
}

func groupTFQuestion(points model.Points, answers ...string) model.Question {
	q := model.Question{
		ID:     uuid.New(),
		Kind:   model.KindGroupTF,
		Text:   "stem",
		Points: points,
	}
	for _, a := range answers {
		q.SubQuestions = append(q.SubQuestions, model.SubQuestion{
			ID:            uuid.New(),
			Text:          "statement",
			CorrectAnswer: a,
		})
	}
	return q
}

func TestGradeQuestionMCQ(t *testing.T) {
	tests := []struct {
		name   string
		points model.Points
		given  string
		want   float64
	}{
		{name: "correct", points: 0.25, given: "B", want: 0.25},
		{name: "wrong", points: 0.25, given: "A", want: 0},
		{name: "unanswered", points: 0.25, given: "", want: 0},
		{name: "locale string points", points: model.ParsePoints("0,25"), given: "B", want: 0.25},
		{name: "no trimming on mcq", points: 1, given: " B ", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := mcqQuestion(tc.points, []string{"A", "B", "C", "D"}, "B")
			snapshot := map[string]string{}
			if tc.given != "" {
				snapshot[AnswerKeyFor(q.ID)] = tc.given
			}
			if got := GradeQuestion(&q, snapshot); got != tc.want {
				t.Fatalf("earned = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGradeQuestionMCQKeyNotInOptions(t *testing.T) {
	// Authoring mistake: the correct answer is not among the options.
	// The question is simply unwinnable, not an error.
	q := mcqQuestion(1, []string{"A", "B", "C", "D"}, "E")
	for _, opt := range q.Options {
		snapshot := map[string]string{AnswerKeyFor(q.ID): opt}
		if got := GradeQuestion(&q, snapshot); got != 0 {
			t.Fatalf("option %q earned %v, want 0", opt, got)
		}
	}
}

func TestGradeQuestionMCQDuplicateOptions(t *testing.T) {
	// Duplicate options are fine: grading compares the selected string,
	// not the option index.
	q := mcqQuestion(0.5, []string{"B", "B", "C", "D"}, "B")
	snapshot := map[string]string{AnswerKeyFor(q.ID): "B"}
	if got := GradeQuestion(&q, snapshot); got != 0.5 {
		t.Fatalf("earned = %v, want 0.5", got)
	}
}

func TestGradeQuestionShort(t *testing.T) {
	tests := []struct {
		name    string
		correct string
		given   string
		want    float64
	}{
		{name: "exact", correct: "42", given: "42", want: 0.5},
		{name: "whitespace and case", correct: "Hanoi", given: "  hanoi ", want: 0.5},
		{name: "wrong", correct: "42", given: "41", want: 0},
		{name: "unanswered", correct: "42", given: "", want: 0},
		{name: "empty key never awards", correct: "", given: "", want: 0},
		{name: "empty key vs whitespace answer", correct: "   ", given: "", want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := shortQuestion(0.5, tc.correct)
			snapshot := map[string]string{AnswerKeyFor(q.ID): tc.given}
			if got := GradeQuestion(&q, snapshot); got != tc.want {
				t.Fatalf("earned = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGradeQuestionGroupTFStepTable(t *testing.T) {
	// Partial tiers are fixed absolute values regardless of the
	// configured weight; only 4-of-4 pays the question's own points.
	tests := []struct {
		correctCount int
		want         float64
	}{
		{correctCount: 0, want: 0},
		{correctCount: 1, want: 0.1},
		{correctCount: 2, want: 0.25},
		{correctCount: 3, want: 0.5},
		{correctCount: 4, want: 5},
	}

	for _, tc := range tests {
		q := groupTFQuestion(5, "True", "False", "True", "False")
		snapshot := map[string]string{}
		for i := 0; i < len(q.SubQuestions); i++ {
			key := SubAnswerKeyFor(q.ID, q.SubQuestions[i].ID)
			if i < tc.correctCount {
				snapshot[key] = q.SubQuestions[i].CorrectAnswer
			} else if q.SubQuestions[i].CorrectAnswer == "True" {
				snapshot[key] = "False"
			} else {
				snapshot[key] = "True"
			}
		}

		if got := GradeQuestion(&q, snapshot); got != tc.want {
			t.Fatalf("%d correct: earned = %v, want %v", tc.correctCount, got, tc.want)
		}
	}
}

func TestGradeQuestionGroupTFShortList(t *testing.T) {
	// Fewer than 4 statements: tiers above the observed max are
	// unreachable, lower tiers still apply.
	q := groupTFQuestion(2, "True", "True", "False")
	snapshot := map[string]string{}
	for i := range q.SubQuestions {
		snapshot[SubAnswerKeyFor(q.ID, q.SubQuestions[i].ID)] = q.SubQuestions[i].CorrectAnswer
	}
	if got := GradeQuestion(&q, snapshot); got != 0.5 {
		t.Fatalf("3-of-3 earned = %v, want 0.5 (full tier needs 4)", got)
	}
}

func TestGradeQuestionGroupTFExtraStatementsCapped(t *testing.T) {
	// More than 4 statements: each still counts toward c, but credit
	// caps at the 4-correct tier.
	q := groupTFQuestion(1, "True", "True", "True", "True", "True")
	snapshot := map[string]string{}
	for i := range q.SubQuestions {
		snapshot[SubAnswerKeyFor(q.ID, q.SubQuestions[i].ID)] = "True"
	}
	if got := GradeQuestion(&q, snapshot); got != 1 {
		t.Fatalf("5-of-5 earned = %v, want 1 (capped at 4-correct tier)", got)
	}
}

func TestGradeAllRoundTrip(t *testing.T) {
	mcq := mcqQuestion(model.ParsePoints("0,25"), []string{"A", "B", "C", "D"}, "B")
	short := shortQuestion(0.5, "42")
	group := groupTFQuestion(1, "True", "False", "True", "False")

	snapshot := map[string]string{
		AnswerKeyFor(mcq.ID):   "B",
		AnswerKeyFor(short.ID): "  42 ",
	}
	// 3 of 4 statements correct.
	for i := 0; i < 3; i++ {
		snapshot[SubAnswerKeyFor(group.ID, group.SubQuestions[i].ID)] = group.SubQuestions[i].CorrectAnswer
	}

	got := GradeAll([]model.Question{mcq, short, group}, snapshot)
	if got != 1.25 {
		t.Fatalf("total = %v, want 1.25", got)
	}
}

func TestGradeAllEmptySnapshot(t *testing.T) {
	questions := []model.Question{
		mcqQuestion(0.25, []string{"A", "B"}, "A"),
		shortQuestion(0.5, "x"),
		groupTFQuestion(1, "True", "False", "True", "False"),
	}
	if got := GradeAll(questions, map[string]string{}); got != 0 {
		t.Fatalf("total = %v, want 0", got)
	}
}
