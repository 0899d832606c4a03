package session

import (
	"fmt"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/google/uuid"
)

// The view types are the rendering boundary: each state exposes
// exactly the data a client needs to draw it, and nothing the student
// must not see (answer keys while Taking, for instance).

// StudentQuestion is a question stripped of its answer key and
// solution, safe to send while the attempt is running.
type StudentQuestion struct {
	ID           uuid.UUID            `json:"id"`
	Kind         model.QuestionKind   `json:"kind"`
	Text         string               `json:"text"`
	ImageURL     string               `json:"image_url,omitempty"`
	Points       model.Points         `json:"points"`
	Options      []string             `json:"options,omitempty"`
	SubQuestions []StudentSubQuestion `json:"sub_questions,omitempty"`
}

// StudentSubQuestion is a group_tf statement without its answer.
type StudentSubQuestion struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// TakingView is rendered while the countdown runs.
type TakingView struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	QuizTitle        string            `json:"quiz_title"`
	SecondsRemaining int               `json:"seconds_remaining"`
	Questions        []StudentQuestion `json:"questions"`
	Answers          map[string]string `json:"answers"`
	AnsweredCount    int               `json:"answered_count"`
}

// ResultView is the terminal score display.
type ResultView struct {
	AttemptID    uuid.UUID `json:"attempt_id"`
	QuizTitle    string    `json:"quiz_title"`
	Score        float64   `json:"score"`
	ScoreDisplay string    `json:"score_display"` // rounded to 2 decimals for UI
	Passed       bool      `json:"passed"`
	SecondsSpent int       `json:"seconds_spent"`
}

// QuestionReview pairs a full question (answer key and solution
// included) with the student's frozen answers and the points earned.
type QuestionReview struct {
	Question model.Question    `json:"question"`
	Given    map[string]string `json:"given"`
	Earned   float64           `json:"earned"`
}

// ReviewView re-renders the paper read-only with correctness marks.
type ReviewView struct {
	AttemptID uuid.UUID        `json:"attempt_id"`
	QuizTitle string           `json:"quiz_title"`
	Score     float64          `json:"score"`
	Questions []QuestionReview `json:"questions"`
}

// Taking builds the TakingView. Returns false outside the Taking state.
func (s *Session) Taking() (*TakingView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTaking {
		return nil, false
	}

	questions := make([]StudentQuestion, 0, len(s.Quiz.Questions))
	for i := range s.Quiz.Questions {
		questions = append(questions, sanitize(&s.Quiz.Questions[i]))
	}

	return &TakingView{
		AttemptID:        s.ID,
		QuizTitle:        s.Quiz.Title,
		SecondsRemaining: s.secondsRemainingLocked(),
		Questions:        questions,
		Answers:          copySnapshot(s.answers),
		AnsweredCount:    len(s.answers),
	}, true
}

// Result builds the ResultView. Available in Result and Review.
func (s *Session) Result() (*ResultView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return nil, false
	}

	return &ResultView{
		AttemptID:    s.ID,
		QuizTitle:    s.Quiz.Title,
		Score:        s.result.Score,
		ScoreDisplay: fmt.Sprintf("%.2f", s.result.Score),
		Passed:       s.result.Passed(),
		SecondsSpent: s.result.SecondsSpent,
	}, true
}

// Review builds the ReviewView from the frozen snapshot. Returns false
// unless the session is in the Review state.
func (s *Session) Review() (*ReviewView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReview {
		return nil, false
	}

	questions := make([]QuestionReview, 0, len(s.Quiz.Questions))
	for i := range s.Quiz.Questions {
		q := &s.Quiz.Questions[i]
		questions = append(questions, QuestionReview{
			Question: *q,
			Given:    answersFor(q, s.answers),
			Earned:   GradeQuestion(q, s.answers),
		})
	}

	return &ReviewView{
		AttemptID: s.ID,
		QuizTitle: s.Quiz.Title,
		Score:     s.result.Score,
		Questions: questions,
	}, true
}

func sanitize(q *model.Question) StudentQuestion {
	sq := StudentQuestion{
		ID:       q.ID,
		Kind:     q.Kind,
		Text:     q.Text,
		ImageURL: q.ImageURL,
		Points:   q.Points,
		Options:  q.Options,
	}
	for i := range q.SubQuestions {
		sq.SubQuestions = append(sq.SubQuestions, StudentSubQuestion{
			ID:   q.SubQuestions[i].ID,
			Text: q.SubQuestions[i].Text,
		})
	}
	return sq
}

// answersFor extracts the snapshot entries that belong to one question.
func answersFor(q *model.Question, snapshot map[string]string) map[string]string {
	given := make(map[string]string)
	if v, ok := snapshot[AnswerKeyFor(q.ID)]; ok {
		given[AnswerKeyFor(q.ID)] = v
	}
	for i := range q.SubQuestions {
		key := SubAnswerKeyFor(q.ID, q.SubQuestions[i].ID)
		if v, ok := snapshot[key]; ok {
			given[key] = v
		}
	}
	return given
}

func copySnapshot(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
