package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeResultStore struct {
	mu      sync.Mutex
	results []*model.Result
	err     error
	created chan *model.Result
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{created: make(chan *model.Result, 4)}
}

func (f *fakeResultStore) CreateResult(_ context.Context, r *model.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		f.created <- r
		return f.err
	}
	f.results = append(f.results, r)
	f.created <- r
	return nil
}

func (f *fakeResultStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func (f *fakeResultStore) waitCreate(t *testing.T) *model.Result {
	t.Helper()
	select {
	case r := <-f.created:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result persistence")
		return nil
	}
}

func testStudent() *model.User {
	return &model.User{ID: uuid.New(), Username: "lan", Role: model.RoleStudent, FullName: "Nguyen Thi Lan"}
}

func practiceQuiz(questions ...model.Question) *model.Quiz {
	return &model.Quiz{
		ID:              uuid.New(),
		Title:           "Practice",
		Kind:            model.QuizKindPractice,
		DurationMinutes: 30,
		Questions:       questions,
		Published:       true,
	}
}

// startTestSession builds a session without the background ticker so
// tests drive the deadline check by hand.
func startTestSession(quiz *model.Quiz, store ResultStore, clock Clock) *Session {
	return newSession(quiz, testStudent(), store, clock, zerolog.Nop())
}

func TestPracticeDeadlineFromStart(t *testing.T) {
	clock := newFakeClock()
	s := startTestSession(practiceQuiz(), newFakeResultStore(), clock)

	if got := s.SecondsRemaining(); got != 30*60 {
		t.Fatalf("SecondsRemaining = %d, want %d", got, 30*60)
	}

	clock.Advance(10 * time.Minute)
	if got := s.SecondsRemaining(); got != 20*60 {
		t.Fatalf("after 10m, SecondsRemaining = %d, want %d", got, 20*60)
	}
}

func TestScheduledTestDeadlineIgnoresJoinTime(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now().Add(-10 * time.Minute) // test began 10 minutes ago
	quiz := practiceQuiz()
	quiz.Kind = model.QuizKindTest
	quiz.ScheduledStart = &start
	quiz.DurationMinutes = 45

	s := startTestSession(quiz, newFakeResultStore(), clock)
	if got := s.SecondsRemaining(); got != 35*60 {
		t.Fatalf("SecondsRemaining = %d, want %d", got, 35*60)
	}
}

func TestAutoExpirySubmits(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	s := startTestSession(practiceQuiz(), store, clock)

	clock.Advance(31 * time.Minute)
	s.checkDeadline()

	if got := s.State(); got != StateResult {
		t.Fatalf("state = %s, want %s", got, StateResult)
	}
	r := store.waitCreate(t)
	if r.SecondsSpent != 30*60 {
		t.Fatalf("SecondsSpent = %d, want %d", r.SecondsSpent, 30*60)
	}
}

func TestExpiryScoresFreshAnswers(t *testing.T) {
	// Regression for the stale-closure defect class: an answer recorded
	// after the timer was registered must still be graded by the expiry
	// path, because grading reads the live snapshot, not a captured copy.
	clock := newFakeClock()
	store := newFakeResultStore()
	q := mcqQuestion(0.25, []string{"A", "B", "C", "D"}, "B")
	s := startTestSession(practiceQuiz(q), store, clock)

	clock.Advance(29 * time.Minute)
	if !s.RecordAnswer(AnswerKeyFor(q.ID), "B") {
		t.Fatal("RecordAnswer rejected while Taking")
	}

	clock.Advance(2 * time.Minute)
	s.checkDeadline()

	r := store.waitCreate(t)
	if r.Score != 0.25 {
		t.Fatalf("score = %v, want 0.25 (late answer must be graded)", r.Score)
	}
}

func TestDeadlineNotReachedNoSubmit(t *testing.T) {
	clock := newFakeClock()
	s := startTestSession(practiceQuiz(), newFakeResultStore(), clock)

	clock.Advance(29 * time.Minute)
	s.checkDeadline()

	if got := s.State(); got != StateTaking {
		t.Fatalf("state = %s, want %s", got, StateTaking)
	}
}

func TestSubmitIdempotent(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	s := startTestSession(practiceQuiz(), store, clock)

	first, did := s.Submit(TriggerManual)
	if !did || first == nil {
		t.Fatal("first submit did not take effect")
	}
	store.waitCreate(t)

	second, did := s.Submit(TriggerManual)
	if did {
		t.Fatal("second submit reported as performed")
	}
	if second != first {
		t.Fatal("second submit returned a different result")
	}
	if got := store.count(); got != 1 {
		t.Fatalf("persisted %d results, want 1", got)
	}
}

func TestTickAfterSubmitIsNoOp(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	s := startTestSession(practiceQuiz(), store, clock)

	s.Submit(TriggerManual)
	store.waitCreate(t)

	clock.Advance(2 * time.Hour)
	s.checkDeadline()

	if got := store.count(); got != 1 {
		t.Fatalf("tick after submit persisted again: %d results", got)
	}
}

func TestRecordAnswerOutsideTakingIgnored(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	q := mcqQuestion(1, []string{"A", "B"}, "A")
	s := startTestSession(practiceQuiz(q), store, clock)

	s.Submit(TriggerManual)
	store.waitCreate(t)

	if s.RecordAnswer(AnswerKeyFor(q.ID), "A") {
		t.Fatal("RecordAnswer accepted in Result state")
	}
	s.EnterReview()
	if s.RecordAnswer(AnswerKeyFor(q.ID), "A") {
		t.Fatal("RecordAnswer accepted in Review state")
	}
}

func TestResetClearsAnswersKeepsDeadline(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	q := mcqQuestion(1, []string{"A", "B"}, "A")
	s := startTestSession(practiceQuiz(q), store, clock)

	clock.Advance(5 * time.Minute)
	s.RecordAnswer(AnswerKeyFor(q.ID), "A")

	before := s.SecondsRemaining()
	if !s.Reset() {
		t.Fatal("Reset rejected while Taking")
	}
	if got := s.SecondsRemaining(); got != before {
		t.Fatalf("Reset moved the deadline: %d -> %d", before, got)
	}

	r, _ := s.Submit(TriggerManual)
	store.waitCreate(t)
	if r.Score != 0 {
		t.Fatalf("score after reset = %v, want 0", r.Score)
	}
}

func TestSecondsSpentNeverNegative(t *testing.T) {
	// A scheduled test joined before its window even opens: remaining
	// exceeds the nominal duration, so the naive subtraction would go
	// negative.
	clock := newFakeClock()
	store := newFakeResultStore()
	start := clock.Now().Add(10 * time.Minute)
	quiz := practiceQuiz()
	quiz.Kind = model.QuizKindTest
	quiz.ScheduledStart = &start
	quiz.DurationMinutes = 5

	s := startTestSession(quiz, store, clock)
	r, _ := s.Submit(TriggerManual)
	store.waitCreate(t)

	if r.SecondsSpent != 0 {
		t.Fatalf("SecondsSpent = %d, want 0", r.SecondsSpent)
	}
}

func TestPersistFailureStillShowsResult(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	store.err = errors.New("database unavailable")
	s := startTestSession(practiceQuiz(), store, clock)

	r, did := s.Submit(TriggerManual)
	store.waitCreate(t)

	if !did || r == nil {
		t.Fatal("submit blocked by persistence failure")
	}
	if got := s.State(); got != StateResult {
		t.Fatalf("state = %s, want %s", got, StateResult)
	}
	if view, ok := s.Result(); !ok || view.Score != r.Score {
		t.Fatal("result view unavailable after failed persist")
	}
}

func TestReviewTransitions(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	q := mcqQuestion(0.25, []string{"A", "B", "C", "D"}, "B")
	s := startTestSession(practiceQuiz(q), store, clock)

	if s.EnterReview() {
		t.Fatal("EnterReview allowed while Taking")
	}

	s.RecordAnswer(AnswerKeyFor(q.ID), "B")
	s.Submit(TriggerManual)
	store.waitCreate(t)

	if !s.EnterReview() {
		t.Fatal("EnterReview rejected from Result")
	}
	view, ok := s.Review()
	if !ok {
		t.Fatal("Review view unavailable in Review state")
	}
	if len(view.Questions) != 1 || view.Questions[0].Earned != 0.25 {
		t.Fatalf("review annotation wrong: %+v", view.Questions)
	}
	if view.Questions[0].Question.CorrectAnswer != "B" {
		t.Fatal("review must expose the answer key")
	}

	if !s.BackToResult() {
		t.Fatal("BackToResult rejected from Review")
	}
	if s.BackToResult() {
		t.Fatal("BackToResult allowed from Result")
	}
}

func TestTakingViewSanitizesQuestions(t *testing.T) {
	clock := newFakeClock()
	q := groupTFQuestion(1, "True", "False", "True", "False")
	q.Solution = "because"
	s := startTestSession(practiceQuiz(q), newFakeResultStore(), clock)

	view, ok := s.Taking()
	if !ok {
		t.Fatal("Taking view unavailable while Taking")
	}
	if len(view.Questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(view.Questions))
	}
	if len(view.Questions[0].SubQuestions) != 4 {
		t.Fatalf("sub questions = %d, want 4", len(view.Questions[0].SubQuestions))
	}
}

func TestEmptyQuizSubmitsZero(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()
	s := startTestSession(practiceQuiz(), store, clock)

	r, _ := s.Submit(TriggerManual)
	store.waitCreate(t)
	if r.Score != 0 || r.TotalQuestions != 0 {
		t.Fatalf("empty quiz result = %+v", r)
	}
}

func TestSubmitTriggerRecorded(t *testing.T) {
	clock := newFakeClock()
	store := newFakeResultStore()

	manual := startTestSession(practiceQuiz(), store, clock)
	if got := manual.Trigger(); got != "" {
		t.Fatalf("trigger before submit = %q, want empty", got)
	}
	manual.Submit(TriggerManual)
	store.waitCreate(t)
	if got := manual.Trigger(); got != TriggerManual {
		t.Fatalf("trigger = %q, want %q", got, TriggerManual)
	}

	expired := startTestSession(practiceQuiz(), store, clock)
	clock.Advance(31 * time.Minute)
	expired.checkDeadline()
	store.waitCreate(t)
	if got := expired.Trigger(); got != TriggerAutoExpiry {
		t.Fatalf("trigger = %q, want %q", got, TriggerAutoExpiry)
	}

	if _, ok := expired.FinishedAt(); !ok {
		t.Fatal("FinishedAt unavailable after submit")
	}
}

func TestManagerSweepsAbandonedSessions(t *testing.T) {
	store := newFakeResultStore()
	m := NewManager(store, zerolog.Nop())

	finished := m.Start(practiceQuiz(), testStudent())
	live := m.Start(practiceQuiz(), testStudent())
	defer m.Destroy(live.ID)

	finished.Submit(TriggerManual)
	store.waitCreate(t)

	// A cutoff in the future classifies every finished session as
	// abandoned; the still-Taking one must survive regardless.
	m.sweepOlderThan(time.Now().Add(time.Hour))

	if _, ok := m.Get(finished.ID); ok {
		t.Fatal("finished session survived the sweep")
	}
	if _, ok := m.Get(live.ID); !ok {
		t.Fatal("taking session was swept")
	}
	if m.Count() != 1 {
		t.Fatalf("sessions after sweep = %d, want 1", m.Count())
	}
}

func TestManagerReplacesExistingAttempt(t *testing.T) {
	store := newFakeResultStore()
	m := NewManager(store, zerolog.Nop())
	quiz := practiceQuiz()
	taker := testStudent()

	first := m.Start(quiz, taker)
	second := m.Start(quiz, taker)

	if first.ID == second.ID {
		t.Fatal("re-attempt did not create a fresh session")
	}
	if _, ok := m.Get(first.ID); ok {
		t.Fatal("previous attempt still registered")
	}
	if _, ok := m.Get(second.ID); !ok {
		t.Fatal("new attempt not registered")
	}

	m.Destroy(second.ID)
	if m.Count() != 0 {
		t.Fatalf("sessions remaining after destroy: %d", m.Count())
	}
}

func TestManagerGetForTaker(t *testing.T) {
	m := NewManager(newFakeResultStore(), zerolog.Nop())
	s := m.Start(practiceQuiz(), testStudent())

	if _, ok := m.GetForTaker(s.ID, uuid.New()); ok {
		t.Fatal("attempt leaked to another student")
	}
	if _, ok := m.GetForTaker(s.ID, s.Taker.ID); !ok {
		t.Fatal("owner denied access to own attempt")
	}
}
