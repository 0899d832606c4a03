package session

import (
	"context"
	"sync"
	"time"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the closed set of attempt states. Transitions are linear:
// Taking ends exactly once (manual or auto submit), Result and Review
// only toggle between each other, and exit destroys the session.
type State string

const (
	StateTaking State = "TAKING"
	StateResult State = "RESULT"
	StateReview State = "REVIEW"
)

// Trigger identifies what caused a submission.
type Trigger string

const (
	// TriggerManual is a student-initiated submit. Obtaining the
	// student's yes/no confirmation is the caller's responsibility;
	// a declined confirmation means Submit is simply never called.
	TriggerManual Trigger = "manual"
	// TriggerAutoExpiry is the deadline tick firing. No confirmation
	// step exists on this path.
	TriggerAutoExpiry Trigger = "auto_expiry"
)

// ResultStore persists finished attempts. Writes are best-effort from
// the session's point of view: a failed write is logged and the state
// transition proceeds regardless, so the student always sees their
// score (the original UI made the same call deliberately).
type ResultStore interface {
	CreateResult(ctx context.Context, r *model.Result) error
}

const persistTimeout = 10 * time.Second

// Session runs exactly one attempt of one quiz by one student. All
// mutable state is guarded by mu; the deadline tick and the answer
// callbacks contend for it, and both the manual and the expiry submit
// path read the same live answers map — never a copy captured when the
// tick was registered. That aliasing is the point: answers recorded a
// moment before expiry must be visible to the auto-submit grading.
type Session struct {
	ID        uuid.UUID
	Quiz      *model.Quiz
	Taker     *model.User
	StartedAt time.Time

	mu         sync.Mutex
	state      State
	answers    map[string]string
	deadline   time.Time
	result     *model.Result
	trigger    Trigger
	finishedAt time.Time

	clock    Clock
	store    ResultStore
	log      zerolog.Logger
	stopTick chan struct{}
	stopOnce sync.Once
}

// Start creates a session and begins its 1-second deadline tick.
// For tests the quiz may be empty; a zero-question quiz degenerates to
// an immediately submittable attempt, which is defined behavior.
func Start(quiz *model.Quiz, taker *model.User, store ResultStore, log zerolog.Logger) *Session {
	s := newSession(quiz, taker, store, SystemClock, log)
	go s.runTicker()
	return s
}

func newSession(quiz *model.Quiz, taker *model.User, store ResultStore, clock Clock, log zerolog.Logger) *Session {
	now := clock.Now()

	// Scheduled tests share one fixed deadline; practice attempts get
	// a fresh clock every time a new session starts.
	var deadline time.Time
	if quiz.Kind == model.QuizKindTest && quiz.ScheduledStart != nil {
		deadline = quiz.ScheduledStart.Add(time.Duration(quiz.DurationMinutes) * time.Minute)
	} else {
		deadline = now.Add(time.Duration(quiz.DurationMinutes) * time.Minute)
	}

	id := uuid.New()
	return &Session{
		ID:        id,
		Quiz:      quiz,
		Taker:     taker,
		StartedAt: now,
		state:     StateTaking,
		answers:   make(map[string]string),
		deadline:  deadline,
		clock:     clock,
		store:     store,
		log: log.With().
			Str("component", "exam_session").
			Str("attempt_id", id.String()).
			Str("quiz_id", quiz.ID.String()).
			Logger(),
		stopTick: make(chan struct{}),
	}
}

// runTicker checks the deadline once per second until submission. The
// remaining time is recomputed from the wall clock on every tick, not
// decremented, so missed ticks (process stalls, clock hiccups) cannot
// let the attempt run long.
func (s *Session) runTicker() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopTick:
			return
		case <-ticker.C:
			s.checkDeadline()
		}
	}
}

// checkDeadline auto-submits when the wall clock has passed the
// deadline. Safe to call from any goroutine.
func (s *Session) checkDeadline() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTaking {
		return
	}
	if s.clock.Now().Before(s.deadline) {
		return
	}
	s.submitLocked(TriggerAutoExpiry)
}

// State returns the current attempt state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SecondsRemaining returns the wall-clock seconds left, clamped to 0.
func (s *Session) SecondsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secondsRemainingLocked()
}

func (s *Session) secondsRemainingLocked() int {
	remaining := s.deadline.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// RecordAnswer overwrites one snapshot entry. Outside Taking it is a
// silent no-op — Result and Review are read-only by contract, not by
// error. Returns whether the answer was accepted.
func (s *Session) RecordAnswer(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTaking {
		return false
	}
	s.answers[key] = value
	return true
}

// Reset clears the snapshot in place. Permitted only while Taking; the
// deadline is deliberately untouched (only a brand-new practice
// session restarts the clock, and test deadlines are fixed anyway).
func (s *Session) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTaking {
		return false
	}
	clear(s.answers)
	return true
}

// Submit ends the Taking state. It is idempotent: the first call
// grades, persists, and transitions; any later call returns the same
// Result without side effects. The returned bool reports whether this
// call performed the submission.
func (s *Session) Submit(trigger Trigger) (*model.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTaking {
		return s.result, false
	}
	return s.submitLocked(trigger), true
}

func (s *Session) submitLocked(trigger Trigger) *model.Result {
	// Grade against the live snapshot, under the same lock that
	// RecordAnswer takes: every answer recorded before this moment is
	// included, even when we got here from the expiry tick.
	score := GradeAll(s.Quiz.Questions, s.answers)

	remaining := s.secondsRemainingLocked()
	spent := s.Quiz.DurationMinutes*60 - remaining
	if spent < 0 {
		spent = 0
	}

	result := &model.Result{
		ID:             uuid.New(),
		QuizID:         s.Quiz.ID,
		StudentID:      s.Taker.ID,
		StudentName:    s.Taker.FullName,
		Score:          score,
		TotalQuestions: len(s.Quiz.Questions),
		SecondsSpent:   spent,
		SubmittedAt:    s.clock.Now(),
	}

	s.result = result
	s.state = StateResult
	s.trigger = trigger
	s.finishedAt = result.SubmittedAt
	s.stopOnce.Do(func() { close(s.stopTick) })

	s.log.Info().
		Str("trigger", string(trigger)).
		Float64("score", score).
		Int("seconds_spent", spent).
		Msg("Attempt submitted")

	// Fire-and-forget persistence: the student sees their score even
	// if the write fails.
	go s.persist(result)

	return result
}

func (s *Session) persist(result *model.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.store.CreateResult(ctx, result); err != nil {
		s.log.Error().Err(err).
			Str("result_id", result.ID.String()).
			Msg("Result persistence failed, score shown from memory")
	}
}

// Trigger reports what caused the submission. Empty while Taking; set
// under the same lock as the state transition, so a non-Taking state
// always observes it.
func (s *Session) Trigger() Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trigger
}

// FinishedAt reports when the attempt was submitted. ok is false while
// the attempt is still Taking.
func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, !s.finishedAt.IsZero()
}

// EnterReview moves Result → Review with the snapshot frozen.
func (s *Session) EnterReview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateResult {
		return false
	}
	s.state = StateReview
	return true
}

// BackToResult moves Review → Result.
func (s *Session) BackToResult() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReview {
		return false
	}
	s.state = StateResult
	return true
}

// destroy stops the ticker. Called by the manager on exit.
func (s *Session) destroy() {
	s.stopOnce.Do(func() { close(s.stopTick) })
}
