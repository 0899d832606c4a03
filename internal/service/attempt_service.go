package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduquiz/eduquiz-backend/internal/config"
	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/eduquiz/eduquiz-backend/internal/repository"
	"github.com/eduquiz/eduquiz-backend/internal/session"
)

// Attempt flow errors.
var (
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptNotTaking = errors.New("attempt already submitted")
	ErrWrongGrade       = errors.New("quiz targets a different grade")
	ErrTestNotOpenYet   = errors.New("test has not started yet")
	ErrTestWindowClosed = errors.New("test window has closed")
)

// AttemptService is the student-facing attempt workflow. The grading
// and countdown live in the session package; this layer loads quizzes,
// enforces who may start what and when, and queues autosave snapshots
// for the background worker.
type AttemptService struct {
	quizzes  *QuizService
	results  *repository.ResultRepository
	sessions *session.Manager
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(quizzes *QuizService, results *repository.ResultRepository, sessions *session.Manager, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		results:  results,
		sessions: sessions,
		rdb:      rdb,
		log:      log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start begins an attempt for the student. Practice quizzes start
// anytime; tests only inside their scheduled window. Re-starting
// replaces any previous live session for the same quiz.
func (s *AttemptService) Start(ctx context.Context, student *model.User, quizID uuid.UUID) (*session.Session, error) {
	quiz, err := s.quizzes.GetForAttempt(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if student.Grade == nil || quiz.Grade != *student.Grade {
		return nil, ErrWrongGrade
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrQuizNoQuestions
	}

	if quiz.Kind == model.QuizKindTest && quiz.ScheduledStart != nil {
		now := time.Now()
		if now.Before(*quiz.ScheduledStart) {
			return nil, ErrTestNotOpenYet
		}
		deadline := quiz.ScheduledStart.Add(time.Duration(quiz.DurationMinutes) * time.Minute)
		if !now.Before(deadline) {
			return nil, ErrTestWindowClosed
		}
	}

	return s.sessions.Start(quiz, student), nil
}

// Get returns the student's live session for an attempt.
func (s *AttemptService) Get(attemptID, studentID uuid.UUID) (*session.Session, error) {
	sess, ok := s.sessions.GetForTaker(attemptID, studentID)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return sess, nil
}

// RecordAnswer writes one answer into the live snapshot and queues the
// snapshot for Redis autosave. Rejected outside the Taking state.
func (s *AttemptService) RecordAnswer(ctx context.Context, attemptID, studentID uuid.UUID, key, value string) error {
	sess, err := s.Get(attemptID, studentID)
	if err != nil {
		return err
	}
	if !sess.RecordAnswer(key, value) {
		return ErrAttemptNotTaking
	}
	s.queueAutosave(ctx, sess)
	return nil
}

// Reset clears the live snapshot without touching the deadline.
func (s *AttemptService) Reset(ctx context.Context, attemptID, studentID uuid.UUID) error {
	sess, err := s.Get(attemptID, studentID)
	if err != nil {
		return err
	}
	if !sess.Reset() {
		return ErrAttemptNotTaking
	}
	s.queueAutosave(ctx, sess)
	return nil
}

// Submit finishes the attempt. Idempotent: a repeated call returns the
// original result.
func (s *AttemptService) Submit(ctx context.Context, attemptID, studentID uuid.UUID) (*session.ResultView, error) {
	sess, err := s.Get(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	sess.Submit(session.TriggerManual)
	s.dropAutosave(ctx, sess.ID)

	view, ok := sess.Result()
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return view, nil
}

// EnterReview moves a finished attempt into review.
func (s *AttemptService) EnterReview(attemptID, studentID uuid.UUID) (*session.ReviewView, error) {
	sess, err := s.Get(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	sess.EnterReview()
	view, ok := sess.Review()
	if !ok {
		return nil, ErrAttemptNotTaking
	}
	return view, nil
}

// BackToResult returns from review to the score display.
func (s *AttemptService) BackToResult(attemptID, studentID uuid.UUID) (*session.ResultView, error) {
	sess, err := s.Get(attemptID, studentID)
	if err != nil {
		return nil, err
	}
	sess.BackToResult()
	view, ok := sess.Result()
	if !ok {
		return nil, ErrAttemptNotTaking
	}
	return view, nil
}

// Exit destroys the session. If it was still Taking this abandons the
// attempt without a result, matching the original exit semantics.
func (s *AttemptService) Exit(ctx context.Context, attemptID, studentID uuid.UUID) error {
	if _, err := s.Get(attemptID, studentID); err != nil {
		return err
	}
	s.sessions.Destroy(attemptID)
	s.dropAutosave(ctx, attemptID)
	return nil
}

// History lists the student's persisted results, newest first.
func (s *AttemptService) History(ctx context.Context, studentID uuid.UUID) ([]model.Result, error) {
	return s.results.ListByStudent(ctx, studentID)
}

// queueAutosave pushes the attempt id onto the persistence queue. The
// answer worker drains it and writes the snapshot to Redis, keeping
// the write off the request path.
func (s *AttemptService) queueAutosave(ctx context.Context, sess *session.Session) {
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistAnswersQueue, sess.ID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", sess.ID.String()).Msg("queue autosave")
	}
}

func (s *AttemptService) dropAutosave(ctx context.Context, attemptID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("drop autosave snapshot")
	}
}

// Snapshot returns a copy of the live answers for the autosave worker.
func (s *AttemptService) Snapshot(attemptID uuid.UUID) (map[string]string, bool) {
	sess, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, false
	}
	view, ok := sess.Taking()
	if !ok {
		return nil, false
	}
	return view.Answers, true
}
