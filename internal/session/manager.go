package session

import (
	"context"
	"sync"
	"time"

	"github.com/eduquiz/eduquiz-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	sweepInterval  = 10 * time.Minute
	abandonedAfter = 2 * time.Hour
)

// Manager owns every live attempt in the process. One student holds at
// most one session per quiz: re-attempting destroys the previous
// session and starts a fresh one with an empty snapshot (and, for
// practice quizzes, a fresh clock).
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	store    ResultStore
	log      zerolog.Logger
}

// NewManager creates an empty session manager.
func NewManager(store ResultStore, log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		store:    store,
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

// Start begins a new attempt, replacing any existing session the
// student holds for the same quiz.
func (m *Manager) Start(quiz *model.Quiz, taker *model.User) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		if s.Quiz.ID == quiz.ID && s.Taker.ID == taker.ID {
			s.destroy()
			delete(m.sessions, id)
		}
	}

	s := Start(quiz, taker, m.store, m.log)
	m.sessions[s.ID] = s

	m.log.Info().
		Str("attempt_id", s.ID.String()).
		Str("quiz_id", quiz.ID.String()).
		Str("student_id", taker.ID.String()).
		Msg("Attempt started")

	return s
}

// Get returns the live session for an attempt id.
func (m *Manager) Get(attemptID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[attemptID]
	return s, ok
}

// GetForTaker returns the session only if it belongs to the given
// student — attempt ids are not capabilities.
func (m *Manager) GetForTaker(attemptID, studentID uuid.UUID) (*Session, bool) {
	s, ok := m.Get(attemptID)
	if !ok || s.Taker.ID != studentID {
		return nil, false
	}
	return s, true
}

// Destroy exits a session: the ticker stops and the session is
// forgotten. Terminal for both the Result and Review states.
func (m *Manager) Destroy(attemptID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[attemptID]; ok {
		s.destroy()
		delete(m.sessions, attemptID)
	}
}

// StartSweeper periodically evicts finished sessions whose taker never
// exited. A submitted session holds no ticker, but without the sweep
// the map itself grows without bound.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOlderThan(time.Now().Add(-abandonedAfter))
		}
	}
}

// sweepOlderThan destroys sessions submitted before the cutoff. Taking
// sessions are never swept; their own deadline tick ends them.
func (m *Manager) sweepOlderThan(cutoff time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		finished, ok := s.FinishedAt()
		if !ok || !finished.Before(cutoff) {
			continue
		}
		s.destroy()
		delete(m.sessions, id)
		m.log.Info().
			Str("attempt_id", id.String()).
			Time("finished_at", finished).
			Msg("Abandoned attempt swept")
	}
}

// Count reports the number of live sessions (monitoring).
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
