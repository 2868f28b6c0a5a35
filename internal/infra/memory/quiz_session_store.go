package memory

import (
	"context"
	"sync"
	"time"

	"tegalsec-progression/internal/domain"
)

// QuizSessionStore is an in-memory implementation of app.QuizSessionRepository.
// Sessions expire after ttl; expired entries are dropped lazily on access.
type QuizSessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]storedSession
}

type storedSession struct {
	session   domain.QuizSession
	expiresAt time.Time
}

func NewQuizSessionStore(ttl time.Duration) *QuizSessionStore {
	return NewQuizSessionStoreWithClock(ttl, time.Now)
}

// NewQuizSessionStoreWithClock allows deterministic expiry in tests.
func NewQuizSessionStoreWithClock(ttl time.Duration, clock func() time.Time) *QuizSessionStore {
	return &QuizSessionStore{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]storedSession),
	}
}

func (s *QuizSessionStore) Save(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for id, stored := range s.sessions {
		if s.expired(stored, now) {
			delete(s.sessions, id)
		}
	}
	s.sessions[session.ID] = storedSession{session: session, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *QuizSessionStore) Get(_ context.Context, quizID string) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[quizID]
	if !ok {
		return domain.QuizSession{}, domain.ErrQuizNotFound
	}
	if s.expired(stored, s.clock()) {
		delete(s.sessions, quizID)
		return domain.QuizSession{}, domain.ErrQuizNotFound
	}
	return stored.session, nil
}

func (s *QuizSessionStore) Delete(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, quizID)
	return nil
}

func (s *QuizSessionStore) expired(stored storedSession, now time.Time) bool {
	return s.ttl > 0 && !stored.expiresAt.After(now)
}
