package memory

import (
	"context"
	"sync"

	"tegalsec-progression/internal/domain"
)

// FeedbackStore is an in-memory implementation of app.FeedbackRepository.
type FeedbackStore struct {
	mu          sync.RWMutex
	byChallenge map[string][]domain.Feedback
}

func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{byChallenge: make(map[string][]domain.Feedback)}
}

func (s *FeedbackStore) Add(_ context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChallenge[fb.ChallengeID] = append(s.byChallenge[fb.ChallengeID], fb)
	return nil
}

// List returns up to limit entries for challengeID, newest first.
func (s *FeedbackStore) List(_ context.Context, challengeID string, limit int) ([]domain.Feedback, error) {
	if limit <= 0 {
		return []domain.Feedback{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byChallenge[challengeID]
	out := make([]domain.Feedback, 0, min(limit, len(stored)))
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
