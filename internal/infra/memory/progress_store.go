package memory

import (
	"context"
	"sync"

	"tegalsec-progression/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressRepository.
type ProgressStore struct {
	mu       sync.RWMutex
	records  map[string]domain.ProgressionRecord
	attempts map[string][]domain.Attempt
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records:  make(map[string]domain.ProgressionRecord),
		attempts: make(map[string][]domain.Attempt),
	}
}

func (s *ProgressStore) Create(_ context.Context, record domain.ProgressionRecord) (domain.ProgressionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.UserID]; ok {
		return existing.Clone(), nil
	}
	record.Normalize()
	record.Version = 1
	s.records[record.UserID] = record.Clone()
	return record, nil
}

func (s *ProgressStore) Get(_ context.Context, userID string) (domain.ProgressionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return domain.ProgressionRecord{}, domain.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *ProgressStore) Commit(_ context.Context, update domain.ProgressUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := update.Record
	current, ok := s.records[next.UserID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if current.Version != next.Version {
		return domain.ErrVersionConflict
	}
	if update.CompletedChallenge != "" && current.HasCompleted(update.CompletedChallenge) {
		return domain.ErrVersionConflict
	}

	stored := next.Clone()
	stored.Version = current.Version + 1
	s.records[next.UserID] = stored
	if update.Attempt != nil {
		s.attempts[next.UserID] = append(s.attempts[next.UserID], *update.Attempt)
	}
	return nil
}

// RecentAttempts returns up to limit attempts, newest first.
func (s *ProgressStore) RecentAttempts(_ context.Context, userID string, limit int) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.attempts[userID]
	out := make([]domain.Attempt, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *ProgressStore) Top(_ context.Context, limit int) ([]domain.ProgressionRecord, error) {
	s.mu.RLock()
	records := make([]domain.ProgressionRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec.Clone())
	}
	s.mu.RUnlock()

	domain.RankRecords(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
