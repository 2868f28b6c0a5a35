package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tegalsec-progression/internal/domain"
)

// QuizSessionStore keeps issued quizzes in Redis until they are submitted or expire.
type QuizSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuizSessionStore(client *redis.Client, ttl time.Duration) *QuizSessionStore {
	return &QuizSessionStore{client: client, ttl: ttl}
}

func (s *QuizSessionStore) Save(ctx context.Context, session domain.QuizSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode quiz session: %w", err)
	}
	return s.client.Set(ctx, s.key(session.ID), payload, s.ttl).Err()
}

func (s *QuizSessionStore) Get(ctx context.Context, quizID string) (domain.QuizSession, error) {
	payload, err := s.client.Get(ctx, s.key(quizID)).Bytes()
	if isMiss(err) {
		return domain.QuizSession{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizSession{}, err
	}
	var session domain.QuizSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.QuizSession{}, fmt.Errorf("decode quiz session: %w", err)
	}
	return session, nil
}

func (s *QuizSessionStore) Delete(ctx context.Context, quizID string) error {
	return s.client.Del(ctx, s.key(quizID)).Err()
}

func (s *QuizSessionStore) key(quizID string) string {
	return "quiz:session:" + quizID
}
