package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tegalsec-progression/internal/domain"
)

const feedbackLogSize = 500

// FeedbackStore keeps challenge feedback as a newest-first list per challenge,
// capped at feedbackLogSize entries.
type FeedbackStore struct {
	client *redis.Client
}

func NewFeedbackStore(client *redis.Client) *FeedbackStore {
	return &FeedbackStore{client: client}
}

func (s *FeedbackStore) Add(ctx context.Context, fb domain.Feedback) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	key := s.key(fb.ChallengeID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, feedbackLogSize-1)
		return nil
	})
	return err
}

func (s *FeedbackStore) List(ctx context.Context, challengeID string, limit int) ([]domain.Feedback, error) {
	if limit <= 0 {
		return []domain.Feedback{}, nil
	}
	raw, err := s.client.LRange(ctx, s.key(challengeID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Feedback, 0, len(raw))
	for _, item := range raw {
		var fb domain.Feedback
		if err := json.Unmarshal([]byte(item), &fb); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, nil
}

func (s *FeedbackStore) key(challengeID string) string {
	return "feedback:" + challengeID
}
