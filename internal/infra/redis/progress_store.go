package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tegalsec-progression/internal/domain"
)

const (
	leaderboardKey = "leaderboard:points"
	attemptLogSize = 100
)

// ProgressStore keeps progression records in Redis.
//   - progress:{userID}          JSON record, committed with WATCH/MULTI on the key
//   - progress:{userID}:attempts newest-first attempt log capped at attemptLogSize
//   - leaderboard:points         sorted set of points by user id
type ProgressStore struct {
	client *redis.Client

	// beforeExec runs between the version check and EXEC; tests use it to race a writer.
	beforeExec func()
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Create(ctx context.Context, record domain.ProgressionRecord) (domain.ProgressionRecord, error) {
	record.Normalize()
	record.Version = 1
	payload, err := json.Marshal(record)
	if err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("encode record: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(record.UserID), payload, 0).Result()
	if err != nil {
		return domain.ProgressionRecord{}, err
	}
	if !created {
		return s.Get(ctx, record.UserID)
	}
	if err := s.client.ZAddNX(ctx, leaderboardKey, redis.Z{Score: 0, Member: record.UserID}).Err(); err != nil {
		return domain.ProgressionRecord{}, err
	}
	return record, nil
}

func (s *ProgressStore) Get(ctx context.Context, userID string) (domain.ProgressionRecord, error) {
	return s.get(ctx, s.client, userID)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *ProgressStore) get(ctx context.Context, cmd stringGetter, userID string) (domain.ProgressionRecord, error) {
	payload, err := cmd.Get(ctx, s.key(userID)).Bytes()
	if isMiss(err) {
		return domain.ProgressionRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.ProgressionRecord{}, err
	}
	var rec domain.ProgressionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("decode record %s: %w", userID, err)
	}
	rec.Normalize()
	return rec, nil
}

func (s *ProgressStore) Commit(ctx context.Context, update domain.ProgressUpdate) error {
	next := update.Record
	key := s.key(next.UserID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, next.UserID)
		if err != nil {
			return err
		}
		if current.Version != next.Version {
			return domain.ErrVersionConflict
		}

		stored := next
		stored.Version = current.Version + 1
		payload, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		var attempt []byte
		if update.Attempt != nil {
			if attempt, err = json.Marshal(update.Attempt); err != nil {
				return fmt.Errorf("encode attempt: %w", err)
			}
		}

		if s.beforeExec != nil {
			s.beforeExec()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(stored.Points), Member: stored.UserID})
			if attempt != nil {
				pipe.LPush(ctx, s.attemptsKey(stored.UserID), attempt)
				pipe.LTrim(ctx, s.attemptsKey(stored.UserID), 0, attemptLogSize-1)
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrVersionConflict
	}
	return err
}

func (s *ProgressStore) RecentAttempts(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	if limit <= 0 {
		return []domain.Attempt{}, nil
	}
	raw, err := s.client.LRange(ctx, s.attemptsKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(raw))
	for _, item := range raw {
		var a domain.Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Top reads the sorted set down to the limit-th score, including every tie at the cut,
// and applies the leaderboard tie-break on the decoded records.
func (s *ProgressStore) Top(ctx context.Context, limit int) ([]domain.ProgressionRecord, error) {
	if limit <= 0 {
		return []domain.ProgressionRecord{}, nil
	}
	head, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(head) == 0 {
		return []domain.ProgressionRecord{}, nil
	}
	cut := head[len(head)-1].Score
	ids, err := s.client.ZRevRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{
		Max: "+inf",
		Min: fmt.Sprintf("%f", cut),
	}).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	payloads, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	records := make([]domain.ProgressionRecord, 0, len(payloads))
	for _, p := range payloads {
		str, ok := p.(string)
		if !ok {
			continue
		}
		var rec domain.ProgressionRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		rec.Normalize()
		records = append(records, rec)
	}
	domain.RankRecords(records)
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *ProgressStore) key(userID string) string {
	return "progress:" + userID
}

func (s *ProgressStore) attemptsKey(userID string) string {
	return "progress:" + userID + ":attempts"
}
