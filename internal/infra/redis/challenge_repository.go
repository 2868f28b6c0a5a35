package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/infra/memory"
)

const catalogKey = "content:challenges"

// ChallengeRepository caches the validated catalogue in Redis as one JSON document
// and falls back to a loader on cache miss, so every instance grades against the same content.
type ChallengeRepository struct {
	client *redis.Client
	loader memory.ChallengeLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewChallengeRepository(client *redis.Client, loader memory.ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ChallengeRepository) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	catalog, err := r.catalog(ctx)
	if err != nil {
		return domain.Challenge{}, err
	}
	return catalog.Get(challengeID)
}

func (r *ChallengeRepository) ListChallenges(ctx context.Context) ([]domain.Challenge, error) {
	catalog, err := r.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.List(), nil
}

// Invalidate removes the shared cache entry so the next read reloads from the loader.
func (r *ChallengeRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey).Err()
}

func (r *ChallengeRepository) catalog(ctx context.Context) (*memory.Catalog, error) {
	if c, ok := r.cached(ctx); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if c, ok := r.cached(ctx); ok {
			return c, nil
		}

		challenges, err := r.loader.LoadChallenges(ctx)
		if err != nil {
			return nil, err
		}
		c, err := memory.NewCatalog(challenges)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(c.List())
		if err != nil {
			return nil, fmt.Errorf("encode catalogue: %w", err)
		}
		// best-effort: a failed cache write only costs another load
		_ = r.client.Set(ctx, catalogKey, payload, r.ttlWithJitter()).Err()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*memory.Catalog), nil
}

func (r *ChallengeRepository) cached(ctx context.Context) (*memory.Catalog, bool) {
	payload, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var challenges []domain.Challenge
	if err := json.Unmarshal(payload, &challenges); err != nil {
		return nil, false
	}
	c, err := memory.NewCatalog(challenges)
	if err != nil {
		return nil, false
	}
	return c, true
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// isMiss reports a plain cache miss as opposed to a transport failure.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
