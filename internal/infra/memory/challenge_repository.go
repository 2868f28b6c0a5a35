package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tegalsec-progression/internal/domain"
)

// ChallengeLoader fetches the published catalogue from a backing store (YAML file, Postgres).
type ChallengeLoader interface {
	LoadChallenges(ctx context.Context) ([]domain.Challenge, error)
}

// ChallengeRepository caches the catalogue with TTL to avoid repeated backing store hits.
type ChallengeRepository struct {
	loader ChallengeLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    *Catalog
	expiresAt time.Time
}

func NewChallengeRepository(loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
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

// Invalidate drops the cached catalogue so the next read reloads it.
func (r *ChallengeRepository) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

func (r *ChallengeRepository) catalog(ctx context.Context) (*Catalog, error) {
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && (r.ttl <= 0 || r.expiresAt.After(now)) {
		c := r.cached
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.cached != nil && (r.ttl <= 0 || r.expiresAt.After(now)) {
			c := r.cached
			r.mu.RUnlock()
			return c, nil
		}
		r.mu.RUnlock()

		challenges, err := r.loader.LoadChallenges(ctx)
		if err != nil {
			return nil, err
		}
		c, err := NewCatalog(challenges)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cached = c
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Catalog), nil
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// Catalog is an immutable, validated set of challenges ordered by id.
type Catalog struct {
	ordered []domain.Challenge
	byID    map[string]domain.Challenge
}

// NewCatalog validates every challenge and rejects duplicate ids.
func NewCatalog(challenges []domain.Challenge) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]domain.Challenge, 0, len(challenges)),
		byID:    make(map[string]domain.Challenge, len(challenges)),
	}
	for _, ch := range challenges {
		if err := ch.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[ch.ID]; dup {
			return nil, &duplicateChallengeError{id: ch.ID}
		}
		c.byID[ch.ID] = ch
		c.ordered = append(c.ordered, ch)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c, nil
}

func (c *Catalog) Get(challengeID string) (domain.Challenge, error) {
	if ch, ok := c.byID[challengeID]; ok {
		return ch, nil
	}
	return domain.Challenge{}, domain.ErrChallengeNotFound
}

func (c *Catalog) List() []domain.Challenge {
	return append([]domain.Challenge(nil), c.ordered...)
}

type duplicateChallengeError struct{ id string }

func (e *duplicateChallengeError) Error() string {
	return "validation failed: duplicate challenge id " + e.id
}

func (e *duplicateChallengeError) Unwrap() error { return domain.ErrValidation }

// StaticChallengeLoader is a loader backed by an in-memory slice (useful for tests/demos).
type StaticChallengeLoader struct {
	challenges []domain.Challenge
}

func NewStaticChallengeLoader(challenges []domain.Challenge) *StaticChallengeLoader {
	return &StaticChallengeLoader{challenges: challenges}
}

func (l *StaticChallengeLoader) LoadChallenges(_ context.Context) ([]domain.Challenge, error) {
	return append([]domain.Challenge(nil), l.challenges...), nil
}
