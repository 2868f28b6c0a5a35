package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/infra/memory"
)

func TestChallengeRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		ChallengeLoader: memory.NewStaticChallengeLoader([]domain.Challenge{sampleChallenge("ch-1")}),
	}
	repo := NewChallengeRepository(client, loader, time.Minute)

	if _, err := repo.GetChallenge(context.Background(), "ch-1"); err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(catalogKey) {
		t.Fatalf("expected catalogue cached in redis")
	}

	// Second repository shares the cache, loader not incremented.
	other := NewChallengeRepository(client, loader, time.Minute)
	got, err := other.GetChallenge(context.Background(), "ch-1")
	if err != nil {
		t.Fatalf("get challenge from cache: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if got.Questions[0].CorrectAnswer != 2 {
		t.Fatalf("expected answer key to survive the cache, got %+v", got.Questions[0])
	}

	if _, err := other.GetChallenge(context.Background(), "missing"); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := repo.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.ListChallenges(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.ChallengeLoader
	calls int
}

func (l *countingLoader) LoadChallenges(ctx context.Context) ([]domain.Challenge, error) {
	l.calls++
	return l.ChallengeLoader.LoadChallenges(ctx)
}

func sampleChallenge(id string) domain.Challenge {
	return domain.Challenge{
		ID:                id,
		Title:             "Free Gift Card Survey",
		Difficulty:        domain.DifficultyBeginner,
		CialdiniPrinciple: domain.PrincipleReciprocity,
		Points:            30,
		Questions: []domain.Question{
			{
				Question:      "What does the attacker want?",
				Options:       []string{"Feedback", "Nothing", "Your credentials", "A review"},
				CorrectAnswer: 2,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
