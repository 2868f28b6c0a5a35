package app_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	service  *app.ProgressionService
	progress *memory.ProgressStore
	quizzes  *memory.QuizSessionStore
	feedback *memory.FeedbackStore
	clock    *fakeClock
	hub      *app.LeaderboardHub
}

func newFixture(t *testing.T, opts app.Options) *fixture {
	t.Helper()
	return newFixtureWithStore(t, opts, nil)
}

// newFixtureWithStore lets a test wrap the progress store the service talks to.
func newFixtureWithStore(t *testing.T, opts app.Options, wrap func(app.ProgressRepository) app.ProgressRepository) *fixture {
	t.Helper()
	clock := newFakeClock()
	progress := memory.NewProgressStore()
	quizzes := memory.NewQuizSessionStoreWithClock(15*time.Minute, clock.Now)
	content := memory.NewChallengeRepository(memory.NewStaticChallengeLoader(testChallenges()), time.Minute)

	hub := app.NewLeaderboardHub()
	opts.Clock = clock.Now
	opts.Hub = hub
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	if opts.DailyPicker == nil {
		opts.DailyPicker = app.FixedDaily("ch-daily")
	}
	feedback := memory.NewFeedbackStore()
	var store app.ProgressRepository = progress
	if wrap != nil {
		store = wrap(progress)
	}
	return &fixture{
		service:  app.NewProgressionService(content, store, quizzes, feedback, opts),
		progress: progress,
		quizzes:  quizzes,
		feedback: feedback,
		clock:    clock,
		hub:      hub,
	}
}

func (f *fixture) register(t *testing.T, userID, username string) app.Identity {
	t.Helper()
	id := app.Identity{UserID: userID, Username: username}
	if _, err := f.service.Register(context.Background(), id); err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
	return id
}

// Every question in the fixtures has option 1 as its answer key.
func testChallenges() []domain.Challenge {
	limit := 60
	return []domain.Challenge{
		testChallenge("ch-ceo", 50, 4, nil),
		testChallenge("ch-daily", 30, 2, nil),
		testChallenge("ch-timed", 20, 1, &limit),
	}
}

func testChallenge(id string, points, questions int, limit *int) domain.Challenge {
	c := domain.Challenge{
		ID:                id,
		Title:             "Challenge " + id,
		Difficulty:        domain.DifficultyBeginner,
		CialdiniPrinciple: domain.PrincipleAuthority,
		Points:            points,
		TimeLimitSeconds:  limit,
		Tips:              []string{"Verify through a second channel."},
	}
	for i := 0; i < questions; i++ {
		c.Questions = append(c.Questions, domain.Question{
			Question:      "Which is the red flag?",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 1,
			Explanation:   "b is the red flag",
		})
	}
	return c
}

func answers(values ...int) []*int {
	out := make([]*int, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}

func correctAnswers(n int) []*int {
	values := make([]int, n)
	for i := range values {
		values[i] = 1
	}
	return answers(values...)
}
