package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/domain"
)

func TestMiniGameCompletesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{})
	id := f.register(t, "u1", "alice")

	sub := app.MiniGameSubmission{
		GameType:         "spot_the_phishing",
		Score:            58,
		TimeTakenSeconds: 60,
		Details:          json.RawMessage(`{"outcomes":[true,true,true,false,true,true],"lives_remaining":2}`),
	}
	res, err := f.service.CompleteMiniGame(ctx, id, sub)
	if err != nil {
		t.Fatalf("complete mini-game: %v", err)
	}
	if res.PointsEarned != 58 || res.TotalPoints != 58 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := f.service.CompleteMiniGame(ctx, id, sub); !errors.Is(err, domain.ErrDuplicateCompletion) {
		t.Fatalf("expected duplicate completion, got %v", err)
	}

	status, err := f.service.MiniGameCompletionStatus(ctx, id, "spot_the_phishing")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Completed || status.CompletionData.Score != 58 {
		t.Fatalf("expected stored completion, got %+v", status)
	}

	progress, _ := f.service.Progress(ctx, id)
	if progress.Points != 58 {
		t.Fatalf("expected points credited once, got %d", progress.Points)
	}
}

func TestMiniGameRejectsImplausibleScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{})
	id := f.register(t, "u1", "alice")

	cases := []struct {
		name string
		sub  app.MiniGameSubmission
	}{
		{"unknown game", app.MiniGameSubmission{GameType: "tetris", Score: 10}},
		{"negative score", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: -5}},
		{"replay mismatch", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 100, Details: json.RawMessage(`{"outcomes":[true,true]}`)}},
		{"over ceiling", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 500, Details: json.RawMessage(`{"emails_answered":5}`)}},
		{"too many lives", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 10, Details: json.RawMessage(`{"lives_remaining":9}`)}},
		{"bad details", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 10, Details: json.RawMessage(`"oops"`)}},
		{"too slow", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 10, TimeTakenSeconds: 600}},
		{"answers faster than the clock", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 4140, TimeTakenSeconds: 1, Details: json.RawMessage(`{"emails_answered":60}`)}},
		{"outcomes faster than the clock", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 36, TimeTakenSeconds: 1, Details: json.RawMessage(`{"outcomes":[true,true,true]}`)}},
		{"lives disagree with replay", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 20, TimeTakenSeconds: 10, Details: json.RawMessage(`{"outcomes":[true,false,true],"lives_remaining":3}`)}},
		{"more misses than answers", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 10, TimeTakenSeconds: 10, Details: json.RawMessage(`{"emails_answered":1,"lives_remaining":0}`)}},
		{"lost lives lower the ceiling", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 70, TimeTakenSeconds: 10, Details: json.RawMessage(`{"emails_answered":5,"lives_remaining":0}`)}},
		{"no details past the clock", app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 100, TimeTakenSeconds: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.CompleteMiniGame(ctx, id, tc.sub); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	status, _ := f.service.MiniGameCompletionStatus(ctx, id, "spot_the_phishing")
	if status.Completed {
		t.Fatalf("rejected runs must not consume the one completion")
	}
}

func TestMiniGameAcceptsRunWithLostLives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.Options{})
	id := f.register(t, "u1", "alice")

	// Three correct in a row is the best five answers with two misses can do.
	sub := app.MiniGameSubmission{
		GameType:         "spot_the_phishing",
		Score:            36,
		TimeTakenSeconds: 10,
		Details:          json.RawMessage(`{"emails_answered":5,"lives_remaining":1}`),
	}
	res, err := f.service.CompleteMiniGame(ctx, id, sub)
	if err != nil {
		t.Fatalf("complete mini-game: %v", err)
	}
	if res.PointsEarned != 36 {
		t.Fatalf("expected 36 points, got %+v", res)
	}
}
