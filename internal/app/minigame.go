package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tegalsec-progression/internal/domain"
)

// MiniGameSubmission is the client-reported end of a mini-game run.
type MiniGameSubmission struct {
	GameType         string          `json:"game_type"`
	Score            int             `json:"score"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	Details          json.RawMessage `json:"details,omitempty"`
}

// MiniGameResult acknowledges a recorded mini-game completion.
type MiniGameResult struct {
	GameType      string                `json:"game_type"`
	PointsEarned  int                   `json:"points_earned"`
	NewlyUnlocked []UnlockedAchievement `json:"newly_unlocked_achievements"`
	TotalPoints   int                   `json:"total_points"`
	Level         string                `json:"level"`
}

type miniGameDetails struct {
	EmailsAnswered *int   `json:"emails_answered"`
	LivesRemaining *int   `json:"lives_remaining"`
	Outcomes       []bool `json:"outcomes"`
}

// CompleteMiniGame records the single scored run a user gets per game type.
func (s *ProgressionService) CompleteMiniGame(ctx context.Context, id Identity, sub MiniGameSubmission) (MiniGameResult, error) {
	if id.UserID == "" {
		return MiniGameResult{}, domain.ErrUnauthorized
	}
	if err := s.validateMiniGame(sub); err != nil {
		return MiniGameResult{}, err
	}
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return MiniGameResult{}, fmt.Errorf("list challenges: %w", err)
	}

	kind := domain.MiniGameCompletionKind(sub.GameType)
	done, err := s.mutate(ctx, id, len(catalog), func(rec *domain.ProgressionRecord, now time.Time) (domain.ProgressUpdate, error) {
		if _, exists := rec.Completion(kind); exists {
			return domain.ProgressUpdate{}, fmt.Errorf("%w: mini-game %s", domain.ErrDuplicateCompletion, sub.GameType)
		}
		completion := domain.Completion{
			Kind:             kind,
			Score:            sub.Score,
			PointsEarned:     sub.Score,
			TimeTakenSeconds: sub.TimeTakenSeconds,
			Details:          sub.Details,
			CompletedAt:      now,
		}
		rec.Points += sub.Score
		rec.Completions[kind] = completion
		return domain.ProgressUpdate{
			Completion: &completion,
			Attempt: &domain.Attempt{
				ID:               uuid.NewString(),
				UserID:           rec.UserID,
				Kind:             domain.AttemptMiniGame,
				ChallengeID:      sub.GameType,
				IsCompleted:      true,
				PointsEarned:     sub.Score,
				Status:           domain.StatusSubmitted,
				TimeTakenSeconds: sub.TimeTakenSeconds,
				Timestamp:        now,
			},
		}, nil
	})
	if err != nil {
		return MiniGameResult{}, err
	}

	s.opts.Metrics.AttemptGraded(domain.AttemptMiniGame, domain.StatusSubmitted, sub.Score)
	s.log.Info("mini-game recorded",
		zap.String("user_id", id.UserID),
		zap.String("game_type", sub.GameType),
		zap.Int("score", sub.Score))
	return MiniGameResult{
		GameType:      sub.GameType,
		PointsEarned:  sub.Score,
		NewlyUnlocked: done.unlocked,
		TotalPoints:   done.record.Points,
		Level:         done.record.Level,
	}, nil
}

// validateMiniGame bounds a client-reported score by what the game rules allow.
func (s *ProgressionService) validateMiniGame(sub MiniGameSubmission) error {
	if !s.knownGame(sub.GameType) {
		return fmt.Errorf("%w: unknown game type %q", domain.ErrValidation, sub.GameType)
	}
	if sub.Score < 0 {
		return fmt.Errorf("%w: score cannot be negative", domain.ErrValidation)
	}
	rules := s.opts.MiniGame
	limit := rules.DurationSeconds
	if err := s.opts.Timing.Check(sub.TimeTakenSeconds, &limit); err != nil {
		return err
	}

	var details miniGameDetails
	if raw := bytes.TrimSpace(sub.Details); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &details); err != nil {
			return fmt.Errorf("%w: details: %v", domain.ErrValidation, err)
		}
	}
	if details.LivesRemaining != nil && (*details.LivesRemaining < 0 || *details.LivesRemaining > rules.Lives) {
		return fmt.Errorf("%w: lives remaining out of range", domain.ErrValidation)
	}

	// One classification per second is the fastest the game can be played.
	answerable := sub.TimeTakenSeconds
	if answerable > rules.DurationSeconds {
		answerable = rules.DurationSeconds
	}
	answerable++

	switch {
	case details.Outcomes != nil:
		if len(details.Outcomes) > answerable {
			return fmt.Errorf("%w: %d answers cannot fit in %d seconds", domain.ErrValidation, len(details.Outcomes), sub.TimeTakenSeconds)
		}
		run, err := rules.Replay(details.Outcomes)
		if err != nil {
			return err
		}
		if run.Score != sub.Score {
			return fmt.Errorf("%w: score %d does not match replayed score %d", domain.ErrValidation, sub.Score, run.Score)
		}
		if details.LivesRemaining != nil && *details.LivesRemaining != run.LivesRemaining {
			return fmt.Errorf("%w: lives remaining %d does not match replayed %d", domain.ErrValidation, *details.LivesRemaining, run.LivesRemaining)
		}
	case details.EmailsAnswered != nil:
		answered := *details.EmailsAnswered
		if answered < 0 {
			return fmt.Errorf("%w: emails answered cannot be negative", domain.ErrValidation)
		}
		if answered > answerable {
			return fmt.Errorf("%w: %d answers cannot fit in %d seconds", domain.ErrValidation, answered, sub.TimeTakenSeconds)
		}
		misses := 0
		if details.LivesRemaining != nil {
			misses = rules.Lives - *details.LivesRemaining
		}
		if misses > answered {
			return fmt.Errorf("%w: %d lives lost with only %d answers", domain.ErrValidation, misses, answered)
		}
		if ceiling := rules.MaxScore(answered - misses); sub.Score > ceiling {
			return fmt.Errorf("%w: score %d exceeds %d possible with %d answers", domain.ErrValidation, sub.Score, ceiling, answered)
		}
	default:
		misses := 0
		if details.LivesRemaining != nil {
			misses = rules.Lives - *details.LivesRemaining
		}
		if ceiling := rules.MaxScore(answerable - misses); sub.Score > ceiling {
			return fmt.Errorf("%w: score %d exceeds %d possible in %d seconds", domain.ErrValidation, sub.Score, ceiling, sub.TimeTakenSeconds)
		}
	}
	return nil
}

func (s *ProgressionService) knownGame(gameType string) bool {
	for _, g := range s.opts.MiniGameTypes {
		if g == gameType {
			return true
		}
	}
	return false
}

// MiniGameCompletionStatus reports whether the caller already played gameType.
func (s *ProgressionService) MiniGameCompletionStatus(ctx context.Context, id Identity, gameType string) (CompletionStatus, error) {
	if !s.knownGame(gameType) {
		return CompletionStatus{}, fmt.Errorf("%w: unknown game type %q", domain.ErrValidation, gameType)
	}
	return s.completionStatus(ctx, id, domain.MiniGameCompletionKind(gameType))
}
