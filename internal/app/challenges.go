package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/grading"
	"tegalsec-progression/internal/scoring"
)

// AttemptResult is returned to the learner after a challenge submission.
type AttemptResult struct {
	AttemptID         string                  `json:"attempt_id"`
	ChallengeID       string                  `json:"challenge_id"`
	Status            string                  `json:"status"`
	IsCompleted       bool                    `json:"is_completed"`
	AlreadyCompleted  bool                    `json:"already_completed"`
	CorrectCount      int                     `json:"correct_count"`
	TotalQuestions    int                     `json:"total_questions"`
	PointsEarned      int                     `json:"points_earned"`
	DailyBonusApplied bool                    `json:"daily_bonus_applied"`
	Results           []domain.QuestionResult `json:"results"`
	Tips              []string                `json:"tips"`
	NewlyUnlocked     []UnlockedAchievement   `json:"newly_unlocked_achievements"`
	TotalPoints       int                     `json:"total_points"`
	Level             string                  `json:"level"`
}

// ChallengeSummary is a catalogue row annotated with the caller's completion state.
type ChallengeSummary struct {
	domain.PublicChallenge
	Completed bool `json:"completed"`
	IsDaily   bool `json:"is_daily"`
}

// SubmitAttempt grades answers for a challenge and applies the resulting award atomically.
func (s *ProgressionService) SubmitAttempt(ctx context.Context, id Identity, challengeID string, answers []*int, timeTakenSeconds int) (AttemptResult, error) {
	challenge, err := s.content.GetChallenge(ctx, challengeID)
	if err != nil {
		return AttemptResult{}, err
	}
	// Unknown callers are turned away before their answers are looked at.
	if _, err := s.loadRecord(ctx, id); err != nil {
		return AttemptResult{}, err
	}
	if err := s.opts.Timing.Check(timeTakenSeconds, challenge.TimeLimitSeconds); err != nil {
		return AttemptResult{}, err
	}
	graded, err := grading.Grade(challenge.Questions, answers, grading.Strict)
	if err != nil {
		return AttemptResult{}, err
	}
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return AttemptResult{}, fmt.Errorf("list challenges: %w", err)
	}

	var result AttemptResult
	done, err := s.mutate(ctx, id, len(catalog), func(rec *domain.ProgressionRecord, now time.Time) (domain.ProgressUpdate, error) {
		today := s.day(now)
		daily, hasDaily := s.dailyFor(catalog, now)
		already := rec.HasCompleted(challenge.ID)

		outcome := scoring.ScoreChallenge(scoring.ChallengeInput{
			BasePoints:         challenge.Points,
			CorrectCount:       graded.CorrectCount,
			TotalQuestions:     graded.Total(),
			AlreadyCompleted:   already,
			PreviouslyCredited: rec.Credited[challenge.ID],
			IsDaily:            hasDaily && daily.ID == challenge.ID,
			DailyClaimedToday:  rec.DailyChallengeCompletedDate == today,
		})

		var update domain.ProgressUpdate
		status := domain.StatusReviewed
		if !already {
			status = domain.StatusSubmitted
			if outcome.Credit > 0 {
				rec.Credited[challenge.ID] += outcome.Credit
			}
			rec.Points += outcome.PointsEarned
			if outcome.IsCompleted {
				rec.CompletedChallenges = append(rec.CompletedChallenges, challenge.ID)
				rec.PerfectScores++
				update.CompletedChallenge = challenge.ID
			}
			if outcome.DailyBonus {
				rec.DailyChallengeCompletedDate = today
			}
		}

		attempt := &domain.Attempt{
			ID:               uuid.NewString(),
			UserID:           rec.UserID,
			Kind:             domain.AttemptChallenge,
			ChallengeID:      challenge.ID,
			Answers:          answers,
			CorrectCount:     graded.CorrectCount,
			TotalQuestions:   graded.Total(),
			IsCompleted:      outcome.IsCompleted,
			PointsEarned:     outcome.PointsEarned,
			Status:           status,
			DailyBonus:       outcome.DailyBonus,
			TimeTakenSeconds: timeTakenSeconds,
			Timestamp:        now,
		}
		update.Attempt = attempt

		result = AttemptResult{
			AttemptID:         attempt.ID,
			ChallengeID:       challenge.ID,
			Status:            status,
			IsCompleted:       outcome.IsCompleted,
			AlreadyCompleted:  already,
			CorrectCount:      graded.CorrectCount,
			TotalQuestions:    graded.Total(),
			PointsEarned:      outcome.PointsEarned,
			DailyBonusApplied: outcome.DailyBonus,
			Results:           graded.Questions,
			Tips:              challenge.Tips,
		}
		return update, nil
	})
	if err != nil {
		return AttemptResult{}, err
	}

	result.NewlyUnlocked = done.unlocked
	result.TotalPoints = done.record.Points
	result.Level = done.record.Level
	s.opts.Metrics.AttemptGraded(domain.AttemptChallenge, result.Status, result.PointsEarned)
	s.log.Info("challenge attempt graded",
		zap.String("user_id", id.UserID),
		zap.String("challenge_id", challenge.ID),
		zap.Int("correct", result.CorrectCount),
		zap.Int("total", result.TotalQuestions),
		zap.Int("points", result.PointsEarned),
		zap.Bool("daily_bonus", result.DailyBonusApplied))
	return result, nil
}

// Challenge returns a challenge without its answer key.
func (s *ProgressionService) Challenge(ctx context.Context, challengeID string) (domain.PublicChallenge, error) {
	challenge, err := s.content.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.PublicChallenge{}, err
	}
	return challenge.Public(), nil
}

// ChallengeFilter narrows a catalogue listing. Empty fields match everything.
type ChallengeFilter struct {
	Category   string
	Difficulty string
}

func (f ChallengeFilter) match(c domain.Challenge) bool {
	return (f.Category == "" || strings.EqualFold(f.Category, c.Category)) &&
		(f.Difficulty == "" || strings.EqualFold(f.Difficulty, c.Difficulty))
}

// Challenges lists the catalogue. Completion flags are filled in when the caller is known.
func (s *ProgressionService) Challenges(ctx context.Context, id Identity, filter ChallengeFilter) ([]ChallengeSummary, error) {
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	var rec domain.ProgressionRecord
	if id.UserID != "" {
		if rec, err = s.loadRecord(ctx, id); err != nil {
			return nil, err
		}
	}
	daily, hasDaily := s.dailyFor(catalog, s.now())

	out := make([]ChallengeSummary, 0, len(catalog))
	for _, c := range catalog {
		if !filter.match(c) {
			continue
		}
		out = append(out, ChallengeSummary{
			PublicChallenge: c.Public(),
			Completed:       rec.HasCompleted(c.ID),
			IsDaily:         hasDaily && daily.ID == c.ID,
		})
	}
	return out, nil
}
