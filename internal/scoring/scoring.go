// Package scoring turns graded correctness into points.
//
// Rounding rule for partial credit: math.Round, half away from zero, so a
// 50 point challenge with 3 of 4 correct yields 38.
package scoring

import (
	"fmt"
	"math"
	"time"

	"tegalsec-progression/internal/domain"
)

// DailyMultiplier applies to the first completion of the daily challenge per calendar day.
const DailyMultiplier = 2

// ChallengeInput carries everything the policy needs about one challenge attempt.
type ChallengeInput struct {
	BasePoints     int
	CorrectCount   int
	TotalQuestions int
	// AlreadyCompleted is true when the challenge is in the user's completed set.
	AlreadyCompleted bool
	// PreviouslyCredited is the base points already credited for earlier partial attempts.
	PreviouslyCredited int
	// IsDaily is true when the challenge is today's designated daily challenge.
	IsDaily bool
	// DailyClaimedToday is true when the user already consumed today's daily bonus.
	DailyClaimedToday bool
}

// ChallengeOutcome is the award decision for one challenge attempt.
type ChallengeOutcome struct {
	IsCompleted bool
	// Earned is the base points this correctness is worth, before deduplication.
	Earned int
	// Credit is the increase over PreviouslyCredited recorded on the user's ledger.
	Credit       int
	PointsEarned int
	DailyBonus   bool
}

// ScoreChallenge applies partial credit, completion, dedup and the daily multiplier.
func ScoreChallenge(in ChallengeInput) ChallengeOutcome {
	out := ChallengeOutcome{
		IsCompleted: in.TotalQuestions > 0 && in.CorrectCount == in.TotalQuestions,
	}
	out.Earned = challengeBase(in.BasePoints, in.CorrectCount, in.TotalQuestions)
	if in.AlreadyCompleted {
		return out
	}

	out.Credit = out.Earned - in.PreviouslyCredited
	if out.Credit < 0 {
		out.Credit = 0
	}
	out.PointsEarned = out.Credit
	if out.IsCompleted && in.IsDaily && !in.DailyClaimedToday {
		out.DailyBonus = true
		out.PointsEarned = out.Credit * DailyMultiplier
	}
	return out
}

func challengeBase(base, correct, total int) int {
	if total <= 0 || base <= 0 {
		return 0
	}
	if total == 1 {
		if correct == 1 {
			return base
		}
		return 0
	}
	return int(math.Round(float64(base) * float64(correct) / float64(total)))
}

// Quiz scoring constants shared with the mini-game defaults.
const (
	PointsPerCorrect = 10
	StreakBonus      = 2
)

// QuizPoints awards 10 + 2*streak per correct answer; the streak resets on any miss.
func QuizPoints(correctness []bool) int {
	points, streak := 0, 0
	for _, ok := range correctness {
		if !ok {
			streak = 0
			continue
		}
		points += PointsPerCorrect + StreakBonus*streak
		streak++
	}
	return points
}

// Accuracy returns the percentage of correct answers rounded to two decimals.
func Accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)*10000/float64(total)) / 100
}

// Timing validates client-reported durations.
type Timing struct {
	// Grace is tolerated on top of a declared time limit.
	Grace time.Duration
	// MaxUntimed caps durations for content without a time limit.
	MaxUntimed time.Duration
}

// DefaultTiming allows 30s over a limit and a day for untimed content.
func DefaultTiming() Timing {
	return Timing{Grace: 30 * time.Second, MaxUntimed: 24 * time.Hour}
}

// Check rejects negative durations and durations beyond the limit plus grace.
func (t Timing) Check(timeTakenSeconds int, limitSeconds *int) error {
	if timeTakenSeconds < 0 {
		return fmt.Errorf("%w: time taken cannot be negative", domain.ErrValidation)
	}
	taken := time.Duration(timeTakenSeconds) * time.Second
	if limitSeconds != nil && *limitSeconds > 0 {
		allowed := time.Duration(*limitSeconds)*time.Second + t.Grace
		if taken > allowed {
			return fmt.Errorf("%w: time taken %ds exceeds limit of %ds", domain.ErrValidation, timeTakenSeconds, *limitSeconds)
		}
		return nil
	}
	if t.MaxUntimed > 0 && taken > t.MaxUntimed {
		return fmt.Errorf("%w: time taken %ds is implausible", domain.ErrValidation, timeTakenSeconds)
	}
	return nil
}

// CheckElapsed validates server-measured elapsed time against a limit plus grace.
func (t Timing) CheckElapsed(elapsed time.Duration, limitSeconds int) error {
	if limitSeconds <= 0 {
		return nil
	}
	if elapsed > time.Duration(limitSeconds)*time.Second+t.Grace {
		return fmt.Errorf("%w: submitted %s after issue, limit is %ds", domain.ErrValidation, elapsed.Truncate(time.Second), limitSeconds)
	}
	return nil
}
