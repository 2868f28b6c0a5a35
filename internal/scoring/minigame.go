package scoring

import (
	"fmt"

	"tegalsec-progression/internal/domain"
)

// MiniGameRules parameterise the phishing-spotting game.
type MiniGameRules struct {
	Lives            int
	PointsPerCorrect int
	StreakBonus      int
	DurationSeconds  int
}

// DefaultMiniGameRules: 3 lives, +10 +2*streak, 60 seconds.
func DefaultMiniGameRules() MiniGameRules {
	return MiniGameRules{
		Lives:            3,
		PointsPerCorrect: PointsPerCorrect,
		StreakBonus:      StreakBonus,
		DurationSeconds:  60,
	}
}

// MiniGameRun is the state reached by replaying classification outcomes.
type MiniGameRun struct {
	Score          int  `json:"score"`
	Answered       int  `json:"answered"`
	Correct        int  `json:"correct"`
	LivesRemaining int  `json:"lives_remaining"`
	BestStreak     int  `json:"best_streak"`
	GameOver       bool `json:"game_over"`
}

// Replay recomputes a run. Outcomes recorded after the last life was lost are rejected.
func (r MiniGameRules) Replay(outcomes []bool) (MiniGameRun, error) {
	run := MiniGameRun{LivesRemaining: r.Lives}
	streak := 0
	for i, correct := range outcomes {
		if run.GameOver {
			return MiniGameRun{}, fmt.Errorf("%w: outcome %d recorded after game over", domain.ErrValidation, i)
		}
		run.Answered++
		if correct {
			run.Score += r.PointsPerCorrect + r.StreakBonus*streak
			run.Correct++
			streak++
			if streak > run.BestStreak {
				run.BestStreak = streak
			}
			continue
		}
		streak = 0
		run.LivesRemaining--
		if run.LivesRemaining <= 0 {
			run.GameOver = true
		}
	}
	return run, nil
}

// MaxScore is the best possible score after answered classifications (all correct).
func (r MiniGameRules) MaxScore(answered int) int {
	if answered <= 0 {
		return 0
	}
	return answered*r.PointsPerCorrect + r.StreakBonus*answered*(answered-1)/2
}
