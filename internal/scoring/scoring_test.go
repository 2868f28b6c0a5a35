package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tegalsec-progression/internal/domain"
)

func TestScoreChallengeFullAndPartial(t *testing.T) {
	full := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 4, TotalQuestions: 4})
	assert.True(t, full.IsCompleted)
	assert.Equal(t, 50, full.PointsEarned)

	partial := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 3, TotalQuestions: 4})
	assert.False(t, partial.IsCompleted)
	assert.Equal(t, 38, partial.PointsEarned, "37.5 rounds half away from zero")
	assert.Equal(t, 38, partial.Credit)
}

func TestScoreChallengeSingleQuestion(t *testing.T) {
	assert.Equal(t, 30, ScoreChallenge(ChallengeInput{BasePoints: 30, CorrectCount: 1, TotalQuestions: 1}).PointsEarned)
	assert.Equal(t, 0, ScoreChallenge(ChallengeInput{BasePoints: 30, CorrectCount: 0, TotalQuestions: 1}).PointsEarned)
}

func TestScoreChallengeAlreadyCompletedEarnsNothing(t *testing.T) {
	out := ScoreChallenge(ChallengeInput{
		BasePoints: 50, CorrectCount: 4, TotalQuestions: 4,
		AlreadyCompleted: true, IsDaily: true,
	})
	assert.True(t, out.IsCompleted)
	assert.Zero(t, out.PointsEarned)
	assert.Zero(t, out.Credit)
	assert.False(t, out.DailyBonus)
}

func TestScoreChallengePartialCreditIsOnlyToppedUp(t *testing.T) {
	again := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 3, TotalQuestions: 4, PreviouslyCredited: 38})
	assert.Zero(t, again.PointsEarned)

	lower := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 1, TotalQuestions: 4, PreviouslyCredited: 38})
	assert.Zero(t, lower.PointsEarned)

	completion := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 4, TotalQuestions: 4, PreviouslyCredited: 38})
	assert.True(t, completion.IsCompleted)
	assert.Equal(t, 12, completion.PointsEarned)
}

func TestScoreChallengeDailyMultiplier(t *testing.T) {
	daily := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 4, TotalQuestions: 4, IsDaily: true})
	assert.True(t, daily.DailyBonus)
	assert.Equal(t, 100, daily.PointsEarned)
	assert.Equal(t, 50, daily.Credit)

	claimed := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 4, TotalQuestions: 4, IsDaily: true, DailyClaimedToday: true})
	assert.False(t, claimed.DailyBonus)
	assert.Equal(t, 50, claimed.PointsEarned)

	failed := ScoreChallenge(ChallengeInput{BasePoints: 50, CorrectCount: 2, TotalQuestions: 4, IsDaily: true})
	assert.False(t, failed.DailyBonus, "only a completing attempt consumes the daily slot")
	assert.Equal(t, 25, failed.PointsEarned)
}

func TestScoreChallengeBounds(t *testing.T) {
	for total := 1; total <= 6; total++ {
		for correct := 0; correct <= total; correct++ {
			for _, daily := range []bool{false, true} {
				out := ScoreChallenge(ChallengeInput{BasePoints: 75, CorrectCount: correct, TotalQuestions: total, IsDaily: daily})
				assert.GreaterOrEqual(t, out.PointsEarned, 0)
				assert.LessOrEqual(t, out.PointsEarned, 75*DailyMultiplier)
				if !daily {
					assert.LessOrEqual(t, out.PointsEarned, 75)
				}
			}
		}
	}
}

func TestQuizPointsStreak(t *testing.T) {
	allCorrect := make([]bool, 10)
	for i := range allCorrect {
		allCorrect[i] = true
	}
	assert.Equal(t, 190, QuizPoints(allCorrect))

	// 10, 12, miss, 10, 12
	assert.Equal(t, 44, QuizPoints([]bool{true, true, false, true, true}))
	assert.Zero(t, QuizPoints([]bool{false, false}))
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 80.0, Accuracy(8, 10))
	assert.Equal(t, 33.33, Accuracy(1, 3))
	assert.Zero(t, Accuracy(0, 0))
}

func TestMiniGameReplay(t *testing.T) {
	rules := DefaultMiniGameRules()

	tenInARow := make([]bool, 10)
	for i := range tenInARow {
		tenInARow[i] = true
	}
	run, err := rules.Replay(tenInARow)
	require.NoError(t, err)
	assert.Equal(t, 190, run.Score)
	assert.Equal(t, 3, run.LivesRemaining)
	assert.Equal(t, 10, run.BestStreak)
	assert.Equal(t, rules.MaxScore(10), run.Score)

	// 10 + 12 + 14, miss resets, then 10 + 12
	run, err = rules.Replay([]bool{true, true, true, false, true, true})
	require.NoError(t, err)
	assert.Equal(t, 58, run.Score)
	assert.Equal(t, 2, run.LivesRemaining)
	assert.False(t, run.GameOver)
}

func TestMiniGameReplayEndsAtZeroLives(t *testing.T) {
	rules := DefaultMiniGameRules()
	run, err := rules.Replay([]bool{true, false, false, false})
	require.NoError(t, err)
	assert.True(t, run.GameOver)
	assert.Zero(t, run.LivesRemaining)
	assert.Equal(t, 10, run.Score)

	_, err = rules.Replay([]bool{false, false, false, true})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLevels(t *testing.T) {
	levels := DefaultLevels()
	assert.Equal(t, "Beginner", levels.For(0))
	assert.Equal(t, "Beginner", levels.For(199))
	assert.Equal(t, "Intermediate", levels.For(200))
	assert.Equal(t, "Intermediate", levels.For(499))
	assert.Equal(t, "Advanced", levels.For(500))

	_, err := NewLevels([]Level{{Name: "A", MinPoints: 10}})
	assert.Error(t, err)
	_, err = NewLevels([]Level{{Name: "A"}, {Name: "B", MinPoints: 0}})
	assert.Error(t, err)
	_, err = NewLevels(nil)
	assert.Error(t, err)
	custom, err := NewLevels([]Level{{Name: "Rookie"}, {Name: "Pro", MinPoints: 100}})
	require.NoError(t, err)
	assert.Equal(t, "Pro", custom.For(150))
}

func TestTimingCheck(t *testing.T) {
	timing := Timing{Grace: 30 * time.Second, MaxUntimed: time.Hour}
	limit := 60

	assert.NoError(t, timing.Check(0, &limit))
	assert.NoError(t, timing.Check(90, &limit))
	assert.ErrorIs(t, timing.Check(91, &limit), domain.ErrValidation)
	assert.ErrorIs(t, timing.Check(-1, nil), domain.ErrValidation)
	assert.NoError(t, timing.Check(3600, nil))
	assert.ErrorIs(t, timing.Check(3601, nil), domain.ErrValidation)

	assert.NoError(t, timing.CheckElapsed(80*time.Second, 60))
	assert.ErrorIs(t, timing.CheckElapsed(2*time.Minute, 60), domain.ErrValidation)
}
