package domain

import "time"

// Attempt kinds.
const (
	AttemptChallenge = "challenge"
	AttemptQuiz      = "quiz"
	AttemptMiniGame  = "minigame"
)

// Attempt statuses: the first graded submission is "submitted", later ones on a completed challenge are "reviewed".
const (
	StatusSubmitted = "submitted"
	StatusReviewed  = "reviewed"
)

// Attempt is an immutable grading event kept for audit and recent activity.
type Attempt struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Kind             string    `json:"kind"`
	ChallengeID      string    `json:"challenge_id,omitempty"`
	Answers          []*int    `json:"answers,omitempty"`
	CorrectCount     int       `json:"correct_count"`
	TotalQuestions   int       `json:"total_questions"`
	IsCompleted      bool      `json:"is_completed"`
	PointsEarned     int       `json:"points_earned"`
	Status           string    `json:"status"`
	DailyBonus       bool      `json:"daily_bonus"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	Timestamp        time.Time `json:"timestamp"`
}

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	QuestionIndex int    `json:"question_index"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
}

// QuizItem references one question of a published challenge.
type QuizItem struct {
	ChallengeID   string `json:"challenge_id"`
	QuestionIndex int    `json:"question_index"`
}

// QuizSession is a randomly assembled quiz issued to one user for a bounded time.
type QuizSession struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Items            []QuizItem `json:"items"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	IssuedAt         time.Time  `json:"issued_at"`
}

// LeaderboardEntry is a snapshot-friendly view of a user's standing.
type LeaderboardEntry struct {
	Rank                int    `json:"rank"`
	UserID              string `json:"user_id"`
	Username            string `json:"username"`
	Points              int    `json:"points"`
	Level               string `json:"level"`
	CompletedChallenges int    `json:"completed_challenges"`
}

// Leaderboard captures the ordered top users.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Feedback is a learner's rating of a challenge, listed newest first.
type Feedback struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}
