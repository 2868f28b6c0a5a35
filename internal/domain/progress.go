package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// DateLayout is the calendar-day format used for streak and daily bonus bookkeeping.
const DateLayout = "2006-01-02"

// Completion kinds stored on a progression record.
const (
	CompletionQuiz           = "quiz"
	CompletionMiniGamePrefix = "minigame:"
)

// MiniGameCompletionKind returns the completion key for a mini-game type.
func MiniGameCompletionKind(gameType string) string {
	return CompletionMiniGamePrefix + gameType
}

// AchievementUnlock records when an achievement was first crossed.
type AchievementUnlock struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Completion is the one-shot result of a quiz or mini-game run.
type Completion struct {
	Kind             string          `json:"kind"`
	Score            int             `json:"score"`
	PointsEarned     int             `json:"points_earned"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	Details          json.RawMessage `json:"details,omitempty"`
	CompletedAt      time.Time       `json:"completed_at"`
}

// CourseProgress is the slide a learner last reached in a course.
type CourseProgress struct {
	ModuleNumber int       `json:"module_number"`
	SlideNumber  int       `json:"slide_number"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProgressionRecord is the per-user state mutated only by the progression service.
type ProgressionRecord struct {
	UserID                      string                    `json:"user_id"`
	Username                    string                    `json:"username"`
	Points                      int                       `json:"points"`
	Level                       string                    `json:"level"`
	CompletedChallenges         []string                  `json:"completed_challenges"`
	Credited                    map[string]int            `json:"credited"`
	StreakDays                  int                       `json:"streak_days"`
	LastActiveDate              string                    `json:"last_active_date,omitempty"`
	DailyChallengeCompletedDate string                    `json:"daily_challenge_completed_date,omitempty"`
	PerfectScores               int                       `json:"perfect_scores"`
	Achievements                []AchievementUnlock       `json:"achievements"`
	EducationRead               []string                  `json:"education_read"`
	Completions                 map[string]Completion     `json:"completions"`
	Courses                     map[string]CourseProgress `json:"courses"`
	Version                     int64                     `json:"version"`
	CreatedAt                   time.Time                 `json:"created_at"`
	UpdatedAt                   time.Time                 `json:"updated_at"`
}

// NewProgressionRecord returns the zeroed record created at registration.
func NewProgressionRecord(userID, username string, now time.Time) ProgressionRecord {
	return ProgressionRecord{
		UserID:              userID,
		Username:            username,
		CompletedChallenges: []string{},
		Credited:            map[string]int{},
		Achievements:        []AchievementUnlock{},
		EducationRead:       []string{},
		Completions:         map[string]Completion{},
		Courses:             map[string]CourseProgress{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// HasCompleted reports membership in the completed-challenge set.
func (r ProgressionRecord) HasCompleted(challengeID string) bool {
	return contains(r.CompletedChallenges, challengeID)
}

// HasAchievement reports whether the achievement was already unlocked.
func (r ProgressionRecord) HasAchievement(id string) bool {
	for _, a := range r.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasReadEducation reports whether the education content was already recorded as read.
func (r ProgressionRecord) HasReadEducation(contentID string) bool {
	return contains(r.EducationRead, contentID)
}

// Completion returns the stored completion for kind, if any.
func (r ProgressionRecord) Completion(kind string) (Completion, bool) {
	c, ok := r.Completions[kind]
	return c, ok
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (r ProgressionRecord) Clone() ProgressionRecord {
	out := r
	out.CompletedChallenges = append([]string{}, r.CompletedChallenges...)
	out.Achievements = append([]AchievementUnlock{}, r.Achievements...)
	out.EducationRead = append([]string{}, r.EducationRead...)
	out.Credited = make(map[string]int, len(r.Credited))
	for k, v := range r.Credited {
		out.Credited[k] = v
	}
	out.Completions = make(map[string]Completion, len(r.Completions))
	for k, v := range r.Completions {
		if v.Details != nil {
			v.Details = append(json.RawMessage(nil), v.Details...)
		}
		out.Completions[k] = v
	}
	out.Courses = make(map[string]CourseProgress, len(r.Courses))
	for k, v := range r.Courses {
		out.Courses[k] = v
	}
	return out
}

// Normalize replaces nil collections left behind by decoding older documents.
func (r *ProgressionRecord) Normalize() {
	if r.CompletedChallenges == nil {
		r.CompletedChallenges = []string{}
	}
	if r.Credited == nil {
		r.Credited = map[string]int{}
	}
	if r.Achievements == nil {
		r.Achievements = []AchievementUnlock{}
	}
	if r.EducationRead == nil {
		r.EducationRead = []string{}
	}
	if r.Completions == nil {
		r.Completions = map[string]Completion{}
	}
	if r.Courses == nil {
		r.Courses = map[string]CourseProgress{}
	}
}

// ProgressUpdate is one atomic commit of a progression record.
// Record.Version must hold the version observed when the record was loaded;
// stores persist it as Version+1.
type ProgressUpdate struct {
	Record ProgressionRecord
	// Attempt is appended to the attempt log in the same write, when set.
	Attempt *Attempt
	// CompletedChallenge is set when this commit inserts into the completed set.
	CompletedChallenge string
	// Completion is set when this commit stores a one-shot quiz or mini-game result.
	Completion *Completion
}

// RankRecords orders records for the leaderboard: points desc, earlier update first, then username.
func RankRecords(records []ProgressionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.Username < b.Username
	})
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
