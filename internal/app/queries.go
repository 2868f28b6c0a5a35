package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tegalsec-progression/internal/achievements"
	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/scoring"
)

// UnlockedAchievement joins a stored unlock with its catalogue definition.
type UnlockedAchievement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Rarity      string    `json:"rarity"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

func newUnlockedAchievement(u domain.AchievementUnlock) UnlockedAchievement {
	out := UnlockedAchievement{ID: u.ID, UnlockedAt: u.UnlockedAt}
	if def, ok := achievements.Lookup(u.ID); ok {
		out.Title = def.Title
		out.Description = def.Description
		out.Rarity = def.Rarity
	}
	return out
}

// ProgressView is the learner dashboard.
type ProgressView struct {
	UserID                  string                `json:"user_id"`
	Username                string                `json:"username"`
	Points                  int                   `json:"points"`
	Level                   string                `json:"level"`
	TotalChallenges         int                   `json:"total_challenges"`
	CompletedChallenges     int                   `json:"completed_challenges"`
	CompletedChallengeIDs   []string              `json:"completed_challenge_ids"`
	StreakDays              int                   `json:"streak_days"`
	PerfectScores           int                   `json:"perfect_scores"`
	DailyChallengeCompleted bool                  `json:"daily_challenge_completed"`
	Achievements            []UnlockedAchievement `json:"achievements"`
	RecentAttempts          []domain.Attempt      `json:"recent_attempts"`
}

// Progress returns the caller's dashboard.
func (s *ProgressionService) Progress(ctx context.Context, id Identity) (ProgressView, error) {
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return ProgressView{}, err
	}
	return s.progressView(ctx, rec)
}

func (s *ProgressionService) progressView(ctx context.Context, rec domain.ProgressionRecord) (ProgressView, error) {
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return ProgressView{}, fmt.Errorf("list challenges: %w", err)
	}
	recent, err := s.progress.RecentAttempts(ctx, rec.UserID, s.opts.RecentAttempts)
	if err != nil {
		return ProgressView{}, fmt.Errorf("recent attempts: %w", err)
	}
	if recent == nil {
		recent = []domain.Attempt{}
	}
	unlocked := make([]UnlockedAchievement, 0, len(rec.Achievements))
	for _, a := range rec.Achievements {
		unlocked = append(unlocked, newUnlockedAchievement(a))
	}
	return ProgressView{
		UserID:                  rec.UserID,
		Username:                rec.Username,
		Points:                  rec.Points,
		Level:                   s.opts.Levels.For(rec.Points),
		TotalChallenges:         len(catalog),
		CompletedChallenges:     len(rec.CompletedChallenges),
		CompletedChallengeIDs:   append([]string{}, rec.CompletedChallenges...),
		StreakDays:              rec.StreakDays,
		PerfectScores:           rec.PerfectScores,
		DailyChallengeCompleted: rec.DailyChallengeCompletedDate == s.day(s.now()),
		Achievements:            unlocked,
		RecentAttempts:          recent,
	}, nil
}

// DailyChallengeView is today's designated challenge.
type DailyChallengeView struct {
	Date        string                 `json:"date"`
	Challenge   domain.PublicChallenge `json:"challenge"`
	Multiplier  int                    `json:"multiplier"`
	BonusPoints int                    `json:"bonus_points"`
}

// DailyChallenge returns the challenge designated for today.
func (s *ProgressionService) DailyChallenge(ctx context.Context) (DailyChallengeView, error) {
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return DailyChallengeView{}, fmt.Errorf("list challenges: %w", err)
	}
	now := s.now()
	daily, ok := s.dailyFor(catalog, now)
	if !ok {
		return DailyChallengeView{}, fmt.Errorf("%w: no daily challenge", domain.ErrNotFound)
	}
	return DailyChallengeView{
		Date:        s.day(now),
		Challenge:   daily.Public(),
		Multiplier:  scoring.DailyMultiplier,
		BonusPoints: daily.Points * scoring.DailyMultiplier,
	}, nil
}

// Leaderboard returns the top limit users ranked by points.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 || limit > 100 {
		limit = s.opts.LeaderboardSize
	}
	records, err := s.progress.Top(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for i, rec := range records {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:                i + 1,
			UserID:              rec.UserID,
			Username:            rec.Username,
			Points:              rec.Points,
			Level:               s.opts.Levels.For(rec.Points),
			CompletedChallenges: len(rec.CompletedChallenges),
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}

// AchievementsView lists the caller's unlocks next to the full catalogue.
type AchievementsView struct {
	Unlocked []UnlockedAchievement    `json:"unlocked"`
	Catalog  []achievements.Definition `json:"catalog"`
}

// Achievements returns the caller's unlocked badges and the catalogue.
func (s *ProgressionService) Achievements(ctx context.Context, id Identity) (AchievementsView, error) {
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return AchievementsView{}, err
	}
	unlocked := make([]UnlockedAchievement, 0, len(rec.Achievements))
	for _, a := range rec.Achievements {
		unlocked = append(unlocked, newUnlockedAchievement(a))
	}
	return AchievementsView{Unlocked: unlocked, Catalog: achievements.Catalog()}, nil
}

// EducationResult acknowledges a read education item.
type EducationResult struct {
	ContentID     string                `json:"content_id"`
	AlreadyRead   bool                  `json:"already_read"`
	ModulesRead   int                   `json:"modules_read"`
	NewlyUnlocked []UnlockedAchievement `json:"newly_unlocked_achievements"`
}

// MarkEducationRead records that the caller finished an education module.
func (s *ProgressionService) MarkEducationRead(ctx context.Context, id Identity, contentID string) (EducationResult, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return EducationResult{}, fmt.Errorf("%w: content id is required", domain.ErrValidation)
	}
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return EducationResult{}, fmt.Errorf("list challenges: %w", err)
	}
	var already bool
	done, err := s.mutate(ctx, id, len(catalog), func(rec *domain.ProgressionRecord, _ time.Time) (domain.ProgressUpdate, error) {
		already = rec.HasReadEducation(contentID)
		if !already {
			rec.EducationRead = append(rec.EducationRead, contentID)
		}
		return domain.ProgressUpdate{}, nil
	})
	if err != nil {
		return EducationResult{}, err
	}
	return EducationResult{
		ContentID:     contentID,
		AlreadyRead:   already,
		ModulesRead:   len(done.record.EducationRead),
		NewlyUnlocked: done.unlocked,
	}, nil
}
