package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"tegalsec-progression/internal/achievements"
	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/scoring"
)

// ChallengeRepository loads challenge content (from cache/backing store).
type ChallengeRepository interface {
	GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
	ListChallenges(ctx context.Context) ([]domain.Challenge, error)
}

// ProgressRepository persists progression records with compare-and-swap commits.
type ProgressRepository interface {
	// Create stores a zeroed record unless one exists, and returns the stored record.
	Create(ctx context.Context, record domain.ProgressionRecord) (domain.ProgressionRecord, error)
	Get(ctx context.Context, userID string) (domain.ProgressionRecord, error)
	// Commit must fail with domain.ErrVersionConflict when the stored version differs from update.Record.Version.
	Commit(ctx context.Context, update domain.ProgressUpdate) error
	RecentAttempts(ctx context.Context, userID string, limit int) ([]domain.Attempt, error)
	Top(ctx context.Context, limit int) ([]domain.ProgressionRecord, error)
}

// QuizSessionRepository abstracts where issued quizzes live until they are submitted.
type QuizSessionRepository interface {
	Save(ctx context.Context, session domain.QuizSession) error
	Get(ctx context.Context, quizID string) (domain.QuizSession, error)
	Delete(ctx context.Context, quizID string) error
}

// FeedbackRepository stores challenge ratings.
type FeedbackRepository interface {
	Add(ctx context.Context, feedback domain.Feedback) error
	// List returns at most limit entries for a challenge, newest first.
	List(ctx context.Context, challengeID string, limit int) ([]domain.Feedback, error)
}

// Recorder receives engine-level metrics.
type Recorder interface {
	AttemptGraded(kind, status string, points int)
	CommitConflict()
}

type nopRecorder struct{}

func (nopRecorder) AttemptGraded(string, string, int) {}
func (nopRecorder) CommitConflict()                   {}

// Identity is the verified caller resolved by the auth layer.
type Identity struct {
	UserID   string
	Username string
}

// Options tune the progression service. Zero values fall back to product defaults.
type Options struct {
	Levels          scoring.Levels
	Timing          scoring.Timing
	MiniGame        scoring.MiniGameRules
	MiniGameTypes   []string
	QuizSize        int
	QuizTimeLimit   int
	MaxRetries      int
	RetryBackoff    time.Duration
	RecentAttempts  int
	LeaderboardSize int
	Location        *time.Location
	DailyPicker     DailyPicker
	Clock           func() time.Time
	Rand            *rand.Rand
	Logger          *zap.Logger
	Metrics         Recorder
	Hub             *LeaderboardHub
}

func (o Options) withDefaults() Options {
	if len(o.Levels) == 0 {
		o.Levels = scoring.DefaultLevels()
	}
	if o.Timing == (scoring.Timing{}) {
		o.Timing = scoring.DefaultTiming()
	}
	if o.MiniGame == (scoring.MiniGameRules{}) {
		o.MiniGame = scoring.DefaultMiniGameRules()
	}
	if len(o.MiniGameTypes) == 0 {
		o.MiniGameTypes = []string{"spot_the_phishing"}
	}
	if o.QuizSize <= 0 {
		o.QuizSize = 10
	}
	if o.QuizTimeLimit <= 0 {
		o.QuizTimeLimit = 60
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 5 * time.Millisecond
	}
	if o.RecentAttempts <= 0 {
		o.RecentAttempts = 5
	}
	if o.LeaderboardSize <= 0 {
		o.LeaderboardSize = 10
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DailyPicker == nil {
		o.DailyPicker = RotateDaily
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	return o
}

// ProgressionService grades submissions and owns every mutation of progression records.
type ProgressionService struct {
	content  ChallengeRepository
	progress ProgressRepository
	quizzes  QuizSessionRepository
	feedback FeedbackRepository
	opts     Options
	log      *zap.Logger

	rndMu sync.Mutex
}

func NewProgressionService(content ChallengeRepository, progress ProgressRepository, quizzes QuizSessionRepository, feedback FeedbackRepository, opts Options) *ProgressionService {
	opts = opts.withDefaults()
	return &ProgressionService{
		content:  content,
		progress: progress,
		quizzes:  quizzes,
		feedback: feedback,
		opts:     opts,
		log:      opts.Logger,
	}
}

// Register creates the zeroed record for a newly registered user. Calling it again is a no-op.
func (s *ProgressionService) Register(ctx context.Context, id Identity) (ProgressView, error) {
	if id.UserID == "" {
		return ProgressView{}, domain.ErrUnauthorized
	}
	rec, err := s.progress.Create(ctx, domain.NewProgressionRecord(id.UserID, id.Username, s.now()))
	if err != nil {
		return ProgressView{}, fmt.Errorf("create progress: %w", err)
	}
	return s.progressView(ctx, rec)
}

func (s *ProgressionService) now() time.Time {
	return s.opts.Clock()
}

func (s *ProgressionService) day(t time.Time) string {
	return t.In(s.opts.Location).Format(domain.DateLayout)
}

func (s *ProgressionService) loadRecord(ctx context.Context, id Identity) (domain.ProgressionRecord, error) {
	if id.UserID == "" {
		return domain.ProgressionRecord{}, domain.ErrUnauthorized
	}
	rec, err := s.progress.Get(ctx, id.UserID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.ProgressionRecord{}, fmt.Errorf("%w: no progression record for user %s", domain.ErrUnauthorized, id.UserID)
	}
	if err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("load progress: %w", err)
	}
	return rec, nil
}

// mutation changes rec in place and returns the side records of the commit.
type mutation func(rec *domain.ProgressionRecord, now time.Time) (domain.ProgressUpdate, error)

type committed struct {
	record   domain.ProgressionRecord
	unlocked []UnlockedAchievement
}

// mutate runs fn against a freshly loaded record and commits with compare-and-swap,
// reloading and re-running fn when another writer got there first.
func (s *ProgressionService) mutate(ctx context.Context, id Identity, totalChallenges int, fn mutation) (committed, error) {
	for try := 0; try <= s.opts.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return committed{}, ctx.Err()
			case <-time.After(time.Duration(try) * s.opts.RetryBackoff):
			}
		}

		rec, err := s.loadRecord(ctx, id)
		if err != nil {
			return committed{}, err
		}
		pointsBefore := rec.Points
		now := s.now()

		update, err := fn(&rec, now)
		if err != nil {
			return committed{}, err
		}
		if id.Username != "" {
			rec.Username = id.Username
		}
		s.touchActivity(&rec, now)
		rec.Level = s.opts.Levels.For(rec.Points)
		unlocked := s.unlock(&rec, totalChallenges, now)
		rec.UpdatedAt = now
		update.Record = rec

		err = s.progress.Commit(ctx, update)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.opts.Metrics.CommitConflict()
			s.log.Warn("progress commit conflict, retrying",
				zap.String("user_id", id.UserID),
				zap.Int("try", try+1))
			continue
		}
		if err != nil {
			return committed{}, fmt.Errorf("commit progress: %w", err)
		}

		rec.Version++
		if rec.Points != pointsBefore {
			s.publishLeaderboard(ctx)
		}
		return committed{record: rec, unlocked: unlocked}, nil
	}
	s.log.Warn("progress commit retries exhausted", zap.String("user_id", id.UserID))
	return committed{}, fmt.Errorf("%w: user %s", domain.ErrConflict, id.UserID)
}

// touchActivity advances the engagement streak once per calendar day.
func (s *ProgressionService) touchActivity(rec *domain.ProgressionRecord, now time.Time) {
	today := s.day(now)
	if rec.LastActiveDate == today {
		return
	}
	yesterday := s.day(now.In(s.opts.Location).AddDate(0, 0, -1))
	if rec.LastActiveDate == yesterday {
		rec.StreakDays++
	} else {
		rec.StreakDays = 1
	}
	rec.LastActiveDate = today
}

// unlock appends newly satisfied achievements, each exactly once.
func (s *ProgressionService) unlock(rec *domain.ProgressionRecord, totalChallenges int, now time.Time) []UnlockedAchievement {
	fresh := achievements.Newly(*rec, totalChallenges)
	out := make([]UnlockedAchievement, 0, len(fresh))
	for _, achievementID := range fresh {
		unlock := domain.AchievementUnlock{ID: achievementID, UnlockedAt: now}
		rec.Achievements = append(rec.Achievements, unlock)
		out = append(out, newUnlockedAchievement(unlock))
	}
	return out
}

func (s *ProgressionService) publishLeaderboard(ctx context.Context) {
	if s.opts.Hub == nil {
		return
	}
	if err := s.opts.Hub.Refresh(ctx, false, s.currentLeaderboard); err != nil {
		s.log.Warn("leaderboard refresh failed", zap.Error(err))
	}
}

func (s *ProgressionService) currentLeaderboard(ctx context.Context) (domain.Leaderboard, error) {
	return s.Leaderboard(ctx, s.opts.LeaderboardSize)
}

func (s *ProgressionService) shuffle(n int, swap func(i, j int)) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	s.opts.Rand.Shuffle(n, swap)
}
