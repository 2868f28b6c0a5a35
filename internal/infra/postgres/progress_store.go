package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"tegalsec-progression/internal/domain"
)

type progressRow struct {
	bun.BaseModel `bun:"table:progression_records"`

	UserID    string                   `bun:"user_id,pk"`
	Username  string                   `bun:"username"`
	Points    int                      `bun:"points"`
	Version   int64                    `bun:"version"`
	Data      domain.ProgressionRecord `bun:"data,type:jsonb"`
	CreatedAt time.Time                `bun:"created_at"`
	UpdatedAt time.Time                `bun:"updated_at"`
}

type challengeCompletionRow struct {
	bun.BaseModel `bun:"table:challenge_completions"`

	UserID      string    `bun:"user_id,pk"`
	ChallengeID string    `bun:"challenge_id,pk"`
	CompletedAt time.Time `bun:"completed_at"`
}

type gameCompletionRow struct {
	bun.BaseModel `bun:"table:game_completions"`

	UserID      string    `bun:"user_id,pk"`
	Kind        string    `bun:"kind,pk"`
	Score       int       `bun:"score"`
	CompletedAt time.Time `bun:"completed_at"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID           string         `bun:"id,pk"`
	UserID       string         `bun:"user_id"`
	Kind         string         `bun:"kind"`
	ChallengeID  string         `bun:"challenge_id"`
	Status       string         `bun:"status"`
	PointsEarned int            `bun:"points_earned"`
	Data         domain.Attempt `bun:"data,type:jsonb"`
	CreatedAt    time.Time      `bun:"created_at"`
}

// ProgressStore persists progression records in Postgres. The record document lives in
// JSONB; completions get their own tables so uniqueness is enforced by primary keys.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func newProgressRow(rec domain.ProgressionRecord) *progressRow {
	return &progressRow{
		UserID:    rec.UserID,
		Username:  rec.Username,
		Points:    rec.Points,
		Version:   rec.Version,
		Data:      rec,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (r *progressRow) record() domain.ProgressionRecord {
	rec := r.Data
	rec.UserID = r.UserID
	rec.Version = r.Version
	rec.Normalize()
	return rec
}

func (s *ProgressStore) Create(ctx context.Context, record domain.ProgressionRecord) (domain.ProgressionRecord, error) {
	record.Normalize()
	record.Version = 1
	_, err := s.db.NewInsert().
		Model(newProgressRow(record)).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("insert progression record: %w", err)
	}
	return s.Get(ctx, record.UserID)
}

func (s *ProgressStore) Get(ctx context.Context, userID string) (domain.ProgressionRecord, error) {
	row := new(progressRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProgressionRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("select progression record: %w", err)
	}
	return row.record(), nil
}

func (s *ProgressStore) Commit(ctx context.Context, update domain.ProgressUpdate) error {
	next := update.Record
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		stored := next
		stored.Version = next.Version + 1
		res, err := tx.NewUpdate().
			Model(newProgressRow(stored)).
			Column("username", "points", "version", "data", "updated_at").
			WherePK().
			Where("version = ?", next.Version).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update progression record: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			exists, err := tx.NewSelect().Model((*progressRow)(nil)).Where("user_id = ?", next.UserID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return domain.ErrRecordNotFound
			}
			return domain.ErrVersionConflict
		}

		if update.CompletedChallenge != "" {
			_, err := tx.NewInsert().Model(&challengeCompletionRow{
				UserID:      next.UserID,
				ChallengeID: update.CompletedChallenge,
				CompletedAt: next.UpdatedAt,
			}).Exec(ctx)
			if err != nil {
				return uniqueAsConflict(err)
			}
		}
		if update.Completion != nil {
			_, err := tx.NewInsert().Model(&gameCompletionRow{
				UserID:      next.UserID,
				Kind:        update.Completion.Kind,
				Score:       update.Completion.Score,
				CompletedAt: update.Completion.CompletedAt,
			}).Exec(ctx)
			if err != nil {
				return uniqueAsConflict(err)
			}
		}
		if a := update.Attempt; a != nil {
			_, err := tx.NewInsert().Model(&attemptRow{
				ID:           a.ID,
				UserID:       a.UserID,
				Kind:         a.Kind,
				ChallengeID:  a.ChallengeID,
				Status:       a.Status,
				PointsEarned: a.PointsEarned,
				Data:         *a,
				CreatedAt:    a.Timestamp,
			}).Exec(ctx)
			if err != nil {
				return fmt.Errorf("insert attempt: %w", err)
			}
		}
		return nil
	})
}

func (s *ProgressStore) RecentAttempts(ctx context.Context, userID string, limit int) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Data)
	}
	return out, nil
}

func (s *ProgressStore) Top(ctx context.Context, limit int) ([]domain.ProgressionRecord, error) {
	var rows []progressRow
	err := s.db.NewSelect().
		Model(&rows).
		Order("points DESC", "updated_at ASC", "username ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}
	out := make([]domain.ProgressionRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out, nil
}

// uniqueAsConflict maps a unique violation on a completion table to a lost race.
func uniqueAsConflict(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
		return domain.ErrVersionConflict
	}
	return fmt.Errorf("insert completion: %w", err)
}
