package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"tegalsec-progression/internal/domain"
)

type feedbackRow struct {
	bun.BaseModel `bun:"table:challenge_feedback"`

	ID          string    `bun:"id,pk"`
	ChallengeID string    `bun:"challenge_id"`
	UserID      string    `bun:"user_id"`
	Username    string    `bun:"username"`
	Rating      int       `bun:"rating"`
	Comment     string    `bun:"comment"`
	CreatedAt   time.Time `bun:"created_at"`
}

// FeedbackStore persists challenge feedback in Postgres.
type FeedbackStore struct {
	db *bun.DB
}

func NewFeedbackStore(db *bun.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) Add(ctx context.Context, fb domain.Feedback) error {
	_, err := s.db.NewInsert().Model(&feedbackRow{
		ID:          fb.ID,
		ChallengeID: fb.ChallengeID,
		UserID:      fb.UserID,
		Username:    fb.Username,
		Rating:      fb.Rating,
		Comment:     fb.Comment,
		CreatedAt:   fb.CreatedAt,
	}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *FeedbackStore) List(ctx context.Context, challengeID string, limit int) ([]domain.Feedback, error) {
	if limit <= 0 {
		return []domain.Feedback{}, nil
	}
	var rows []feedbackRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("challenge_id = ?", challengeID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select feedback: %w", err)
	}
	out := make([]domain.Feedback, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Feedback{
			ID:          row.ID,
			ChallengeID: row.ChallengeID,
			UserID:      row.UserID,
			Username:    row.Username,
			Rating:      row.Rating,
			Comment:     row.Comment,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}
