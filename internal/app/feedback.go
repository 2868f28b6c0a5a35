package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tegalsec-progression/internal/domain"
)

const (
	defaultFeedbackRating = 5
	maxFeedbackComment    = 1000
	maxFeedbackList       = 100
)

// FeedbackInput is a learner's rating of a challenge. A missing rating counts as 5.
type FeedbackInput struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitFeedback stores the caller's rating of challengeID.
func (s *ProgressionService) SubmitFeedback(ctx context.Context, id Identity, challengeID string, in FeedbackInput) (domain.Feedback, error) {
	challenge, err := s.content.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.Feedback{}, err
	}
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return domain.Feedback{}, err
	}

	rating := defaultFeedbackRating
	if in.Rating != nil {
		rating = *in.Rating
	}
	if rating < 1 || rating > 5 {
		return domain.Feedback{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > maxFeedbackComment {
		return domain.Feedback{}, fmt.Errorf("%w: comment is longer than %d characters", domain.ErrValidation, maxFeedbackComment)
	}
	username := id.Username
	if username == "" {
		username = rec.Username
	}

	fb := domain.Feedback{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		UserID:      rec.UserID,
		Username:    username,
		Rating:      rating,
		Comment:     comment,
		CreatedAt:   s.now(),
	}
	if err := s.feedback.Add(ctx, fb); err != nil {
		return domain.Feedback{}, fmt.Errorf("store feedback: %w", err)
	}
	s.log.Info("challenge feedback recorded",
		zap.String("user_id", fb.UserID),
		zap.String("challenge_id", fb.ChallengeID),
		zap.Int("rating", fb.Rating))
	return fb, nil
}

// ChallengeFeedback lists feedback for challengeID, newest first.
// limit defaults to and is capped at 100.
func (s *ProgressionService) ChallengeFeedback(ctx context.Context, challengeID string, limit int) ([]domain.Feedback, error) {
	challenge, err := s.content.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxFeedbackList {
		limit = maxFeedbackList
	}
	list, err := s.feedback.List(ctx, challenge.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return list, nil
}
