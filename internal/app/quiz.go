package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/grading"
	"tegalsec-progression/internal/scoring"
)

// QuizQuestion is one issued quiz question without its answer key.
type QuizQuestion struct {
	Index             int      `json:"index"`
	ChallengeID       string   `json:"challenge_id"`
	Question          string   `json:"question"`
	Options           []string `json:"options"`
	CialdiniPrinciple string   `json:"cialdini_principle"`
}

// QuizView is the quiz handed to the learner.
type QuizView struct {
	QuizID           string         `json:"quiz_id"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	IssuedAt         time.Time      `json:"issued_at"`
	Questions        []QuizQuestion `json:"questions"`
}

// QuizResult is returned after grading a quiz.
type QuizResult struct {
	CorrectCount   int                     `json:"correct_count"`
	TotalQuestions int                     `json:"total_questions"`
	Accuracy       float64                 `json:"accuracy"`
	PointsEarned   int                     `json:"points_earned"`
	Results        []domain.QuestionResult `json:"results"`
	NewlyUnlocked  []UnlockedAchievement   `json:"newly_unlocked_achievements"`
	TotalPoints    int                     `json:"total_points"`
	Level          string                  `json:"level"`
}

type quizDetails struct {
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	Accuracy       float64 `json:"accuracy"`
}

// CompletionStatus reports whether a one-shot activity was already completed.
type CompletionStatus struct {
	Completed      bool               `json:"completed"`
	CompletionData *domain.Completion `json:"completion_data"`
}

// IssueQuiz assembles a random quiz from the published question pool.
func (s *ProgressionService) IssueQuiz(ctx context.Context, id Identity) (QuizView, error) {
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return QuizView{}, err
	}
	if _, done := rec.Completion(domain.CompletionQuiz); done {
		return QuizView{}, fmt.Errorf("%w: quiz", domain.ErrDuplicateCompletion)
	}

	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return QuizView{}, fmt.Errorf("list challenges: %w", err)
	}
	type pooled struct {
		item      domain.QuizItem
		question  domain.Question
		principle string
	}
	var pool []pooled
	for _, c := range catalog {
		for i, q := range c.Questions {
			pool = append(pool, pooled{
				item:      domain.QuizItem{ChallengeID: c.ID, QuestionIndex: i},
				question:  q,
				principle: c.CialdiniPrinciple,
			})
		}
	}
	if len(pool) == 0 {
		return QuizView{}, fmt.Errorf("%w: no quiz questions published", domain.ErrNotFound)
	}
	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > s.opts.QuizSize {
		pool = pool[:s.opts.QuizSize]
	}

	session := domain.QuizSession{
		ID:               uuid.NewString(),
		UserID:           id.UserID,
		Items:            make([]domain.QuizItem, len(pool)),
		TimeLimitSeconds: s.opts.QuizTimeLimit,
		IssuedAt:         s.now(),
	}
	view := QuizView{
		QuizID:           session.ID,
		TimeLimitSeconds: session.TimeLimitSeconds,
		IssuedAt:         session.IssuedAt,
		Questions:        make([]QuizQuestion, len(pool)),
	}
	for i, p := range pool {
		session.Items[i] = p.item
		view.Questions[i] = QuizQuestion{
			Index:             i,
			ChallengeID:       p.item.ChallengeID,
			Question:          p.question.Question,
			Options:           append([]string(nil), p.question.Options...),
			CialdiniPrinciple: p.principle,
		}
	}
	if err := s.quizzes.Save(ctx, session); err != nil {
		return QuizView{}, fmt.Errorf("save quiz session: %w", err)
	}
	return view, nil
}

// SubmitQuiz grades an issued quiz once. Unanswered questions count as incorrect.
func (s *ProgressionService) SubmitQuiz(ctx context.Context, id Identity, quizID string, answers []*int, timeTakenSeconds int) (QuizResult, error) {
	if id.UserID == "" {
		return QuizResult{}, domain.ErrUnauthorized
	}
	session, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return QuizResult{}, err
	}
	if session.UserID != id.UserID {
		return QuizResult{}, domain.ErrQuizNotFound
	}
	limit := session.TimeLimitSeconds
	if err := s.opts.Timing.Check(timeTakenSeconds, &limit); err != nil {
		return QuizResult{}, err
	}
	if err := s.opts.Timing.CheckElapsed(s.now().Sub(session.IssuedAt), limit); err != nil {
		return QuizResult{}, err
	}

	questions, err := s.resolveQuiz(ctx, session)
	if err != nil {
		return QuizResult{}, err
	}
	graded, err := grading.Grade(questions, answers, grading.AllowUnanswered)
	if err != nil {
		return QuizResult{}, err
	}
	points := scoring.QuizPoints(graded.Correctness())
	accuracy := scoring.Accuracy(graded.CorrectCount, graded.Total())
	details, err := json.Marshal(quizDetails{
		CorrectCount:   graded.CorrectCount,
		TotalQuestions: graded.Total(),
		Accuracy:       accuracy,
	})
	if err != nil {
		return QuizResult{}, fmt.Errorf("encode quiz details: %w", err)
	}
	catalog, err := s.content.ListChallenges(ctx)
	if err != nil {
		return QuizResult{}, fmt.Errorf("list challenges: %w", err)
	}

	done, err := s.mutate(ctx, id, len(catalog), func(rec *domain.ProgressionRecord, now time.Time) (domain.ProgressUpdate, error) {
		if _, exists := rec.Completion(domain.CompletionQuiz); exists {
			return domain.ProgressUpdate{}, fmt.Errorf("%w: quiz", domain.ErrDuplicateCompletion)
		}
		completion := domain.Completion{
			Kind:             domain.CompletionQuiz,
			Score:            graded.CorrectCount,
			PointsEarned:     points,
			TimeTakenSeconds: timeTakenSeconds,
			Details:          details,
			CompletedAt:      now,
		}
		rec.Points += points
		rec.Completions[domain.CompletionQuiz] = completion
		return domain.ProgressUpdate{
			Completion: &completion,
			Attempt: &domain.Attempt{
				ID:               uuid.NewString(),
				UserID:           rec.UserID,
				Kind:             domain.AttemptQuiz,
				Answers:          answers,
				CorrectCount:     graded.CorrectCount,
				TotalQuestions:   graded.Total(),
				IsCompleted:      true,
				PointsEarned:     points,
				Status:           domain.StatusSubmitted,
				TimeTakenSeconds: timeTakenSeconds,
				Timestamp:        now,
			},
		}, nil
	})
	if err != nil {
		return QuizResult{}, err
	}

	if err := s.quizzes.Delete(ctx, quizID); err != nil {
		s.log.Warn("quiz session cleanup failed", zap.String("quiz_id", quizID), zap.Error(err))
	}
	s.opts.Metrics.AttemptGraded(domain.AttemptQuiz, domain.StatusSubmitted, points)
	s.log.Info("quiz graded",
		zap.String("user_id", id.UserID),
		zap.Int("correct", graded.CorrectCount),
		zap.Int("total", graded.Total()),
		zap.Int("points", points))

	return QuizResult{
		CorrectCount:   graded.CorrectCount,
		TotalQuestions: graded.Total(),
		Accuracy:       accuracy,
		PointsEarned:   points,
		Results:        graded.Questions,
		NewlyUnlocked:  done.unlocked,
		TotalPoints:    done.record.Points,
		Level:          done.record.Level,
	}, nil
}

// resolveQuiz maps issued items back to the current answer keys.
func (s *ProgressionService) resolveQuiz(ctx context.Context, session domain.QuizSession) ([]domain.Question, error) {
	questions := make([]domain.Question, len(session.Items))
	for i, item := range session.Items {
		c, err := s.content.GetChallenge(ctx, item.ChallengeID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: quiz references retired challenge %s", domain.ErrQuizNotFound, item.ChallengeID)
		}
		if err != nil {
			return nil, err
		}
		if item.QuestionIndex < 0 || item.QuestionIndex >= len(c.Questions) {
			return nil, fmt.Errorf("%w: quiz references retired question %s/%d", domain.ErrQuizNotFound, item.ChallengeID, item.QuestionIndex)
		}
		questions[i] = c.Questions[item.QuestionIndex]
	}
	return questions, nil
}

// QuizCompletionStatus reports whether the caller already completed the quiz.
func (s *ProgressionService) QuizCompletionStatus(ctx context.Context, id Identity) (CompletionStatus, error) {
	return s.completionStatus(ctx, id, domain.CompletionQuiz)
}

func (s *ProgressionService) completionStatus(ctx context.Context, id Identity, kind string) (CompletionStatus, error) {
	rec, err := s.loadRecord(ctx, id)
	if err != nil {
		return CompletionStatus{}, err
	}
	c, ok := rec.Completion(kind)
	if !ok {
		return CompletionStatus{}, nil
	}
	return CompletionStatus{Completed: true, CompletionData: &c}, nil
}
