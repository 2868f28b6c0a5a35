package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/domain"
)

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 60, 10)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, 60, 10)

	rec := s.do(t, http.MethodPost, "/api/progress/init", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/progress", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token without a registered record is still unauthorized.
	rec = s.do(t, http.MethodGet, "/api/progress", s.token(t, "ghost", "ghost"), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, decode[errorBody](t, rec).Code)
}

func TestChallengeAttemptFlow(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")

	rec := s.do(t, http.MethodPost, "/api/progress/init", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, decode[app.ProgressView](t, rec).Points)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/attempt", token, attemptRequest{
		Answers:          []*int{intPtr(2), intPtr(2)},
		TimeTakenSeconds: 12,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[app.AttemptResult](t, rec)
	assert.True(t, res.IsCompleted)
	assert.Equal(t, 40, res.PointsEarned)
	assert.Equal(t, 2, res.CorrectCount)
	assert.False(t, res.DailyBonusApplied)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-invoice/attempt", token, attemptRequest{
		Answers:          []*int{intPtr(2)},
		TimeTakenSeconds: 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[app.AttemptResult](t, rec)
	assert.True(t, res.DailyBonusApplied)
	assert.Equal(t, 40, res.PointsEarned)
	assert.Equal(t, 80, res.TotalPoints)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/attempt", token, attemptRequest{
		Answers:          []*int{intPtr(2), nil},
		TimeTakenSeconds: 5,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeIncompleteSubmission, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-missing/attempt", token, attemptRequest{
		Answers: []*int{intPtr(0)},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/attempt", token, attemptRequest{
		Answers:          []*int{intPtr(2), intPtr(2)},
		TimeTakenSeconds: -1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[app.ProgressView](t, rec)
	assert.Equal(t, 80, progress.Points)
	assert.Equal(t, 2, progress.CompletedChallenges)
	assert.True(t, progress.DailyChallengeCompleted)
	assert.NotEmpty(t, progress.RecentAttempts)

	rec = s.do(t, http.MethodGet, "/api/leaderboard?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lb := decode[domain.Leaderboard](t, rec)
	require.Len(t, lb.Entries, 1)
	assert.Equal(t, "alice", lb.Entries[0].Username)
	assert.Equal(t, 80, lb.Entries[0].Points)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, rec.Body.String(), `progression_attempts_total{kind="challenge",status="submitted"} 2`)
}

func TestChallengeCatalogue(t *testing.T) {
	s := newTestServer(t, 60, 10)

	rec := s.do(t, http.MethodGet, "/api/challenges?category=finance", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Challenges []app.ChallengeSummary `json:"challenges"`
	}](t, rec)
	require.Len(t, list.Challenges, 1)
	assert.Equal(t, "ch-invoice", list.Challenges[0].ID)
	assert.True(t, list.Challenges[0].IsDaily)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	rec = s.do(t, http.MethodGet, "/api/challenges/ch-ceo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	rec = s.do(t, http.MethodGet, "/api/daily-challenge", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decode[app.DailyChallengeView](t, rec)
	assert.Equal(t, "ch-invoice", daily.Challenge.ID)
	assert.Equal(t, 40, daily.BonusPoints)
	assert.Contains(t, rec.Body.String(), `"bonus_points":40`)
}

func TestQuizRoutes(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	rec := s.do(t, http.MethodGet, "/api/quiz/random", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	quiz := decode[app.QuizView](t, rec)
	require.Len(t, quiz.Questions, 3)
	assert.NotContains(t, rec.Body.String(), "correct_answer")

	rec = s.do(t, http.MethodPost, "/api/quiz/submit", token, quizSubmitRequest{
		QuizID:    quiz.QuizID,
		Answers:   []*int{intPtr(2), intPtr(2), intPtr(2)},
		TimeTaken: 20,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[app.QuizResult](t, rec)
	assert.Equal(t, 3, result.CorrectCount)
	assert.Equal(t, 100.0, result.Accuracy)

	rec = s.do(t, http.MethodGet, "/api/quiz/completion-status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[app.CompletionStatus](t, rec).Completed)

	rec = s.do(t, http.MethodGet, "/api/quiz/random", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeDuplicateCompletion, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/quiz/submit", token, quizSubmitRequest{Answers: []*int{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuizSubmitWithoutIssuedSessionIsRejected(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	// Client-supplied questions are never graded; only issued sessions are.
	rec := s.do(t, http.MethodPost, "/api/quiz/submit", token, map[string]any{
		"answers":    []int{0},
		"questions":  []map[string]any{{"question": "q", "options": []string{"a", "b", "c", "d"}, "correct_answer": 0}},
		"time_taken": 5,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, CodeValidation, body.Code)
	assert.Contains(t, body.Message, "quiz_id")

	rec = s.do(t, http.MethodGet, "/api/quiz/completion-status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[app.CompletionStatus](t, rec).Completed)
}

func TestMiniGameRoutes(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	rec := s.do(t, http.MethodGet, "/api/minigame/completion-status/spot_the_phishing", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[app.CompletionStatus](t, rec).Completed)

	sub := app.MiniGameSubmission{GameType: "spot_the_phishing", Score: 0, TimeTakenSeconds: 30}
	rec = s.do(t, http.MethodPost, "/api/minigame/complete", token, sub)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/minigame/complete", token, sub)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeDuplicateCompletion, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/minigame/completion-status/spot_the_phishing", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[app.CompletionStatus](t, rec).Completed)

	rec = s.do(t, http.MethodGet, "/api/minigame/completion-status/tetris", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEducationAndAchievements(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	rec := s.do(t, http.MethodPost, "/api/education/authority/read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[app.EducationResult](t, rec)
	assert.False(t, res.AlreadyRead)
	assert.Equal(t, 1, res.ModulesRead)

	rec = s.do(t, http.MethodGet, "/api/achievements", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[app.AchievementsView](t, rec)
	assert.NotEmpty(t, view.Catalog)
}

func TestCourseProgressRoutes(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	rec := s.do(t, http.MethodGet, "/api/courses/phishing-101/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[app.CourseProgressView](t, rec)
	assert.False(t, view.Started)
	assert.Equal(t, 1, view.ModuleNumber)

	rec = s.do(t, http.MethodPost, "/api/courses/phishing-101/progress", token, courseProgressRequest{
		ModuleNumber: intPtr(2),
		SlideNumber:  intPtr(0),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/courses/phishing-101/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[app.CourseProgressView](t, rec)
	assert.True(t, view.Started)
	assert.Equal(t, 2, view.ModuleNumber)
	assert.Equal(t, 0, view.SlideNumber)

	rec = s.do(t, http.MethodPost, "/api/courses/phishing-101/progress", token, map[string]int{"module_number": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decode[errorBody](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/courses/phishing-101/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFeedbackRoutes(t *testing.T) {
	s := newTestServer(t, 60, 10)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	rec := s.do(t, http.MethodPost, "/api/challenges/ch-ceo/feedback", token, map[string]any{"rating": 4, "comment": " clear scenario "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fb := decode[domain.Feedback](t, rec)
	assert.Equal(t, 4, fb.Rating)
	assert.Equal(t, "clear scenario", fb.Comment)
	assert.Equal(t, "alice", fb.Username)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/feedback", token, map[string]any{"rating": 9})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/challenges/missing/feedback", token, map[string]any{"rating": 3})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/feedback", "", map[string]any{"rating": 3})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/challenges/ch-ceo/feedback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Feedback []domain.Feedback `json:"feedback"`
	}](t, rec)
	require.Len(t, list.Feedback, 1)
	assert.Equal(t, fb.ID, list.Feedback[0].ID)

	rec = s.do(t, http.MethodGet, "/api/challenges/missing/feedback", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionRateLimit(t *testing.T) {
	s := newTestServer(t, 1, 1)
	token := s.token(t, "u1", "alice")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", token, nil).Code)

	body := attemptRequest{Answers: []*int{intPtr(0), intPtr(0)}, TimeTakenSeconds: 5}
	rec := s.do(t, http.MethodPost, "/api/challenges/ch-ceo/attempt", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/attempt", token, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, decode[errorBody](t, rec).Code)

	// Other callers keep their own bucket.
	other := s.token(t, "u2", "bob")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/progress/init", other, nil).Code)
	rec = s.do(t, http.MethodPost, "/api/challenges/ch-ceo/attempt", other, body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClassify(t *testing.T) {
	status, code := classify(domain.ErrQuizNotFound)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, code)

	status, code = classify(domain.ErrConflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeConflict, code)

	status, code = classify(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, CodeInternal, code)
}
