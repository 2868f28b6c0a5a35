package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/auth"
	"tegalsec-progression/internal/domain"
	"tegalsec-progression/internal/infra/memory"
	"tegalsec-progression/internal/metrics"
)

type testServer struct {
	router  *gin.Engine
	service *app.ProgressionService
	tokens  *auth.Tokens
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, perMinute, burst int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	content := memory.NewChallengeRepository(memory.NewStaticChallengeLoader(sampleChallenges()), time.Minute)
	service := app.NewProgressionService(content, memory.NewProgressStore(), memory.NewQuizSessionStore(15*time.Minute), memory.NewFeedbackStore(), app.Options{
		Hub:         app.NewLeaderboardHub(),
		DailyPicker: app.FixedDaily("ch-invoice"),
	})
	tokens := auth.NewTokens("test-secret", "tegalsec")
	m := metrics.New()
	router := NewRouter(service, tokens, RouterConfig{
		RateLimitPerMinute: perMinute,
		RateLimitBurst:     burst,
		Metrics:            m,
	})
	return &testServer{router: router, service: service, tokens: tokens, metrics: m}
}

func (s *testServer) token(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := s.tokens.Issue(userID, username, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

// Both fixture challenges use option 2 as the answer key.
func sampleChallenges() []domain.Challenge {
	question := domain.Question{
		Question:      "Which detail gives the scam away?",
		Options:       []string{"logo", "signature", "urgent wire request", "greeting"},
		CorrectAnswer: 2,
	}
	return []domain.Challenge{
		{
			ID:                "ch-ceo",
			Title:             "The CEO on holiday",
			Category:          "email",
			Difficulty:        domain.DifficultyBeginner,
			CialdiniPrinciple: domain.PrincipleAuthority,
			Questions:         []domain.Question{question, question},
			Points:            40,
			Tips:              []string{"Call back on a known number."},
		},
		{
			ID:                "ch-invoice",
			Title:             "Overdue invoice",
			Category:          "finance",
			Difficulty:        domain.DifficultyIntermediate,
			CialdiniPrinciple: domain.PrincipleScarcity,
			Questions:         []domain.Question{question},
			Points:            20,
		},
	}
}

func intPtr(v int) *int { return &v }
