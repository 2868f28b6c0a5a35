package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/auth"
	"tegalsec-progression/internal/metrics"
)

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
	Metrics            *metrics.Metrics
	Logger             *zap.Logger
}

// NewRouter wires every HTTP and websocket route onto a gin engine.
func NewRouter(service *app.ProgressionService, tokens *auth.Tokens, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(recovery(log), requestLogger(log), cors.New(corsConfig(cfg.AllowedOrigins)))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	h := &handlers{service: service, log: log}
	ws := NewWSHandler(service, log, cfg.AllowedOrigins)
	r.GET("/ws/leaderboard", gin.WrapF(ws.ServeWS))

	limiter := newSubmitLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	required := authenticate(tokens, true)

	api := r.Group("/api")
	{
		public := api.Group("", authenticate(tokens, false))
		public.GET("/challenges", h.listChallenges)
		public.GET("/challenges/:id", h.getChallenge)
		public.GET("/daily-challenge", h.dailyChallenge)
		public.GET("/leaderboard", h.leaderboard)
		public.GET("/challenges/:id/feedback", h.listFeedback)

		private := api.Group("", required)
		private.POST("/progress/init", h.initProgress)
		private.GET("/progress", h.progress)
		private.GET("/achievements", h.achievements)
		private.GET("/quiz/random", h.issueQuiz)
		private.GET("/quiz/completion-status", h.quizStatus)
		private.GET("/minigame/completion-status/:game_type", h.miniGameStatus)
		private.POST("/education/:id/read", h.markEducationRead)
		private.GET("/courses/:id/progress", h.courseProgress)
		private.POST("/courses/:id/progress", h.updateCourseProgress)

		submit := private.Group("", limiter.middleware())
		submit.POST("/challenges/:id/attempt", h.submitAttempt)
		submit.POST("/quiz/submit", h.submitQuiz)
		submit.POST("/minigame/complete", h.completeMiniGame)
		submit.POST("/challenges/:id/feedback", h.submitFeedback)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || containsWildcard(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
