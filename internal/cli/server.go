package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/auth"
	"tegalsec-progression/internal/config"
	"tegalsec-progression/internal/content"
	"tegalsec-progression/internal/infra/memory"
	pgstore "tegalsec-progression/internal/infra/postgres"
	redisstore "tegalsec-progression/internal/infra/redis"
	"tegalsec-progression/internal/logging"
	"tegalsec-progression/internal/metrics"
	transport "tegalsec-progression/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	var loader memory.ChallengeLoader = content.BuiltinLoader{}
	var progress app.ProgressRepository = memory.NewProgressStore()
	var feedback app.FeedbackRepository = memory.NewFeedbackStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pgLoader := pgstore.NewChallengeLoader(pool)
		if err := seedIfEmpty(ctx, cfg, pgLoader, logger); err != nil {
			return err
		}
		loader = pgLoader

		db := openBun(cfg)
		defer db.Close()
		progress = pgstore.NewProgressStore(db)
		feedback = pgstore.NewFeedbackStore(db)
	} else if redisClient != nil {
		progress = redisstore.NewProgressStore(redisClient)
		feedback = redisstore.NewFeedbackStore(redisClient)
	}
	if cfg.Content.File != "" && cfg.Postgres.URL == "" {
		loader = content.NewFileLoader(cfg.Content.File)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var challenges app.ChallengeRepository
	if redisClient != nil {
		challenges = redisstore.NewChallengeRepository(redisClient, loader, contentTTL)
	} else {
		challenges = memory.NewChallengeRepository(loader, contentTTL)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 15*time.Minute)
	var quizzes app.QuizSessionRepository
	if redisClient != nil {
		quizzes = redisstore.NewQuizSessionStore(redisClient, quizTTL)
	} else {
		quizzes = memory.NewQuizSessionStore(quizTTL)
	}

	m := metrics.New()
	service := app.NewProgressionService(challenges, progress, quizzes, feedback, app.Options{
		Levels:          cfg.Levels(),
		Timing:          cfg.Timing(),
		MiniGame:        cfg.MiniGameRules(),
		MiniGameTypes:   cfg.MiniGame.GameTypes,
		QuizSize:        cfg.Quiz.Size,
		QuizTimeLimit:   cfg.Quiz.TimeLimitSeconds,
		MaxRetries:      cfg.Scoring.MaxRetries,
		RetryBackoff:    config.TTLDuration(cfg.Scoring.RetryBackoff, 0),
		LeaderboardSize: cfg.Scoring.LeaderboardSize,
		Location:        cfg.Location(),
		Logger:          logger.Named("progression"),
		Metrics:         m,
		Hub:             app.NewLeaderboardHub(),
	})

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	router := transport.NewRouter(service, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer), transport.RouterConfig{
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
		Metrics:            m,
		Logger:             logger.Named("http"),
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting progression service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
