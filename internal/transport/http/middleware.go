package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tegalsec-progression/internal/app"
	"tegalsec-progression/internal/auth"
)

const (
	ctxUserIDKey   = "user_id"
	ctxUsernameKey = "username"
)

// requestLogger logs one line per request once the handler chain finishes.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := c.GetString(ctxUserIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: CodeInternal, Message: "internal error"})
	})
}

// authenticate resolves the bearer token into the caller identity.
// With required=false a missing header passes through anonymously, but a bad token is still rejected.
func authenticate(tokens *auth.Tokens, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if !required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: CodeUnauthorized, Message: "authorization header missing"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: CodeUnauthorized, Message: "invalid authorization header format"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: CodeUnauthorized, Message: "invalid token"})
			return
		}
		c.Set(ctxUserIDKey, claims.Subject)
		c.Set(ctxUsernameKey, claims.Username)
		c.Next()
	}
}

func identity(c *gin.Context) app.Identity {
	return app.Identity{
		UserID:   c.GetString(ctxUserIDKey),
		Username: c.GetString(ctxUsernameKey),
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	expires time.Time
}

// submitLimiter is a per-caller token bucket keyed by user id, or client IP when anonymous.
type submitLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
	idle     time.Duration
}

func newSubmitLimiter(perMinute, burst int) *submitLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = max(perMinute/2, 1)
	}
	return &submitLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		idle:     5 * time.Minute,
	}
}

func (l *submitLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, e := range l.limiters {
		if now.After(e.expires) {
			delete(l.limiters, k)
		}
	}
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.expires = now.Add(l.idle)
	return entry.limiter.Allow()
}

func (l *submitLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ctxUserIDKey)
		if key == "" {
			key = c.ClientIP()
		}
		if !l.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Code: CodeRateLimited, Message: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
