package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	m := New()
	m.AttemptGraded("challenge", "submitted", 50)
	m.AttemptGraded("challenge", "reviewed", 0)
	m.CommitConflict()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("challenge", "submitted")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.pointsAwarded.WithLabelValues("challenge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{endpoint="/ping",method="GET",status="200"} 1`)
}
