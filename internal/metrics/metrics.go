// Package metrics exposes Prometheus collectors for HTTP traffic and progression events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attempts        *prometheus.CounterVec
	pointsAwarded   *prometheus.CounterVec
	conflicts       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progression_attempts_total",
				Help: "Graded submissions by kind and status",
			},
			[]string{"kind", "status"},
		),
		pointsAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progression_points_awarded_total",
				Help: "Points credited to learners by submission kind",
			},
			[]string{"kind"},
		),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progression_commit_conflicts_total",
			Help: "Compare-and-swap commits that lost a race and were retried",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.attempts,
		m.pointsAwarded,
		m.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// AttemptGraded counts a graded submission and the points it credited.
func (m *Metrics) AttemptGraded(kind, status string, points int) {
	m.attempts.WithLabelValues(kind, status).Inc()
	if points > 0 {
		m.pointsAwarded.WithLabelValues(kind).Add(float64(points))
	}
}

func (m *Metrics) CommitConflict() {
	m.conflicts.Inc()
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
