package observability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// SessionMetrics counts session lifecycle events.
type SessionMetrics struct {
	Resolutions    metric.Int64Counter
	Logins         metric.Int64Counter
	Logouts        metric.Int64Counter
	GuardRedirects metric.Int64Counter
}

// NewSessionMetrics registers session counters on the given meter.
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	resolutions, err := meter.Int64Counter("session_resolutions_total",
		metric.WithDescription("Session credential resolution passes"))
	if err != nil {
		return nil, err
	}

	logins, err := meter.Int64Counter("session_logins_total",
		metric.WithDescription("Successful logins"))
	if err != nil {
		return nil, err
	}

	logouts, err := meter.Int64Counter("session_logouts_total",
		metric.WithDescription("Logouts"))
	if err != nil {
		return nil, err
	}

	redirects, err := meter.Int64Counter("guard_redirects_total",
		metric.WithDescription("Route guard redirects to the login page"))
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{
		Resolutions:    resolutions,
		Logins:         logins,
		Logouts:        logouts,
		GuardRedirects: redirects,
	}, nil
}

// Add is a nil-safe counter increment.
func (m *SessionMetrics) Add(ctx context.Context, counter metric.Int64Counter, n int64) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, n)
}
