package middleware

import (
	"net/http"
	"time"

	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/go-chi/chi/v5"
)

type MetricsMiddleware struct {
	metrics infrastructure.Metrics
}

func NewMetricsMiddleware(metrics infrastructure.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
	}
}

func (m *MetricsMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		wrapped := NewRecordingResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		m.metrics.RecordHTTPRequest(
			r.Context(),
			r.Method,
			routeOf(r),
			wrapped.StatusCode(),
			time.Since(startTime),
			r.ContentLength,
			wrapped.BytesWritten(),
		)
	})
}

// routeOf prefers the matched chi pattern so message payloads in the path do not become labels.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return r.URL.Path
}
