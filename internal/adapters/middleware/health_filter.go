package middleware

import (
	"context"
	"net/http"
)

// HealthCheckFilter marks probe traffic so the access logger skips it.
type HealthCheckFilter struct {
	paths           map[string]struct{}
	logHealthChecks bool
}

func NewHealthCheckFilter(logHealthChecks bool, paths ...string) *HealthCheckFilter {
	if len(paths) == 0 {
		paths = []string{"/v1/health", "/health", "/metrics"}
	}

	set := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		set[path] = struct{}{}
	}

	return &HealthCheckFilter{
		paths:           set,
		logHealthChecks: logHealthChecks,
	}
}

func (h *HealthCheckFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.logHealthChecks {
			next.ServeHTTP(w, r)

			return
		}

		if _, ok := h.paths[r.URL.Path]; ok {
			r = r.WithContext(context.WithValue(r.Context(), skipAccessLogKey, true))
		}

		next.ServeHTTP(w, r)
	})
}
