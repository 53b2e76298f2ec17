package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

type ThrottledRateLimitingMiddleware struct {
	config  config.ThrottledRateLimitingConfig
	logger  infrastructure.Logger
	limiter throttled.HTTPRateLimiterCtx
}

func NewThrottledRateLimitingMiddleware(
	cfg config.ThrottledRateLimitingConfig,
	logger infrastructure.Logger,
) (*ThrottledRateLimitingMiddleware, error) {
	m := &ThrottledRateLimitingMiddleware{
		config: cfg,
		logger: logger.WithComponent("rate_limit"),
	}

	if !cfg.Enabled {
		return m, nil
	}

	store, err := memstore.NewCtx(cfg.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}

	quota := throttled.RateQuota{
		MaxRate:  throttled.PerSec(cfg.RequestsPerSecond),
		MaxBurst: cfg.BurstSize,
	}

	limiter, err := throttled.NewGCRARateLimiterCtx(store, quota)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	m.limiter = throttled.HTTPRateLimiterCtx{
		RateLimiter: limiter,
		VaryBy: &throttled.VaryBy{
			RemoteAddr: cfg.EnableIPLimiting,
			Path:       !cfg.EnableIPLimiting,
		},
		DeniedHandler: http.HandlerFunc(m.denied),
		Error:         m.failed,
	}

	return m, nil
}

func (m *ThrottledRateLimitingMiddleware) Middleware(next http.Handler) http.Handler {
	if !m.config.Enabled {
		return next
	}

	limited := m.limiter.RateLimit(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slices.Contains(m.config.SkipPaths, r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		limited.ServeHTTP(w, r)
	})
}

func (m *ThrottledRateLimitingMiddleware) denied(w http.ResponseWriter, r *http.Request) {
	m.logger.Warn().
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Msg("rate limit exceeded")

	writeDomainError(w, domain.NewRateLimitError("Too many requests, retry later"))
}

func (m *ThrottledRateLimitingMiddleware) failed(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.Error().Err(err).Str("path", r.URL.Path).Msg("rate limiter failure")

	writeDomainError(w, domain.NewInternalServerError("Internal server error", err))
}
