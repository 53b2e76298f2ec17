package backoff

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
)

type (
	// Strategy computes how long to pause after consecutive failures.
	Strategy interface {
		Backoff(retries int) time.Duration
	}

	// Exponential grows the base delay by the multiplier per retry, capped at the max delay, with jitter.
	Exponential struct {
		config config.BackoffConfig
	}
)

func NewExponentialStrategy(cfg config.BackoffConfig) Exponential {
	return Exponential{
		config: cfg,
	}
}

func (e Exponential) Backoff(retries int) time.Duration {
	delay := float64(e.config.BaseDelay)
	limit := float64(e.config.MaxDelay)

	for ; retries > 0 && delay < limit; retries-- {
		delay *= e.config.Multiplier
	}

	delay = min(delay, limit)
	delay *= 1 + e.config.Jitter*(rand.Float64()*2-1)

	return time.Duration(max(delay, 0))
}

// Wait sleeps for the backoff of the given retry count, returning early with the context error.
func Wait(ctx context.Context, strategy Strategy, retries int) error {
	timer := time.NewTimer(strategy.Backoff(retries))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
