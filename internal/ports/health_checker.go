package ports

import (
	"context"

	"github.com/architeacher/svc-broker-link/internal/domain"
)

type (
	// HealthChecker reports the health of the service dependencies.
	HealthChecker interface {
		CheckHealth(ctx context.Context) *domain.HealthResult
	}
)
