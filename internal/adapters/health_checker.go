package adapters

import (
	"context"
	"time"

	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/ports"
)

const defaultHealthCheckTimeout = 2 * time.Second

// HealthChecker derives service health from the shared broker link.
type HealthChecker struct {
	link      ports.BrokerLink
	timeout   time.Duration
	startTime time.Time
}

func NewHealthChecker(link ports.BrokerLink, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}

	return &HealthChecker{
		link:      link,
		timeout:   timeout,
		startTime: time.Now(),
	}
}

func (h *HealthChecker) CheckHealth(ctx context.Context) *domain.HealthResult {
	brokerStatus := h.checkBrokerHealth(ctx)

	overallStatus := domain.HealthStatusHealthy
	if brokerStatus.Status != domain.HealthStatusHealthy {
		overallStatus = domain.HealthStatusUnhealthy
	}

	return &domain.HealthResult{
		OverallStatus: overallStatus,
		Broker:        brokerStatus,
		Generation:    h.link.Generation(),
		Uptime:        float32(time.Since(h.startTime).Seconds()),
	}
}

func (h *HealthChecker) checkBrokerHealth(ctx context.Context) domain.DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.link.Check(ctx)

	status := domain.DependencyStatus{
		Status:       domain.HealthStatusHealthy,
		ResponseTime: float32(time.Since(start).Milliseconds()),
		LastChecked:  time.Now(),
	}

	if err != nil {
		status.Status = domain.HealthStatusUnhealthy
		status.Error = err.Error()
	}

	return status
}
