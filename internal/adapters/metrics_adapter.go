package adapters

import (
	"context"

	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/shared/decorator"
)

// MetricsAdapter feeds command and query decorator events into the service metrics.
type MetricsAdapter struct {
	metrics infrastructure.Metrics
}

func NewMetricsAdapter(metrics infrastructure.Metrics) decorator.MetricsClient {
	return &MetricsAdapter{
		metrics: metrics,
	}
}

func (m *MetricsAdapter) Inc(key string, value int) {
	m.metrics.RecordUseCaseEvent(context.Background(), key, value)
}
