package infrastructure

import (
	"context"
	"net/http"
	"time"
)

type (
	NoOpMetrics struct{}
)

func (n *NoOpMetrics) RecordHTTPRequest(_ context.Context, _, _ string, _ int, _ time.Duration, _, _ int64) {
}

func (n *NoOpMetrics) RecordConnectionAttempt(_ context.Context, _ bool) {
}

func (n *NoOpMetrics) RecordReconnect(_ context.Context) {
}

func (n *NoOpMetrics) RecordValidation(_ context.Context, _ bool) {
}

func (n *NoOpMetrics) RecordBatchCycle(_ context.Context, _, _ int, _ time.Duration, _ error) {
}

func (n *NoOpMetrics) RecordMessageConsumed(_ context.Context, _ string, _ bool) {
}

func (n *NoOpMetrics) RecordMessageSent(_ context.Context, _ string, _ bool, _ time.Duration) {
}

func (n *NoOpMetrics) RecordUseCaseEvent(_ context.Context, _ string, _ int) {
}

func (n *NoOpMetrics) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (n *NoOpMetrics) Shutdown(_ context.Context) error {
	return nil
}
