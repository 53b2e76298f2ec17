package decorator

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"go.opentelemetry.io/otel/trace"
)

type (
	CommandHandler[C any, R any] interface {
		Handle(ctx context.Context, cmd C) (R, error)
	}
)

func ApplyCommandDecorators[C any, R any](
	handler CommandHandler[C, R],
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient MetricsClient,
) CommandHandler[C, R] {
	return commandLoggingDecorator[C, R]{
		base: commandMetricsDecorator[C, R]{
			base: commandTracingDecorator[C, R]{
				base:   handler,
				tracer: tracerProvider.Tracer(instrumentationName),
			},
			client: metricsClient,
		},
		logger: logger,
	}
}

func generateActionName(handler any) string {
	name := fmt.Sprintf("%T", handler)

	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}

	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
	}

	return name
}
