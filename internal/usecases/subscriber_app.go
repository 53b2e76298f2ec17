package usecases

import (
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/service"
	"github.com/architeacher/svc-broker-link/internal/shared/decorator"
	"github.com/architeacher/svc-broker-link/internal/usecases/commands"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	SubscriberApplication struct {
		Commands SubscriberCommands
	}

	SubscriberCommands struct {
		HandleMessageHandler commands.HandleMessageHandler
	}
)

func NewSubscriberApplication(
	subscriberService service.SubscriberService,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) *SubscriberApplication {
	return &SubscriberApplication{
		Commands: SubscriberCommands{
			HandleMessageHandler: commands.NewHandleMessageHandler(
				subscriberService,
				logger,
				tracerProvider,
				metricsClient,
			),
		},
	}
}
