package commands

import (
	"context"

	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/service"
	"github.com/architeacher/svc-broker-link/internal/shared/decorator"
	"go.opentelemetry.io/otel/trace"
)

type (
	SendMessageCommand struct {
		Payload string
	}

	SendMessageHandler decorator.CommandHandler[SendMessageCommand, *domain.SendResult]

	sendMessageHandler struct {
		appService service.ApplicationService
	}
)

func NewSendMessageHandler(
	appService service.ApplicationService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) SendMessageHandler {
	return decorator.ApplyCommandDecorators[SendMessageCommand, *domain.SendResult](
		sendMessageHandler{
			appService: appService,
		},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h sendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*domain.SendResult, error) {
	return h.appService.SendMessage(ctx, cmd.Payload)
}
