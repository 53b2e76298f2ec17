package commands

import (
	"context"

	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/service"
	"github.com/architeacher/svc-broker-link/internal/shared/decorator"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"go.opentelemetry.io/otel/trace"
)

type (
	HandleMessageCommand struct {
		Message broker.Message
	}

	HandleMessageHandler decorator.CommandHandler[HandleMessageCommand, *domain.HandleMessageResult]

	handleMessageHandler struct {
		subscriberService service.SubscriberService
	}
)

func NewHandleMessageHandler(
	subscriberService service.SubscriberService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) HandleMessageHandler {
	return decorator.ApplyCommandDecorators[HandleMessageCommand, *domain.HandleMessageResult](
		handleMessageHandler{
			subscriberService: subscriberService,
		},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h handleMessageHandler) Handle(ctx context.Context, cmd HandleMessageCommand) (*domain.HandleMessageResult, error) {
	if err := h.subscriberService.HandleMessage(ctx, cmd.Message); err != nil {
		return nil, err
	}

	return &domain.HandleMessageResult{
		MessageID: cmd.Message.ID,
		Text:      cmd.Message.IsText(),
		Stop:      h.subscriberService.IsStopSentinel(cmd.Message),
	}, nil
}
