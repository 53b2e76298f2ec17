package service

import (
	"context"
	"strings"

	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/pkg/broker"
)

type (
	// SubscriberService handles messages delivered to the consumers.
	SubscriberService interface {
		HandleMessage(ctx context.Context, msg broker.Message) error
		// IsStopSentinel reports whether msg asks a pull-mode worker to stop.
		IsStopSentinel(msg broker.Message) bool
	}

	subscriberService struct {
		stopSentinel string
		logger       infrastructure.Logger
	}
)

func NewSubscriberService(stopSentinel string, logger infrastructure.Logger) SubscriberService {
	return subscriberService{
		stopSentinel: strings.TrimSpace(stopSentinel),
		logger:       logger,
	}
}

// HandleMessage logs text payloads at info and anything else at warn. It never fails,
// so push-mode deliveries are always acknowledged.
func (s subscriberService) HandleMessage(_ context.Context, msg broker.Message) error {
	if !msg.IsText() {
		s.logger.Warn().
			Str("queue", msg.Queue).
			Str("message_id", msg.ID).
			Str("content_type", msg.ContentType).
			Int("size", len(msg.Body)).
			Msg("received non-text message")

		return nil
	}

	s.logger.Info().
		Str("queue", msg.Queue).
		Str("message_id", msg.ID).
		Bool("redelivered", msg.Redelivered).
		Str("text", msg.Text()).
		Msg("received message")

	return nil
}

func (s subscriberService) IsStopSentinel(msg broker.Message) bool {
	if s.stopSentinel == "" || !msg.IsText() {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(msg.Text()), s.stopSentinel)
}
