package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/domain"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/ports"
	"github.com/architeacher/svc-broker-link/pkg/broker"
)

type (
	ApplicationService interface {
		SendMessage(ctx context.Context, payload string) (*domain.SendResult, error)
		FetchHealthReport(ctx context.Context) (*domain.HealthResult, error)
	}

	appService struct {
		sender         ports.MessageSender
		healthChecker  ports.HealthChecker
		producerConfig config.ProducerConfig
		queue          string
		logger         infrastructure.Logger
	}
)

func NewApplicationService(
	sender ports.MessageSender,
	healthChecker ports.HealthChecker,
	producerConfig config.ProducerConfig,
	queue string,
	logger infrastructure.Logger,
) ApplicationService {
	return &appService{
		sender:         sender,
		healthChecker:  healthChecker,
		producerConfig: producerConfig,
		queue:          queue,
		logger:         logger,
	}
}

func (s *appService) SendMessage(ctx context.Context, payload string) (*domain.SendResult, error) {
	if err := s.validatePayload(payload); err != nil {
		return nil, err
	}

	receipt, err := s.sender.Send(ctx, payload)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("queue", s.queue).
			Msg("failed to send message")

		if errors.Is(err, broker.ErrCircuitOpen) {
			return nil, domain.NewBrokerUnavailableError(s.queue, err)
		}

		return nil, domain.NewSendFailedError(s.queue, err)
	}

	s.logger.Info().
		Str("queue", receipt.Queue).
		Str("message_id", receipt.MessageID).
		Msg("message sent")

	return &domain.SendResult{
		MessageID: receipt.MessageID,
		Queue:     receipt.Queue,
		Payload:   payload,
		SentAt:    receipt.SentAt,
	}, nil
}

func (s *appService) FetchHealthReport(ctx context.Context) (*domain.HealthResult, error) {
	return s.healthChecker.CheckHealth(ctx), nil
}

func (s *appService) validatePayload(payload string) error {
	if payload == "" {
		return domain.NewInvalidMessageError("message must not be empty")
	}

	if !utf8.ValidString(payload) {
		return domain.NewInvalidMessageError("message must be valid UTF-8 text")
	}

	if limit := s.producerConfig.MaxPayloadSize; limit > 0 && len(payload) > limit {
		return domain.NewInvalidMessageError(fmt.Sprintf("message exceeds %d bytes", limit))
	}

	return nil
}
