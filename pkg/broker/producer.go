package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SendReceipt describes a published message.
type SendReceipt struct {
	MessageID string
	Queue     string
	SentAt    time.Time
}

// Sender publishes text messages. Every Send dials its own connection and
// session and releases both before returning; it never touches the guard's pair.
type Sender struct {
	factory        ConnectionFactory
	queue          QueueRef
	breaker        *gobreaker.CircuitBreaker
	publishTimeout time.Duration
	logger         Logger
	recorder       Recorder
	tracer         trace.Tracer
}

// NewSender creates a sender publishing to queue through the default exchange.
func NewSender(factory ConnectionFactory, queue QueueRef, opts ...Option) *Sender {
	o := newOptions(opts)

	settings := gobreaker.Settings{
		Name:        "broker-sender",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}

	if o.breakerSettings != nil {
		settings = *o.breakerSettings
	}

	logger := o.logger
	onStateChange := settings.OnStateChange
	settings.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
		logger.Info().
			Str("name", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")

		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}

	return &Sender{
		factory:        factory,
		queue:          queue,
		breaker:        gobreaker.NewCircuitBreaker(settings),
		publishTimeout: o.publishTimeout,
		logger:         logger,
		recorder:       o.recorder,
		tracer:         o.tracer(),
	}
}

// Send publishes payload as a persistent text message.
func (s *Sender) Send(ctx context.Context, payload string) (SendReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "broker.send", trace.WithAttributes(
		attribute.String("messaging.destination.name", s.queue.Name),
	))
	defer span.End()

	start := time.Now()

	result, err := s.breaker.Execute(func() (any, error) {
		return s.send(ctx, payload)
	})

	s.recorder.RecordMessageSent(ctx, s.queue.Name, err == nil, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return SendReceipt{}, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}

		return SendReceipt{}, err
	}

	receipt, _ := result.(SendReceipt)
	span.SetAttributes(attribute.String("messaging.message.id", receipt.MessageID))

	return receipt, nil
}

func (s *Sender) send(ctx context.Context, payload string) (receipt SendReceipt, err error) {
	conn, err := s.factory.CreateConnection(ctx)
	if err != nil {
		return receipt, err
	}

	defer func() {
		if closeErr := conn.Close(); closeErr != nil && !errors.Is(closeErr, amqp.ErrClosed) {
			s.logger.Warn().Err(closeErr).Msg("Failed to close sender connection")
		}
	}()

	session, err := conn.Channel()
	if err != nil {
		return receipt, fmt.Errorf("open session: %w", err)
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil && !errors.Is(closeErr, amqp.ErrClosed) {
			s.logger.Warn().Err(closeErr).Msg("Failed to close sender session")
		}
	}()

	if s.queue.Declare {
		_, err = session.QueueDeclare(s.queue.Name, s.queue.Durable, false, false, false, nil)
	} else {
		_, err = session.QueueDeclarePassive(s.queue.Name, s.queue.Durable, false, false, false, nil)
	}

	if err != nil {
		return receipt, fmt.Errorf("resolve queue %s: %w", s.queue.Name, err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	receipt = SendReceipt{
		MessageID: uuid.NewString(),
		Queue:     s.queue.Name,
		SentAt:    time.Now().UTC(),
	}

	err = session.PublishWithContext(publishCtx, "", s.queue.Name, false, false, amqp.Publishing{
		ContentType:  contentTypeText,
		DeliveryMode: amqp.Persistent,
		MessageId:    receipt.MessageID,
		Timestamp:    receipt.SentAt,
		Body:         []byte(payload),
	})
	if err != nil {
		return SendReceipt{}, fmt.Errorf("publish to %s: %w", s.queue.Name, err)
	}

	s.logger.Info().
		Str("queue", s.queue.Name).
		Str("message_id", receipt.MessageID).
		Msg("Message sent")

	return receipt, nil
}
