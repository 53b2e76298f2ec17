package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/shared/backoff"
	"github.com/architeacher/svc-broker-link/internal/usecases/commands"
	"github.com/architeacher/svc-broker-link/pkg/broker"
)

type (
	receiver interface {
		Receive(ctx context.Context) (broker.Message, error)
		Close() error
	}

	receiverFactory func(ctx context.Context) (receiver, error)

	// pullWorker drains one pull consumer until the stop sentinel arrives or ctx ends.
	// A consumer whose stream ended is replaced after a backoff.
	pullWorker struct {
		id             int
		create         receiverFactory
		handler        commands.HandleMessageHandler
		strategy       backoff.Strategy
		receiveTimeout time.Duration
		logger         infrastructure.Logger
	}
)

func (w *pullWorker) run(ctx context.Context, consumer receiver) error {
	defer func() {
		if consumer != nil {
			_ = consumer.Close()
		}
	}()

	failures := 0

	for ctx.Err() == nil {
		if consumer == nil {
			created, err := w.create(ctx)
			if err != nil {
				w.logger.Warn().Err(err).Int("worker", w.id).Int("failures", failures+1).Msg("unable to recreate consumer")

				if w.pause(ctx, &failures) {
					return nil
				}

				continue
			}

			consumer = created
		}

		msg, err := w.receive(ctx, consumer)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, broker.ErrConsumerClosed):
				w.logger.Warn().Int("worker", w.id).Msg("consumer stream ended, reconnecting")

				_ = consumer.Close()
				consumer = nil
			default:
				w.logger.Error().Err(err).Int("worker", w.id).Msg("receive failed")
			}

			if w.pause(ctx, &failures) {
				return nil
			}

			continue
		}

		failures = 0

		result, err := w.handler.Handle(ctx, commands.HandleMessageCommand{Message: msg})
		if err != nil {
			w.logger.Error().Err(err).Int("worker", w.id).Str("message_id", msg.ID).Msg("message handling failed")

			continue
		}

		if result.Stop {
			w.logger.Info().Int("worker", w.id).Str("message_id", msg.ID).Msg("stop message received")

			return nil
		}
	}

	return nil
}

func (w *pullWorker) receive(ctx context.Context, consumer receiver) (broker.Message, error) {
	receiveCtx, cancel := context.WithTimeout(ctx, w.receiveTimeout)
	defer cancel()

	return consumer.Receive(receiveCtx)
}

// pause backs off after a failure and reports whether ctx ended meanwhile.
func (w *pullWorker) pause(ctx context.Context, failures *int) bool {
	err := backoff.Wait(ctx, w.strategy, *failures)
	*failures++

	return err != nil
}
