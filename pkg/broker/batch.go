package broker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CycleResult summarizes one batch cycle.
type CycleResult struct {
	Expected    int
	Delivered   int
	ConsumerTag string
	Duration    time.Duration
}

// BatchCoordinator drains the messages a queue holds at the start of a cycle:
// it probes the depth, opens one push consumer and closes it once that many
// deliveries were handled.
type BatchCoordinator struct {
	consumers   ConsumerCreator
	probe       DepthProbe
	listener    Listener
	waitTimeout time.Duration
	logger      Logger
	recorder    Recorder
	tracer      trace.Tracer
}

// NewBatchCoordinator creates a coordinator handing every delivery to listener.
func NewBatchCoordinator(consumers ConsumerCreator, probe DepthProbe, listener Listener, opts ...Option) *BatchCoordinator {
	o := newOptions(opts)

	return &BatchCoordinator{
		consumers:   consumers,
		probe:       probe,
		listener:    listener,
		waitTimeout: o.waitTimeout,
		logger:      o.logger,
		recorder:    o.recorder,
		tracer:      o.tracer(),
	}
}

// RunCycle runs one cycle. The consumer it opens is closed exactly once on
// every path, including cancellation.
func (b *BatchCoordinator) RunCycle(ctx context.Context) (result CycleResult, err error) {
	ctx, span := b.tracer.Start(ctx, "broker.batch_cycle")
	defer span.End()

	start := time.Now()

	var consumer *Consumer

	defer func() {
		if closeErr := consumer.Close(); closeErr != nil {
			b.logger.Warn().Err(closeErr).Msg("Failed to close batch consumer")
		}

		result.Duration = time.Since(start)
		b.recorder.RecordBatchCycle(ctx, result.Expected, result.Delivered, result.Duration, err)

		span.SetAttributes(
			attribute.Int("broker.batch.expected", result.Expected),
			attribute.Int("broker.batch.delivered", result.Delivered),
		)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	depth, err := b.probe.Depth(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to probe queue depth")

		return result, fmt.Errorf("probe queue depth: %w", err)
	}

	result.Expected = depth
	signal := NewCompletionSignal(depth)

	consumer, err = b.consumers.CreateConsumer(ctx, false, b.countDown(signal))
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to create batch consumer")

		return result, fmt.Errorf("create batch consumer: %w", err)
	}

	result.ConsumerTag = consumer.Tag()

	b.logger.Info().
		Str("queue", consumer.Queue()).
		Str("consumer_tag", consumer.Tag()).
		Int("expected", depth).
		Msg("Batch consumption started")

	err = signal.Wait(ctx, b.waitTimeout, consumer.Done())
	result.Delivered = signal.Observed()

	if err != nil {
		b.logger.Warn().
			Err(err).
			Int("expected", depth).
			Int("delivered", result.Delivered).
			Msg("Batch consumption interrupted")

		return result, fmt.Errorf("wait for %d deliveries: %w", depth, err)
	}

	b.logger.Info().
		Int("delivered", result.Delivered).
		Dur("duration", time.Since(start)).
		Msg("Batch consumption completed")

	return result, nil
}

// Tick adapts RunCycle to a scheduler task.
func (b *BatchCoordinator) Tick(ctx context.Context) error {
	_, err := b.RunCycle(ctx)

	return err
}

// Schedule registers the coordinator on s, first firing immediately and then every period.
func (b *BatchCoordinator) Schedule(s *Scheduler, period time.Duration) error {
	return s.Schedule("batch-consumption", 0, period, b.Tick)
}

// countDown signals completion after the listener handled a delivery, whatever its outcome.
func (b *BatchCoordinator) countDown(signal *CompletionSignal) Listener {
	return func(ctx context.Context, msg Message) error {
		defer signal.Done()

		if b.listener == nil {
			return nil
		}

		return b.listener(ctx, msg)
	}
}
