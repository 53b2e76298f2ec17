package runtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/shared/backoff"
	"golang.org/x/sync/errgroup"
)

// Exit codes of the queue consumer.
const (
	ExitOK                 = 0
	ExitConsumerConnection = 1
	ExitProperties         = 2
	ExitConnectionFactory  = 3
)

type ConsumerCtx struct {
	deps *Dependencies

	propertiesFile string
	workers        int
	receiveTimeout time.Duration

	shutdownChannel chan os.Signal
}

func NewConsumer(opt ...ConsumerOption) *ConsumerCtx {
	cCtx := &ConsumerCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](cCtx)
	}

	return cCtx
}

// Run consumes until every worker saw the stop message or a termination signal
// arrives, and returns the process exit code.
func (c *ConsumerCtx) Run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := c.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)

		return ExitProperties
	}

	deps, err := initializeDependencies(ctx, cfg, WithSubscriber())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to create connection factory: %v\n", err)

		return ExitConnectionFactory
	}

	c.deps = deps
	defer c.cleanup()

	if err := c.deps.Broker.Guard.Establish(ctx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to connect consumer")

		return ExitConsumerConnection
	}

	if err := c.deps.Broker.Guard.Start(ctx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to schedule connection validation")

		return ExitConsumerConnection
	}

	c.deps.Broker.Scheduler.Start()

	workers, err := c.buildWorkers(ctx)
	if err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to create consumers")

		return ExitConsumerConnection
	}

	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c.shutdownChannel)

	go func() {
		select {
		case <-c.shutdownChannel:
			c.deps.logger.Info().Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	c.deps.logger.Info().
		Str("queue", cfg.Broker.QueueName).
		Int("workers", len(workers)).
		Str("stop_message", cfg.Consumer.StopSentinel).
		Msg("consuming messages")

	group, groupCtx := errgroup.WithContext(ctx)

	for _, w := range workers {
		group.Go(func() error {
			return w.worker.run(groupCtx, w.consumer)
		})
	}

	if err := group.Wait(); err != nil {
		c.deps.logger.Error().Err(err).Msg("consumer stopped with error")

		return ExitConsumerConnection
	}

	c.deps.logger.Info().Msg("all consumers stopped")

	return ExitOK
}

func (c *ConsumerCtx) loadConfig() (*config.ServiceConfig, error) {
	cfg, err := config.Init()
	if err != nil {
		return nil, err
	}

	if c.propertiesFile != "" {
		props, err := config.LoadProperties(c.propertiesFile)
		if err != nil {
			return nil, err
		}

		if err := cfg.Broker.ApplyProperties(props); err != nil {
			return nil, err
		}

		cfg.Broker.PropertiesFile = c.propertiesFile
	}

	if c.workers > 0 {
		cfg.Consumer.Workers = c.workers
	}

	if c.receiveTimeout > 0 {
		cfg.Consumer.ReceiveTimeout = c.receiveTimeout
	}

	if cfg.Consumer.Workers < 1 {
		return nil, fmt.Errorf("%w: at least one worker is required", config.ErrProperties)
	}

	return cfg, nil
}

type startedWorker struct {
	worker   *pullWorker
	consumer receiver
}

func (c *ConsumerCtx) buildWorkers(ctx context.Context) ([]startedWorker, error) {
	create := func(ctx context.Context) (receiver, error) {
		consumer, err := c.deps.Broker.Consumers.CreateConsumer(ctx, true, nil)
		if err != nil {
			return nil, err
		}

		return consumer, nil
	}

	strategy := backoff.NewExponentialStrategy(c.deps.cfg.Backoff)
	workers := make([]startedWorker, 0, c.deps.cfg.Consumer.Workers)

	for i := range c.deps.cfg.Consumer.Workers {
		consumer, err := create(ctx)
		if err != nil {
			for _, started := range workers {
				_ = started.consumer.Close()
			}

			return nil, err
		}

		workers = append(workers, startedWorker{
			worker: &pullWorker{
				id:             i,
				create:         create,
				handler:        c.deps.Apps.Subscriber.Commands.HandleMessageHandler,
				strategy:       strategy,
				receiveTimeout: c.deps.cfg.Consumer.ReceiveTimeout,
				logger:         c.deps.logger.WithComponent("consumer"),
			},
			consumer: consumer,
		})
	}

	return workers, nil
}

func (c *ConsumerCtx) cleanup() {
	c.deps.logger.Info().Msg("cleaning up resources...")

	c.deps.Broker.Scheduler.Stop()

	if err := c.deps.Broker.Guard.Cleanup(); err != nil {
		c.deps.logger.Error().Err(err).Msg("broker cleanup reported errors")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := c.deps.Infra.Metrics.Shutdown(shutdownCtx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to flush metrics")
	}

	if err := c.deps.tracerShutdownFunc(shutdownCtx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to flush traces")
	}

	c.deps.logger.Info().Msg("cleanup completed")
}
