package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/architeacher/svc-broker-link/internal/config"
)

type ServiceCtx struct {
	deps *Dependencies

	shutdownChannel chan os.Signal

	serverCtx      context.Context
	serverStopFunc context.CancelFunc

	serverReady chan struct{}
}

func New(opt ...ServiceOption) *ServiceCtx {
	sCtx := &ServiceCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](sCtx)
	}

	return sCtx
}

func (c *ServiceCtx) Run() {
	c.build()
	c.startBroker()
	c.startService()
	c.monitorConfigChanges()
	c.shutdownHook()
	c.shutdown()
}

// build initializes the service components
func (c *ServiceCtx) build() {
	c.serverCtx, c.serverStopFunc = context.WithCancel(context.Background())

	cfg, err := config.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: unable to load service configuration: %v\n", err)
		os.Exit(1)
	}

	deps, err := initializeDependencies(c.serverCtx, cfg, WithBatchConsumption(), WithHTTPServer())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	c.deps = deps
}

// startBroker connects the guard and starts the shared scheduler. A broker that is
// down at startup is retried by the validation task.
func (c *ServiceCtx) startBroker() {
	if err := c.deps.Broker.Guard.Start(c.serverCtx); err != nil {
		c.deps.logger.Warn().Err(err).Msg("broker guard started without a connection")
	}

	if c.deps.Broker.BatchCoordinator != nil {
		if err := c.deps.Broker.BatchCoordinator.Schedule(c.deps.Broker.Scheduler, c.deps.cfg.Scheduler.BatchInterval); err != nil {
			c.deps.logger.Error().Err(err).Msg("unable to schedule batch consumption")
		}
	}

	c.deps.Broker.Scheduler.Start()

	c.deps.logger.Info().
		Str("queue", c.deps.cfg.Broker.QueueName).
		Bool("connected", c.deps.Broker.Guard.IsConnected()).
		Msg("broker link started")
}

// startService starts the HTTP server
func (c *ServiceCtx) startService() {
	go func() {
		c.deps.logger.Info().
			Str("address", c.deps.Infra.HTTPServer.Addr).
			Msg("service starting up")

		if c.serverReady != nil {
			c.serverReady <- struct{}{}
		}

		if err := c.deps.Infra.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.deps.logger.Error().Err(err).Msg("unable to start http server")
			c.serverStopFunc()
		}
	}()
}

func (c *ServiceCtx) shutdownHook() {
	signal.Notify(c.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
}

func (c *ServiceCtx) monitorConfigChanges() {
	reloadErrors := c.deps.configLoader.WatchConfigSignals(c.serverCtx)

	go func() {
		for err := range reloadErrors {
			if err != nil {
				c.deps.logger.Error().Err(err).Msg("failed to reload config")
				continue
			}

			c.deps.logger.Info().Msg("config reloaded, broker credentials apply on the next reconnect")
		}

		c.deps.logger.Info().Msg("stopping config monitor")
	}()
}

func (c *ServiceCtx) shutdown() {
	// Waits for one of the following shutdown conditions to happen.
	select {
	case <-c.serverCtx.Done():
	case <-c.shutdownChannel:
		defer signal.Stop(c.shutdownChannel)
	}

	c.deps.logger.Info().Msg("received shutdown signal")

	// Cancel context that underlying processes would start cleanup.
	c.serverStopFunc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.deps.cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	go func() {
		<-shutdownCtx.Done()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			c.deps.logger.Error().Msg("graceful shutdown timed out.. forcing exit.")
			os.Exit(1)
		}
	}()

	c.cleanup(shutdownCtx)

	c.deps.logger.Info().Msg("service shutdown completed")
}

// WaitForServer blocks until the http server is running.
// If you want to be notified when the server is running,
// make sure you instantiate your server with WithWaitingForServer.
//
// Example:
//
//	srv := runtime.New(WithWaitingForServer())
//	go func() {
//		srv.Run()
//	}()
//
//	srv.WaitForServer()
func (c *ServiceCtx) WaitForServer() {
	if c.serverReady != nil {
		<-c.serverReady
		close(c.serverReady)
	}
}

// cleanup stops intake first, then the scheduled broker work, then the shared connection.
func (c *ServiceCtx) cleanup(shutdownCtx context.Context) {
	c.deps.logger.Info().Msg("cleaning up resources...")

	if err := c.deps.Infra.HTTPServer.Shutdown(shutdownCtx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to gracefully shutdown http server")
	}

	c.deps.Broker.Scheduler.Stop()

	if err := c.deps.Broker.Guard.Cleanup(); err != nil {
		c.deps.logger.Error().Err(err).Msg("broker cleanup reported errors")
	}

	if err := c.deps.Infra.Metrics.Shutdown(shutdownCtx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to flush metrics")
	}

	if err := c.deps.tracerShutdownFunc(shutdownCtx); err != nil {
		c.deps.logger.Error().Err(err).Msg("unable to flush traces")
	}

	c.deps.logger.Info().Msg("cleanup completed")
}
