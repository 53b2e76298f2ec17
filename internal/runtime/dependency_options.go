package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/svc-broker-link/internal/adapters"
	"github.com/architeacher/svc-broker-link/internal/adapters/repos"
	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/service"
	"github.com/architeacher/svc-broker-link/internal/usecases"
	"github.com/architeacher/svc-broker-link/internal/usecases/commands"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"go.opentelemetry.io/otel"
)

const (
	depthProbeManagement = "management"
	senderBreakerName    = "broker-sender"
)

type (
	DependencyOption func(*Dependencies) error
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithSecretStorage(),
		WithSecretStorageRepo(),
		WithConfigLoader(ctx),
		WithMetrics(ctx),
		WithTracing(ctx),
		WithBrokerGuard(),
	}
}

// WithSecretStorage initializes the Vault client using ENV config.
func WithSecretStorage() DependencyOption {
	return func(d *Dependencies) error {
		client, err := repos.NewVaultClient(d.cfg.SecretStorage)
		if err != nil {
			return err
		}

		d.Infra.SecretStorageClient = client

		return nil
	}
}

func WithSecretStorageRepo() DependencyOption {
	return func(d *Dependencies) error {
		d.Repos.SecretStorageRepo = repos.NewVaultRepository(d.Infra.SecretStorageClient)

		return nil
	}
}

func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		d.configLoader = config.NewLoader(d.cfg, d.Repos.SecretStorageRepo, d.secretVersion)

		if !d.cfg.SecretStorage.Enabled {
			d.logger.Info().Msg("secret storage is disabled, skipping vault configuration loading")

			return nil
		}

		version, err := d.configLoader.Load(ctx)
		if err != nil {
			return fmt.Errorf("unable to load service configuration: %w", err)
		}

		d.secretVersion = version

		return nil
	}
}

func WithMetrics(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		metrics, err := infrastructure.NewMetrics(ctx, *d.cfg, d.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		d.Infra.Metrics = metrics

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.Telemetry.Traces.Enabled {
			d.tracerShutdownFunc = func(_ context.Context) error {
				return nil
			}

			return nil
		}

		tracerShutdownFunc, err := infrastructure.InitGlobalTracer(ctx, d.cfg.Telemetry, d.cfg.AppConfig)
		if err != nil {
			d.logger.Error().Err(err).Msg("failed to initialize global tracer")

			return err
		}

		d.tracerShutdownFunc = tracerShutdownFunc

		return nil
	}
}

// WithBrokerGuard builds the connection factory, the shared scheduler, the guard and the consumer factory.
// Nothing is dialed yet.
func WithBrokerGuard() DependencyOption {
	return func(d *Dependencies) error {
		if err := infrastructure.ValidateBrokerConfig(d.configLoader.Broker()); err != nil {
			return err
		}

		queue := infrastructure.BrokerQueue(d.cfg.Broker)
		common := d.brokerOptions()

		d.Broker.Factory = infrastructure.NewBrokerConnectionFactory(d.configLoader.Broker, common...)
		d.Broker.Scheduler = broker.NewScheduler(d.logger.WithComponent("scheduler").Broker())

		d.Broker.Guard = broker.NewGuard(d.Broker.Factory, queue, append(common,
			broker.WithPrefetch(d.cfg.Broker.PrefetchCount),
			broker.WithValidationInterval(d.cfg.Scheduler.ValidationInterval),
			broker.WithScheduler(d.Broker.Scheduler),
		)...)

		d.Broker.Consumers = broker.NewConsumerFactory(d.Broker.Guard, queue, append(common,
			broker.WithConsumerTagPrefix(d.cfg.Consumer.TagPrefix),
		)...)

		return nil
	}
}

func WithSubscriber() DependencyOption {
	return func(d *Dependencies) error {
		subscriberService := service.NewSubscriberService(d.cfg.Consumer.StopSentinel, d.logger)

		d.Apps.Subscriber = usecases.NewSubscriberApplication(
			subscriberService,
			d.logger,
			otel.GetTracerProvider(),
			adapters.NewMetricsAdapter(d.Infra.Metrics),
		)

		return nil
	}
}

// WithBatchConsumption builds the batch coordinator. The service schedules it on start.
func WithBatchConsumption() DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.Scheduler.BatchEnabled {
			d.logger.Info().Msg("batch consumption is disabled")

			return nil
		}

		if d.Apps.Subscriber == nil {
			if err := WithSubscriber()(d); err != nil {
				return err
			}
		}

		queue := infrastructure.BrokerQueue(d.cfg.Broker)

		var probe broker.DepthProbe = broker.NewSessionProbe(d.Broker.Guard, queue)
		if strings.EqualFold(d.cfg.Scheduler.DepthProbe, depthProbeManagement) {
			probe = broker.NewManagementProbe(
				infrastructure.BrokerManagement(d.configLoader.Management()),
				d.cfg.Broker.VirtualHost,
				queue,
			)
		}

		handler := d.Apps.Subscriber.Commands.HandleMessageHandler
		listener := func(ctx context.Context, msg broker.Message) error {
			_, err := handler.Handle(ctx, commands.HandleMessageCommand{Message: msg})

			return err
		}

		d.Broker.BatchCoordinator = broker.NewBatchCoordinator(d.Broker.Consumers, probe, listener, append(d.brokerOptions(),
			broker.WithWaitTimeout(d.cfg.Scheduler.BatchWaitTimeout),
		)...)

		d.logger.Info().
			Str("depth_probe", d.cfg.Scheduler.DepthProbe).
			Dur("interval", d.cfg.Scheduler.BatchInterval).
			Msg("batch consumption configured")

		return nil
	}
}

func WithSender() DependencyOption {
	return func(d *Dependencies) error {
		d.Broker.Sender = broker.NewSender(
			d.Broker.Factory,
			infrastructure.BrokerQueue(d.cfg.Broker),
			append(d.brokerOptions(),
				broker.WithPublishTimeout(d.cfg.Producer.PublishTimeout),
				broker.WithCircuitBreaker(infrastructure.SenderCircuitBreaker(senderBreakerName, d.cfg.Producer.CircuitBreaker)),
			)...,
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *Dependencies) error {
		if d.Broker.Sender == nil {
			if err := WithSender()(d); err != nil {
				return err
			}
		}

		appService := service.NewApplicationService(
			d.Broker.Sender,
			adapters.NewHealthChecker(d.Broker.Guard, d.cfg.Broker.ConnectTimeout),
			d.cfg.Producer,
			d.cfg.Broker.QueueName,
			d.logger,
		)

		d.Apps.Web = usecases.NewWebApplication(
			appService,
			d.logger,
			otel.GetTracerProvider(),
			adapters.NewMetricsAdapter(d.Infra.Metrics),
		)

		pasetoKeyService := infrastructure.NewPasetoKeyService(
			d.cfg.Auth,
			d.Repos.SecretStorageRepo,
			d.logger,
		)

		requestHandler := adapters.NewRequestHandler(d.Apps.Web, d.cfg.AppConfig.ServiceVersion, d.logger)

		httpServer, err := initHTTPServer(d.cfg, d.logger, d.Infra.Metrics, requestHandler, pasetoKeyService)
		if err != nil {
			return fmt.Errorf("failed to create HTTP server: %w", err)
		}

		d.Infra.HTTPServer = httpServer

		return nil
	}
}

func (d *Dependencies) brokerOptions() []broker.Option {
	return []broker.Option{
		broker.WithLogger(d.logger.WithComponent("broker").Broker()),
		broker.WithRecorder(d.Infra.Metrics),
		broker.WithTracerProvider(otel.GetTracerProvider()),
	}
}
