package runtime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	openapi "github.com/architeacher/svc-broker-link/api"
	"github.com/architeacher/svc-broker-link/internal/adapters"
	"github.com/architeacher/svc-broker-link/internal/adapters/middleware"
	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/ports"
	"github.com/architeacher/svc-broker-link/internal/usecases"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/vault/api"
)

type (
	Applications struct {
		Web        *usecases.WebApplication
		Subscriber *usecases.SubscriberApplication
	}

	TracerShutdownFunc func(ctx context.Context) error

	InfrastructureDeps struct {
		HTTPServer          *http.Server
		SecretStorageClient *api.Client
		Metrics             infrastructure.Metrics
	}

	BrokerDeps struct {
		Factory          broker.ConnectionFactory
		Scheduler        *broker.Scheduler
		Guard            *broker.Guard
		Consumers        *broker.ConsumerFactory
		Sender           *broker.Sender
		BatchCoordinator *broker.BatchCoordinator
	}

	Repos struct {
		SecretStorageRepo ports.SecretsRepository
	}

	Dependencies struct {
		Apps Applications

		cfg          *config.ServiceConfig
		configLoader *config.Loader

		logger infrastructure.Logger

		Infra  InfrastructureDeps
		Broker BrokerDeps
		Repos  Repos

		tracerShutdownFunc TracerShutdownFunc
		secretVersion      uint
	}
)

func initializeDependencies(ctx context.Context, cfg *config.ServiceConfig, opts ...DependencyOption) (*Dependencies, error) {
	appLogger := infrastructure.New(cfg.Logging)

	appLogger.Info().Msg("initializing dependencies...")

	deps := &Dependencies{
		cfg:    cfg,
		logger: appLogger,
	}

	// Start with default options and append any additional options.
	options := append(defaultOptions(ctx), opts...)

	for _, opt := range options {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	deps.logger.Info().Msg("dependencies initialized successfully")

	return deps, nil
}

func initHTTPServer(
	cfg *config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	reqHandler *adapters.RequestHandler,
	keyService ports.KeyService,
) (*http.Server, error) {
	logger.Info().Msg("creating HTTP server...")

	middlewares, err := initMiddlewares(cfg, logger, metrics, keyService)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middlewares...)

	reqHandler.Routes(router)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPServer.Host, strconv.Itoa(cfg.HTTPServer.Port)),
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	logger.Info().Str("addr", server.Addr).Msg("HTTP server created")

	return server, nil
}

func initMiddlewares(
	cfg *config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	keyService ports.KeyService,
) ([]func(http.Handler) http.Handler, error) {
	middlewares := []func(http.Handler) http.Handler{
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		chimiddleware.Timeout(cfg.HTTPServer.WriteTimeout),
		middleware.NewResponseHeadersMiddleware(cfg.AppConfig.APIVersion).Middleware,
		middleware.Tracer(),
	}

	if cfg.Telemetry.Metrics.Enabled {
		metricsMiddleware := middleware.NewMetricsMiddleware(metrics)
		middlewares = append(middlewares, metricsMiddleware.Middleware)
		logger.Info().Msg("HTTP metrics collection enabled")
	}

	if cfg.Logging.AccessLog.Enabled {
		healthFilter := middleware.NewHealthCheckFilter(cfg.Logging.AccessLog.LogHealthChecks)
		accessLogger := middleware.NewAccessLogger(logger.Logger, cfg.Logging.AccessLog.IncludeQueryParams)

		middlewares = append(middlewares, healthFilter.Middleware, accessLogger.Middleware)
		logger.Info().
			Bool("log_health_checks", cfg.Logging.AccessLog.LogHealthChecks).
			Msg("structured access logging enabled")
	}

	swagger, err := openapi.GetSwagger()
	if err != nil {
		return nil, err
	}

	swagger.Servers = nil

	requestValidator, err := middleware.OapiRequestValidatorWithOptions(logger, swagger, &middleware.RequestValidatorOptions{
		Options: openapi3filter.Options{
			MultiError:         false,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		ErrorHandler: middleware.RequestValidationErrHandler,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request validator: %w", err)
	}

	middlewares = append(middlewares, requestValidator)

	if cfg.ThrottledRateLimiting.Enabled {
		rateLimitMiddleware, err := middleware.NewThrottledRateLimitingMiddleware(cfg.ThrottledRateLimiting, logger)
		if err != nil {
			return nil, err
		}

		middlewares = append(middlewares, rateLimitMiddleware.Middleware)
		logger.Info().Msg("rate limiting enabled")
	}

	if cfg.Auth.Enabled {
		authMiddleware := middleware.NewPasetoAuthMiddleware(cfg.Auth, logger, keyService)
		middlewares = append(middlewares, authMiddleware.Middleware)
		logger.Info().Strs("skip_paths", cfg.Auth.SkipPaths).Msg("authentication is enabled")
	}

	return middlewares, nil
}
