package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	metricsNamespace = "broker_link"
)

type (
	// Metrics records service telemetry. It doubles as the broker package recorder.
	Metrics interface {
		broker.Recorder

		RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64)
		RecordUseCaseEvent(ctx context.Context, key string, value int)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	OTELMetrics struct {
		meterProvider *sdkmetric.MeterProvider
		meter         metric.Meter
		logger        Logger

		httpRequestTotal    metric.Int64Counter
		httpRequestDuration metric.Float64Histogram
		httpRequestSize     metric.Int64Histogram
		httpResponseSize    metric.Int64Histogram

		connectionAttemptTotal metric.Int64Counter
		reconnectTotal         metric.Int64Counter
		validationTotal        metric.Int64Counter
		batchCycleTotal        metric.Int64Counter
		batchCycleDuration     metric.Float64Histogram
		batchExpected          metric.Int64Histogram
		batchDelivered         metric.Int64Histogram
		messageConsumedTotal   metric.Int64Counter
		messageSentTotal       metric.Int64Counter
		messageSendDuration    metric.Float64Histogram
		useCaseEventTotal      metric.Int64Counter
	}
)

func NewMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (Metrics, error) {
	if !cfg.Telemetry.Metrics.Enabled {
		logger.Info().Msg("metrics disabled, using NoOp implementation")

		return &NoOpMetrics{}, nil
	}

	return NewOTELMetrics(ctx, cfg, logger)
}

func NewOTELMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (*OTELMetrics, error) {
	endpoint := fmt.Sprintf("%s:%s", cfg.Telemetry.OtelGRPCHost, cfg.Telemetry.OtelGRPCPort)

	conn, err := grpc.NewClient(
		endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTEL collector: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg.AppConfig)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(meterProvider)

	provider, err := newOTELMetrics(meterProvider, cfg.AppConfig.ServiceVersion, logger.WithComponent("metrics"))
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("otel_endpoint", endpoint).
		Msg("OTEL metrics provider initialized successfully")

	return provider, nil
}

func newOTELMetrics(meterProvider *sdkmetric.MeterProvider, version string, logger Logger) (*OTELMetrics, error) {
	provider := &OTELMetrics{
		meterProvider: meterProvider,
		meter: meterProvider.Meter(
			metricsNamespace,
			metric.WithInstrumentationVersion(version),
		),
		logger: logger,
	}

	if err := provider.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return provider, nil
}

func newResource(ctx context.Context, app config.AppConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(app.ServiceName),
			semconv.ServiceVersionKey.String(app.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(app.CommitSHA),
			semconv.DeploymentEnvironmentKey.String(app.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return res, nil
}

func (om *OTELMetrics) initializeMetrics() error {
	var err error

	om.httpRequestTotal, err = om.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	om.httpRequestDuration, err = om.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	om.httpRequestSize, err = om.meter.Int64Histogram(
		"http_request_size_bytes",
		metric.WithDescription("HTTP request size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_size_bytes histogram: %w", err)
	}

	om.httpResponseSize, err = om.meter.Int64Histogram(
		"http_response_size_bytes",
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_response_size_bytes histogram: %w", err)
	}

	om.connectionAttemptTotal, err = om.meter.Int64Counter(
		"broker_connection_attempts_total",
		metric.WithDescription("Total number of broker connection establish attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create broker_connection_attempts_total counter: %w", err)
	}

	om.reconnectTotal, err = om.meter.Int64Counter(
		"broker_reconnects_total",
		metric.WithDescription("Total number of reconnects triggered by validation"),
		metric.WithUnit("{reconnect}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create broker_reconnects_total counter: %w", err)
	}

	om.validationTotal, err = om.meter.Int64Counter(
		"broker_validations_total",
		metric.WithDescription("Total number of connection validation ticks"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create broker_validations_total counter: %w", err)
	}

	om.batchCycleTotal, err = om.meter.Int64Counter(
		"batch_cycles_total",
		metric.WithDescription("Total number of batch consumption cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch_cycles_total counter: %w", err)
	}

	om.batchCycleDuration, err = om.meter.Float64Histogram(
		"batch_cycle_duration_seconds",
		metric.WithDescription("Batch consumption cycle duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch_cycle_duration_seconds histogram: %w", err)
	}

	om.batchExpected, err = om.meter.Int64Histogram(
		"batch_expected_messages",
		metric.WithDescription("Queue depth observed at the start of a batch cycle"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch_expected_messages histogram: %w", err)
	}

	om.batchDelivered, err = om.meter.Int64Histogram(
		"batch_delivered_messages",
		metric.WithDescription("Messages delivered during a batch cycle"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create batch_delivered_messages histogram: %w", err)
	}

	om.messageConsumedTotal, err = om.meter.Int64Counter(
		"messages_consumed_total",
		metric.WithDescription("Total number of messages handed to a listener"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create messages_consumed_total counter: %w", err)
	}

	om.messageSentTotal, err = om.meter.Int64Counter(
		"messages_sent_total",
		metric.WithDescription("Total number of outbound send attempts"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create messages_sent_total counter: %w", err)
	}

	om.messageSendDuration, err = om.meter.Float64Histogram(
		"message_send_duration_seconds",
		metric.WithDescription("Outbound send duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create message_send_duration_seconds histogram: %w", err)
	}

	om.useCaseEventTotal, err = om.meter.Int64Counter(
		"usecase_events_total",
		metric.WithDescription("Command and query outcomes and durations keyed by event"),
	)
	if err != nil {
		return fmt.Errorf("failed to create usecase_events_total counter: %w", err)
	}

	return nil
}

func (om *OTELMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	om.httpRequestTotal.Add(ctx, 1,
		metric.WithAttributes(
			HTTPMethodAttr(method),
			HTTPPathAttr(path),
			HTTPStatusCodeAttr(statusCode),
		),
	)

	om.httpRequestDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			HTTPMethodAttr(method),
			HTTPPathAttr(path),
			HTTPStatusCodeAttr(statusCode),
		),
	)

	om.httpRequestSize.Record(ctx, requestSize,
		metric.WithAttributes(
			HTTPMethodAttr(method),
			HTTPPathAttr(path),
		),
	)

	om.httpResponseSize.Record(ctx, responseSize,
		metric.WithAttributes(
			HTTPMethodAttr(method),
			HTTPPathAttr(path),
			HTTPStatusCodeAttr(statusCode),
		),
	)
}

func (om *OTELMetrics) RecordConnectionAttempt(ctx context.Context, success bool) {
	om.connectionAttemptTotal.Add(ctx, 1,
		metric.WithAttributes(
			StatusAttr(statusOf(success)),
		),
	)
}

func (om *OTELMetrics) RecordReconnect(ctx context.Context) {
	om.reconnectTotal.Add(ctx, 1)
}

func (om *OTELMetrics) RecordValidation(ctx context.Context, healthy bool) {
	om.validationTotal.Add(ctx, 1,
		metric.WithAttributes(
			HealthyAttr(healthy),
		),
	)
}

func (om *OTELMetrics) RecordBatchCycle(ctx context.Context, expected, delivered int, duration time.Duration, err error) {
	status := statusOf(err == nil)

	om.batchCycleTotal.Add(ctx, 1,
		metric.WithAttributes(
			StatusAttr(status),
			ErrorTypeAttr(errorType(err)),
		),
	)

	om.batchCycleDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			StatusAttr(status),
		),
	)

	om.batchExpected.Record(ctx, int64(expected))
	om.batchDelivered.Record(ctx, int64(delivered))
}

func (om *OTELMetrics) RecordMessageConsumed(ctx context.Context, queue string, success bool) {
	om.messageConsumedTotal.Add(ctx, 1,
		metric.WithAttributes(
			QueueAttr(queue),
			StatusAttr(statusOf(success)),
		),
	)
}

func (om *OTELMetrics) RecordMessageSent(ctx context.Context, queue string, success bool, duration time.Duration) {
	om.messageSentTotal.Add(ctx, 1,
		metric.WithAttributes(
			QueueAttr(queue),
			StatusAttr(statusOf(success)),
		),
	)

	om.messageSendDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			QueueAttr(queue),
		),
	)
}

func (om *OTELMetrics) RecordUseCaseEvent(ctx context.Context, key string, value int) {
	om.useCaseEventTotal.Add(ctx, int64(value),
		metric.WithAttributes(
			UseCaseEventAttr(key),
		),
	)
}

func (om *OTELMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (om *OTELMetrics) Shutdown(ctx context.Context) error {
	if err := om.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}

func statusOf(success bool) string {
	if success {
		return "success"
	}

	return "error"
}
