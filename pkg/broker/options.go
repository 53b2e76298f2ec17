package broker

import (
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPrefetch           = 10
	defaultValidationInterval = 5 * time.Minute
	defaultWaitTimeout        = time.Minute
	defaultPublishTimeout     = 5 * time.Second
	defaultDrainTimeout       = time.Second
	defaultConsumerTagPrefix  = "broker-link"

	instrumentationName = "github.com/architeacher/svc-broker-link/pkg/broker"
)

// Option configures guards, consumers, coordinators and senders. Each component
// only reads the settings it needs.
type Option func(*options)

type options struct {
	logger             Logger
	recorder           Recorder
	tracerProvider     trace.TracerProvider
	prefetch           int
	validationInterval time.Duration
	scheduler          *Scheduler
	waitTimeout        time.Duration
	publishTimeout     time.Duration
	drainTimeout       time.Duration
	consumerTagPrefix  string
	breakerSettings    *gobreaker.Settings
}

func newOptions(opts []Option) options {
	o := options{
		logger:             NopLogger(),
		recorder:           NopRecorder(),
		prefetch:           defaultPrefetch,
		validationInterval: defaultValidationInterval,
		waitTimeout:        defaultWaitTimeout,
		publishTimeout:     defaultPublishTimeout,
		drainTimeout:       defaultDrainTimeout,
		consumerTagPrefix:  defaultConsumerTagPrefix,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	return o
}

func (o options) tracer() trace.Tracer {
	return o.tracerProvider.Tracer(instrumentationName)
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithTracerProvider sets the tracer provider used for batch cycles and sends.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = provider
	}
}

// WithPrefetch sets how many unacknowledged deliveries the shared session may hold.
func WithPrefetch(count int) Option {
	return func(o *options) {
		if count >= 0 {
			o.prefetch = count
		}
	}
}

// WithValidationInterval sets how often the guard checks its connection.
func WithValidationInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.validationInterval = interval
		}
	}
}

// WithScheduler makes the guard register its validation task on an externally owned scheduler.
// The guard then neither starts nor stops it.
func WithScheduler(scheduler *Scheduler) Option {
	return func(o *options) {
		o.scheduler = scheduler
	}
}

// WithWaitTimeout bounds how long a batch cycle waits for its expected deliveries. Zero waits until cancelled.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout >= 0 {
			o.waitTimeout = timeout
		}
	}
}

// WithPublishTimeout bounds a single publish.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.publishTimeout = timeout
		}
	}
}

// WithDrainTimeout bounds how long a closing consumer spends returning buffered deliveries.
func WithDrainTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.drainTimeout = timeout
		}
	}
}

// WithConsumerTagPrefix sets the prefix of generated consumer tags.
func WithConsumerTagPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.consumerTagPrefix = prefix
		}
	}
}

// WithCircuitBreaker overrides the sender circuit breaker settings.
func WithCircuitBreaker(settings gobreaker.Settings) Option {
	return func(o *options) {
		o.breakerSettings = &settings
	}
}
