package infrastructure

import (
	"errors"
	"fmt"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	"github.com/sony/gobreaker"
)

// BrokerConfigSource returns the current broker configuration. The config loader
// satisfies it, so credentials rotated in Vault are picked up on the next dial.
type BrokerConfigSource func() config.BrokerConfig

func BrokerEndpoint(cfg config.BrokerConfig) broker.Endpoint {
	return broker.Endpoint{
		Scheme:            cfg.Scheme,
		Username:          cfg.Username,
		Password:          cfg.Password,
		Host:              cfg.Host,
		Port:              cfg.Port,
		VirtualHost:       cfg.VirtualHost,
		ConnectionName:    cfg.ConnectionName,
		ConnectionTimeout: cfg.ConnectTimeout,
		Heartbeat:         cfg.Heartbeat,
		TLS: broker.TLSMaterial{
			TrustStorePath:     cfg.TLS.TrustStore,
			TrustStorePassword: cfg.TLS.TrustStorePassword,
			KeyStorePath:       cfg.TLS.KeyStore,
			KeyStorePassword:   cfg.TLS.KeyStorePassword,
			ServerName:         cfg.TLS.ServerName,
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		},
	}
}

func BrokerQueue(cfg config.BrokerConfig) broker.QueueRef {
	return broker.QueueRef{
		Name:    cfg.QueueName,
		Declare: cfg.DeclareQueue,
		Durable: cfg.DurableQueue,
	}
}

func BrokerManagement(cfg config.ManagementConfig) broker.ManagementConfig {
	return broker.ManagementConfig{
		URL:      cfg.URL,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
		Retries:  cfg.Retries,
	}
}

// NewBrokerConnectionFactory builds the AMQP connection factory over a live config source.
func NewBrokerConnectionFactory(source BrokerConfigSource, opts ...broker.Option) *broker.AMQPConnectionFactory {
	return broker.NewAMQPConnectionFactory(func() broker.Endpoint {
		return BrokerEndpoint(source())
	}, opts...)
}

var ErrInvalidBrokerConfig = errors.New("invalid broker configuration")

// ValidateBrokerConfig checks that a connection factory can be built from cfg,
// including loading the TLS stores when configured.
func ValidateBrokerConfig(cfg config.BrokerConfig) error {
	switch {
	case cfg.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalidBrokerConfig)
	case cfg.Port <= 0 || cfg.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidBrokerConfig, cfg.Port)
	case cfg.QueueName == "":
		return fmt.Errorf("%w: queue name is required", ErrInvalidBrokerConfig)
	}

	endpoint := BrokerEndpoint(cfg)
	if endpoint.TLS.Enabled() {
		if _, err := broker.LoadTLSConfig(endpoint.TLS); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBrokerConfig, err)
		}
	}

	return nil
}

// SenderCircuitBreaker maps the producer circuit breaker config onto gobreaker settings.
func SenderCircuitBreaker(name string, cfg config.CircuitBreakerConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
}
