package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerEndpoint(t *testing.T) {
	t.Parallel()

	cfg := config.BrokerConfig{
		Scheme:         "amqp",
		Host:           "broker.internal",
		Port:           5671,
		Username:       "svc",
		Password:       "secret",
		VirtualHost:    "orders",
		QueueName:      "data",
		DeclareQueue:   true,
		DurableQueue:   true,
		ConnectionName: "svc-broker-link",
		ConnectTimeout: 5 * time.Second,
		Heartbeat:      10 * time.Second,
		TLS: config.BrokerTLSConfig{
			TrustStore:         "/etc/ssl/trust.p12",
			TrustStorePassword: "trust-pass",
			KeyStore:           "/etc/ssl/key.p12",
			KeyStorePassword:   "key-pass",
		},
	}

	endpoint := BrokerEndpoint(cfg)

	assert.Equal(t, "broker.internal", endpoint.Host)
	assert.Equal(t, 5671, endpoint.Port)
	assert.Equal(t, "orders", endpoint.VirtualHost)
	assert.Equal(t, 5*time.Second, endpoint.ConnectionTimeout)
	assert.True(t, endpoint.TLS.Enabled())
	assert.Equal(t, "key-pass", endpoint.TLS.KeyStorePassword)

	queue := BrokerQueue(cfg)

	assert.Equal(t, "data", queue.Name)
	assert.True(t, queue.Declare)
	assert.True(t, queue.Durable)
}

func TestSenderCircuitBreaker_ReadyToTrip(t *testing.T) {
	t.Parallel()

	settings := SenderCircuitBreaker("sender", config.CircuitBreakerConfig{
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	})

	cases := []struct {
		name     string
		counts   gobreaker.Counts
		expected bool
	}{
		{name: "too few requests", counts: gobreaker.Counts{Requests: 2, TotalFailures: 2}, expected: false},
		{name: "low failure ratio", counts: gobreaker.Counts{Requests: 10, TotalFailures: 5}, expected: false},
		{name: "trips", counts: gobreaker.Counts{Requests: 5, TotalFailures: 3}, expected: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, settings.ReadyToTrip(tc.counts))
		})
	}
}

func TestValidateBrokerConfig(t *testing.T) {
	t.Parallel()

	valid := config.BrokerConfig{Host: "rabbitmq", Port: 5672, QueueName: "data"}
	missingStore := filepath.Join(t.TempDir(), "missing.p12")

	cases := []struct {
		name        string
		mutate      func(cfg *config.BrokerConfig)
		expectError bool
	}{
		{name: "valid plain config", mutate: func(*config.BrokerConfig) {}},
		{name: "missing host", mutate: func(cfg *config.BrokerConfig) { cfg.Host = "" }, expectError: true},
		{name: "port out of range", mutate: func(cfg *config.BrokerConfig) { cfg.Port = 70000 }, expectError: true},
		{name: "missing queue", mutate: func(cfg *config.BrokerConfig) { cfg.QueueName = "" }, expectError: true},
		{
			name: "unreadable trust store",
			mutate: func(cfg *config.BrokerConfig) {
				cfg.TLS.TrustStore = missingStore
			},
			expectError: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tc.mutate(&cfg)

			err := ValidateBrokerConfig(cfg)

			if tc.expectError {
				require.ErrorIs(t, err, ErrInvalidBrokerConfig)

				return
			}

			require.NoError(t, err)
		})
	}
}
