package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/magiconair/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProperties(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "broker.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadProperties_ResolvesEnvironmentReferences(t *testing.T) {
	t.Setenv("PROPS_TEST_HOST", "rabbit.internal")
	t.Setenv("PROPS_TEST_EMPTY", "")

	path := writeProperties(t, `
# broker endpoint
broker.host=${PROPS_TEST_HOST}
broker.username=${PROPS_TEST_UNSET}
broker.password=${PROPS_TEST_EMPTY}
broker.queue.data=prefix-${PROPS_TEST_HOST}
broker.port=5671
`)

	props, err := LoadProperties(path)
	require.NoError(t, err)

	cases := []struct {
		key  string
		want string
	}{
		{key: PropertyHost, want: "rabbit.internal"},
		{key: PropertyUsername, want: "${PROPS_TEST_UNSET}"},
		{key: PropertyPassword, want: ""},
		{key: PropertyQueue, want: "prefix-${PROPS_TEST_HOST}"},
		{key: PropertyPort, want: "5671"},
	}

	for _, tc := range cases {
		value, ok := props.Get(tc.key)
		assert.True(t, ok, tc.key)
		assert.Equal(t, tc.want, value, tc.key)
	}
}

func TestLoadProperties_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadProperties(filepath.Join(t.TempDir(), "missing.properties"))
	require.ErrorIs(t, err, ErrProperties)
}

func TestBrokerConfig_ApplyProperties(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg BrokerConfig)
		wantErr bool
	}{
		{
			name: "full endpoint",
			content: "broker.host=mq\nbroker.port=5671\nbroker.vhost=/prod\nbroker.username=svc\n" +
				"broker.password=pw\nbroker.queue.data=orders\nbroker.ssl.trust-store=/etc/ca.p12\n" +
				"broker.ssl.trust-store-password=changeit\n",
			check: func(t *testing.T, cfg BrokerConfig) {
				assert.Equal(t, "mq", cfg.Host)
				assert.Equal(t, 5671, cfg.Port)
				assert.Equal(t, "/prod", cfg.VirtualHost)
				assert.Equal(t, "svc", cfg.Username)
				assert.Equal(t, "pw", cfg.Password)
				assert.Equal(t, "orders", cfg.QueueName)
				assert.Equal(t, "/etc/ca.p12", cfg.TLS.TrustStore)
				assert.Equal(t, "changeit", cfg.TLS.TrustStorePassword)
			},
		},
		{
			name:    "absent keys keep defaults",
			content: "broker.host=mq\n",
			check: func(t *testing.T, cfg BrokerConfig) {
				assert.Equal(t, "mq", cfg.Host)
				assert.Equal(t, 5672, cfg.Port)
				assert.Equal(t, "data", cfg.QueueName)
			},
		},
		{
			name:    "invalid port",
			content: "broker.port=amqp\n",
			wantErr: true,
		},
		{
			name:    "empty queue",
			content: "broker.queue.data=\n",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			props := properties.MustLoadString(tc.content)
			cfg := BrokerConfig{Host: "rabbitmq", Port: 5672, QueueName: "data"}

			err := cfg.ApplyProperties(props)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrProperties)

				return
			}

			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
