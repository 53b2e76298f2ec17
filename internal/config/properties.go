package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

// Broker property keys understood by ApplyProperties.
const (
	PropertyScheme             = "broker.scheme"
	PropertyHost               = "broker.host"
	PropertyPort               = "broker.port"
	PropertyVirtualHost        = "broker.vhost"
	PropertyUsername           = "broker.username"
	PropertyPassword           = "broker.password"
	PropertyQueue              = "broker.queue.data"
	PropertyTrustStore         = "broker.ssl.trust-store"
	PropertyTrustStorePassword = "broker.ssl.trust-store-password"
	PropertyKeyStore           = "broker.ssl.key-store"
	PropertyKeyStorePassword   = "broker.ssl.key-store-password"
)

// ErrProperties marks failures reading or applying the broker properties file.
var ErrProperties = errors.New("broker properties")

// LoadProperties reads a Java style properties file. Values written as ${NAME}
// are replaced by the NAME environment variable; unset variables leave the
// value as written.
func LoadProperties(path string) (*properties.Properties, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}

	props, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to load file %s: %w", ErrProperties, path, err)
	}

	for _, key := range props.Keys() {
		value, _ := props.Get(key)

		resolved, ok := resolveEnvReference(value)
		if !ok {
			continue
		}

		if _, _, err := props.Set(key, resolved); err != nil {
			return nil, fmt.Errorf("%w: unable to resolve %s: %w", ErrProperties, key, err)
		}
	}

	return props, nil
}

func resolveEnvReference(value string) (string, bool) {
	if len(value) < 4 || !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value, false
	}

	resolved, ok := os.LookupEnv(value[2 : len(value)-1])
	if !ok {
		return value, false
	}

	return resolved, true
}

// ApplyProperties overlays the broker settings present in props.
func (c *BrokerConfig) ApplyProperties(props *properties.Properties) error {
	strFields := map[string]*string{
		PropertyScheme:             &c.Scheme,
		PropertyHost:               &c.Host,
		PropertyVirtualHost:        &c.VirtualHost,
		PropertyUsername:           &c.Username,
		PropertyPassword:           &c.Password,
		PropertyQueue:              &c.QueueName,
		PropertyTrustStore:         &c.TLS.TrustStore,
		PropertyTrustStorePassword: &c.TLS.TrustStorePassword,
		PropertyKeyStore:           &c.TLS.KeyStore,
		PropertyKeyStorePassword:   &c.TLS.KeyStorePassword,
	}

	for key, field := range strFields {
		if value, ok := props.Get(key); ok {
			*field = strings.TrimSpace(value)
		}
	}

	if value, ok := props.Get(PropertyPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %w", ErrProperties, PropertyPort, value, err)
		}

		c.Port = port
	}

	if c.QueueName == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrProperties, PropertyQueue)
	}

	return nil
}
