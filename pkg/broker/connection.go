package broker

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of an AMQP channel the package relies on. A channel is
// the session every consumer, probe and publish runs on.
//
//nolint:interfacebloat // mirrors the amqp091-go channel surface we use
type Channel interface {
	io.Closer

	IsClosed() bool
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Connection is a live link to the broker able to open sessions.
type Connection interface {
	io.Closer

	Channel() (Channel, error)
	IsClosed() bool
}

// ConnectionFactory dials new broker connections.
type ConnectionFactory interface {
	CreateConnection(ctx context.Context) (Connection, error)
}

// EndpointProvider returns the endpoint to dial. It is consulted on every dial so
// reloaded credentials are picked up by the next connection.
type EndpointProvider func() Endpoint

type dialFunc func(url string, cfg amqp.Config) (*amqp.Connection, error)

const defaultConnectionTimeout = 30 * time.Second

// AMQPConnectionFactory dials RabbitMQ with amqp091-go.
type AMQPConnectionFactory struct {
	endpoint EndpointProvider
	dial     dialFunc
	logger   Logger
}

// NewAMQPConnectionFactory creates a factory dialing whatever endpoint the provider returns.
func NewAMQPConnectionFactory(endpoint EndpointProvider, opts ...Option) *AMQPConnectionFactory {
	o := newOptions(opts)

	return &AMQPConnectionFactory{
		endpoint: endpoint,
		dial:     amqp.DialConfig,
		logger:   o.logger,
	}
}

// CreateConnection dials the broker. The context bounds the TCP dial; the
// connection timeout bounds the dial and the TLS and AMQP handshakes.
func (f *AMQPConnectionFactory) CreateConnection(ctx context.Context) (Connection, error) {
	endpoint := f.endpoint()

	cfg := amqp.Config{
		Heartbeat:  endpoint.Heartbeat,
		Locale:     "en_US",
		Properties: amqp.NewConnectionProperties(),
		Dial:       handshakeDialer(ctx, endpoint.ConnectionTimeout),
	}

	if endpoint.ConnectionName != "" {
		cfg.Properties.SetClientConnectionName(endpoint.ConnectionName)
	}

	if endpoint.TLS.Enabled() {
		tlsConfig, err := LoadTLSConfig(endpoint.TLS)
		if err != nil {
			return nil, err
		}

		cfg.TLSClientConfig = tlsConfig
	}

	conn, err := f.dial(getURL(endpoint), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s:%d: %w", ErrBrokerUnavailable, endpoint.Host, endpoint.Port, err)
	}

	f.logger.Debug().
		Str("host", endpoint.Host).
		Int("port", endpoint.Port).
		Str("vhost", endpoint.VirtualHost).
		Msg("Dialed broker")

	return &amqpConnection{Connection: conn}, nil
}

// handshakeDialer dials with a deadline covering the handshakes, as
// amqp.DefaultDial does. amqp091-go clears it once the connection is open.
func handshakeDialer(ctx context.Context, timeout time.Duration) func(network, addr string) (net.Conn, error) {
	if timeout <= 0 {
		timeout = defaultConnectionTimeout
	}

	return func(network, addr string) (net.Conn, error) {
		dialer := net.Dialer{Timeout: timeout}

		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		deadline := time.Now().Add(timeout)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}

		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()

			return nil, err
		}

		return conn, nil
	}
}

type amqpConnection struct {
	*amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}

	return ch, nil
}
