package broker

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	schemeAMQP  = "amqp"
	schemeAMQPS = "amqps"
)

// Endpoint is used to establish a connection with the broker.
type Endpoint struct {
	Scheme            string
	Username          string
	Password          string
	Host              string
	Port              int
	VirtualHost       string
	ConnectionName    string
	ConnectionTimeout time.Duration
	Heartbeat         time.Duration
	TLS               TLSMaterial
}

// QueueRef names the queue the guard, consumers, probes and sender operate on.
type QueueRef struct {
	Name string
	// Declare creates the queue when missing; otherwise it is only inspected passively.
	Declare bool
	Durable bool
}

func getURL(endpoint Endpoint) string {
	scheme := endpoint.Scheme
	if scheme == "" {
		scheme = schemeAMQP
	}

	if endpoint.TLS.Enabled() && scheme == schemeAMQP {
		scheme = schemeAMQPS
	}

	uri := amqp.URI{
		Scheme:   scheme,
		Username: endpoint.Username,
		Password: endpoint.Password,
		Host:     endpoint.Host,
		Port:     endpoint.Port,
		Vhost:    endpoint.VirtualHost,
	}

	return uri.String()
}
