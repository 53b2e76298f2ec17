package infrastructure

import (
	"errors"
	"fmt"

	"github.com/architeacher/svc-broker-link/pkg/broker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "http.method"
	httpPathKey       = "http.path"
	httpStatusCodeKey = "http.status_code"
	statusKey         = "status"
	errorTypeKey      = "error.type"
	queueKey          = "messaging.destination.name"
	healthyKey        = "healthy"
	useCaseEventKey   = "event"
)

func HTTPMethodAttr(method string) attribute.KeyValue {
	return attribute.String(httpMethodKey, method)
}

func HTTPPathAttr(path string) attribute.KeyValue {
	return attribute.String(httpPathKey, path)
}

func HTTPStatusCodeAttr(code int) attribute.KeyValue {
	return attribute.String(httpStatusCodeKey, fmt.Sprintf("%d", code))
}

func StatusAttr(status string) attribute.KeyValue {
	return attribute.String(statusKey, status)
}

func ErrorTypeAttr(errorType string) attribute.KeyValue {
	return attribute.String(errorTypeKey, errorType)
}

func QueueAttr(queue string) attribute.KeyValue {
	return attribute.String(queueKey, queue)
}

func HealthyAttr(healthy bool) attribute.KeyValue {
	return attribute.Bool(healthyKey, healthy)
}

func UseCaseEventAttr(key string) attribute.KeyValue {
	return attribute.String(useCaseEventKey, key)
}

// errorType buckets broker errors into a low-cardinality label.
func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, broker.ErrWaitTimeout):
		return "wait_timeout"
	case errors.Is(err, broker.ErrConsumerClosed):
		return "consumer_closed"
	case errors.Is(err, broker.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, broker.ErrBrokerUnavailable):
		return "broker_unavailable"
	case errors.Is(err, broker.ErrConnectivity):
		return "connectivity"
	case errors.Is(err, broker.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "other"
	}
}
