package broker

import "errors"

var (
	// ErrNotConnected is returned when an operation needs the shared session but the guard holds none.
	ErrNotConnected = errors.New("not connected to broker")

	// ErrBrokerUnavailable is returned when the broker cannot be dialed.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrConnectivity wraps failures while building or tearing down a connection/session pair.
	ErrConnectivity = errors.New("broker connectivity failure")

	// ErrConsumerClosed is returned by Receive once the consumer was closed or its delivery stream ended.
	ErrConsumerClosed = errors.New("consumer closed")

	// ErrPushMode is returned by Receive on a consumer created with a listener.
	ErrPushMode = errors.New("consumer delivers to a listener")

	// ErrWaitTimeout is returned when a batch cycle does not observe all expected deliveries in time.
	ErrWaitTimeout = errors.New("timed out waiting for deliveries")

	// ErrCircuitOpen is returned by the sender while its circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("send circuit open")

	// ErrSchedulerStopped is returned when scheduling on a stopped scheduler.
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrInvalidTLSMaterial is returned when a trust or key store cannot be turned into TLS config.
	ErrInvalidTLSMaterial = errors.New("invalid tls material")
)
