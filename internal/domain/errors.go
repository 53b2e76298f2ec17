package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidMessage      = errors.New("invalid message")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrBrokerUnavailable   = errors.New("broker unavailable")
	ErrInternalServerError = errors.New("internal server error")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker open")
)

type (
	DomainError struct {
		Code       string
		Message    string
		StatusCode int
		Cause      error
		Details    map[string]any
	}
)

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}

	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func NewDomainError(code, message string, statusCode int, cause error) *DomainError {
	return &DomainError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
		Details:    make(map[string]any),
	}
}

func (e *DomainError) WithDetails(key string, value any) *DomainError {
	e.Details[key] = value

	return e
}

func NewInvalidMessageError(reason string) *DomainError {
	return NewDomainError(
		"INVALID_MESSAGE",
		fmt.Sprintf("Invalid message: %s", reason),
		http.StatusBadRequest,
		ErrInvalidMessage,
	)
}

func NewInvalidRequestError(message string) *DomainError {
	return NewDomainError(
		"INVALID_REQUEST",
		message,
		http.StatusBadRequest,
		ErrInvalidRequest,
	)
}

// NewSendFailedError keeps the caller facing message stable whatever the cause.
func NewSendFailedError(queue string, cause error) *DomainError {
	return NewDomainError(
		"SEND_FAILED",
		"Failed to send message",
		http.StatusInternalServerError,
		cause,
	).WithDetails("queue", queue)
}

func NewBrokerUnavailableError(queue string, cause error) *DomainError {
	return NewDomainError(
		"BROKER_UNAVAILABLE",
		"Failed to send message",
		http.StatusServiceUnavailable,
		errors.Join(ErrCircuitBreakerOpen, cause),
	).WithDetails("queue", queue)
}

func NewRateLimitError(message string) *DomainError {
	return NewDomainError(
		"RATE_LIMITING_EXCEEDED",
		message,
		http.StatusTooManyRequests,
		ErrRateLimitExceeded,
	)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewDomainError(
		"UNAUTHORIZED",
		message,
		http.StatusUnauthorized,
		ErrUnauthorized,
	)
}

func NewInternalServerError(message string, cause error) *DomainError {
	return NewDomainError(
		"INTERNAL_SERVER_ERROR",
		message,
		http.StatusInternalServerError,
		cause,
	)
}
