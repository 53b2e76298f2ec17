package domain

import "time"

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

type (
	// SendResult describes an accepted outbound message.
	SendResult struct {
		MessageID string
		Queue     string
		Payload   string
		SentAt    time.Time
	}

	// DependencyStatus represents the health status of a dependency
	DependencyStatus struct {
		Status       string
		ResponseTime float32
		LastChecked  time.Time
		Error        string
	}

	// HealthResult contains the broker link health
	HealthResult struct {
		OverallStatus string
		Broker        DependencyStatus
		Generation    uint64
		Uptime        float32
	}
)

type (
	// HandleMessageResult is the outcome of handling one consumed message.
	HandleMessageResult struct {
		MessageID string
		Text      bool
		// Stop asks the consuming worker to stop after this message.
		Stop bool
	}
)
