package ports

import (
	"context"

	"github.com/architeacher/svc-broker-link/pkg/broker"
)

type (
	// MessageSender publishes outbound text messages.
	MessageSender interface {
		Send(ctx context.Context, payload string) (broker.SendReceipt, error)
	}

	// MessageHandler processes messages consumed from the broker.
	MessageHandler interface {
		HandleMessage(ctx context.Context, msg broker.Message) error
	}

	// BrokerLink exposes the state of the shared broker connection.
	BrokerLink interface {
		Check(ctx context.Context) error
		IsConnected() bool
		Generation() uint64
	}
)
