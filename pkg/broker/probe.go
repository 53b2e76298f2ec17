package broker

import (
	"context"
	"fmt"
)

// DepthProbe reports how many messages are ready on a queue right now.
type DepthProbe interface {
	Depth(ctx context.Context) (int, error)
}

// SessionProbe reads the depth with a passive declare on the shared session.
// The broker answers with a single point-in-time count.
type SessionProbe struct {
	sessions SessionProvider
	queue    QueueRef
}

// NewSessionProbe creates a probe on the given provider, usually a *Guard.
func NewSessionProbe(sessions SessionProvider, queue QueueRef) *SessionProbe {
	return &SessionProbe{sessions: sessions, queue: queue}
}

// Depth returns the number of ready messages.
func (p *SessionProbe) Depth(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	session, err := p.sessions.Session()
	if err != nil {
		return 0, err
	}

	q, err := session.QueueDeclarePassive(p.queue.Name, p.queue.Durable, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("inspect queue %s: %w", p.queue.Name, err)
	}

	return q.Messages, nil
}
