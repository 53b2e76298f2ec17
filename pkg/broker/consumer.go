package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Listener handles one pushed delivery. Returning nil acknowledges it; an error
// negatively acknowledges it, requeueing on first delivery only.
type Listener func(ctx context.Context, msg Message) error

// SessionProvider hands out the shared session.
type SessionProvider interface {
	Session() (Channel, error)
}

// ConsumerCreator creates consumers on a queue.
type ConsumerCreator interface {
	CreateConsumer(ctx context.Context, async bool, listener Listener) (*Consumer, error)
}

// ConsumerFactory creates consumers for one queue on the guard's shared session.
// It is safe for concurrent use.
type ConsumerFactory struct {
	sessions     SessionProvider
	queue        QueueRef
	logger       Logger
	recorder     Recorder
	tagPrefix    string
	drainTimeout time.Duration
}

// NewConsumerFactory creates a factory. The provider is usually a *Guard.
func NewConsumerFactory(sessions SessionProvider, queue QueueRef, opts ...Option) *ConsumerFactory {
	o := newOptions(opts)

	return &ConsumerFactory{
		sessions:     sessions,
		queue:        queue,
		logger:       o.logger,
		recorder:     o.recorder,
		tagPrefix:    o.consumerTagPrefix,
		drainTimeout: o.drainTimeout,
	}
}

// CreateConsumer resolves the queue and subscribes to it with manual
// acknowledgement. With async set the consumer is pulled through Receive and
// each delivery is acknowledged as Receive hands it out. Otherwise every delivery is pushed to listener on a goroutine owned
// by the consumer until Close.
func (f *ConsumerFactory) CreateConsumer(ctx context.Context, async bool, listener Listener) (*Consumer, error) {
	if !async && listener == nil {
		return nil, errors.New("push consumer requires a listener")
	}

	session, err := f.sessions.Session()
	if err != nil {
		return nil, err
	}

	if err := f.resolveQueue(session); err != nil {
		return nil, err
	}

	tag := fmt.Sprintf("%s-%s", f.tagPrefix, uuid.NewString())

	deliveries, err := session.Consume(f.queue.Name, tag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", f.queue.Name, err)
	}

	consumerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c := &Consumer{
		session:      session,
		queue:        f.queue.Name,
		tag:          tag,
		deliveries:   deliveries,
		push:         !async,
		ctx:          consumerCtx,
		cancel:       cancel,
		done:         make(chan struct{}),
		logger:       f.logger,
		recorder:     f.recorder,
		drainTimeout: f.drainTimeout,
	}

	if c.push {
		go c.dispatch(listener)
	}

	f.logger.Debug().Str("queue", f.queue.Name).Str("consumer_tag", tag).Msg("Consumer created")

	return c, nil
}

func (f *ConsumerFactory) resolveQueue(session Channel) error {
	if f.queue.Declare {
		if _, err := session.QueueDeclare(f.queue.Name, f.queue.Durable, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", f.queue.Name, err)
		}

		return nil
	}

	if _, err := session.QueueDeclarePassive(f.queue.Name, f.queue.Durable, false, false, false, nil); err != nil {
		return fmt.Errorf("resolve queue %s: %w", f.queue.Name, err)
	}

	return nil
}

// Consumer is a subscription on the shared session.
type Consumer struct {
	session      Channel
	queue        string
	tag          string
	deliveries   <-chan amqp.Delivery
	push         bool
	ctx          context.Context
	cancel       context.CancelFunc
	logger       Logger
	recorder     Recorder
	drainTimeout time.Duration

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Tag returns the broker consumer tag.
func (c *Consumer) Tag() string {
	return c.tag
}

// Queue returns the queue name.
func (c *Consumer) Queue() string {
	return c.queue
}

// Done is closed once the consumer stops delivering, either through Close or
// because the broker ended the delivery stream.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Receive blocks for the next delivery of a pull consumer.
func (c *Consumer) Receive(ctx context.Context) (Message, error) {
	if c.push {
		return Message{}, ErrPushMode
	}

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.ctx.Done():
		return Message{}, ErrConsumerClosed
	case d, ok := <-c.deliveries:
		if !ok {
			c.markDone()

			return Message{}, ErrConsumerClosed
		}

		msg := newMessage(d, c.queue)

		if err := msg.ack(); err != nil {
			c.recorder.RecordMessageConsumed(ctx, c.queue, false)

			return Message{}, fmt.Errorf("ack message %s: %w", msg.ID, err)
		}

		c.recorder.RecordMessageConsumed(ctx, c.queue, true)

		return msg, nil
	}
}

// Close cancels the subscription. It is safe to call more than once and on a nil consumer.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		c.cancel()

		if err := c.session.Cancel(c.tag, false); err != nil && !errors.Is(err, amqp.ErrClosed) {
			c.closeErr = fmt.Errorf("cancel consumer %s: %w", c.tag, err)
		}

		if !c.push {
			c.drain()
			c.markDone()
		}

		c.logger.Debug().Str("queue", c.queue).Str("consumer_tag", c.tag).Msg("Consumer closed")
	})

	return c.closeErr
}

func (c *Consumer) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Consumer) dispatch(listener Listener) {
	defer c.markDone()

	for {
		select {
		case <-c.ctx.Done():
			c.drain()

			return
		case d, ok := <-c.deliveries:
			if !ok {
				return
			}

			c.handle(listener, newMessage(d, c.queue))
		}
	}
}

func (c *Consumer) handle(listener Listener, msg Message) {
	if err := c.invoke(listener, msg); err != nil {
		requeue := !msg.Redelivered

		c.logger.Error().
			Err(err).
			Str("queue", c.queue).
			Str("message_id", msg.ID).
			Str("requeue", fmt.Sprint(requeue)).
			Msg("Listener failed to handle message")

		if nackErr := msg.nack(requeue); nackErr != nil {
			c.logger.Error().Err(nackErr).Str("message_id", msg.ID).Msg("Failed to nack message")
		}

		c.recorder.RecordMessageConsumed(c.ctx, c.queue, false)

		return
	}

	if err := msg.ack(); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to ack message")
	}

	c.recorder.RecordMessageConsumed(c.ctx, c.queue, true)
}

func (c *Consumer) invoke(listener Listener, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()

	return listener(c.ctx, msg)
}

// drain hands deliveries still buffered after cancellation back to the queue.
// It returns once the stream ends or the drain timeout elapses.
func (c *Consumer) drain() {
	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return
		case d, ok := <-c.deliveries:
			if !ok {
				return
			}

			if err := d.Nack(false, true); err != nil {
				c.logger.Debug().Err(err).Str("message_id", d.MessageId).Msg("Failed to requeue undelivered message")
			}
		}
	}
}
