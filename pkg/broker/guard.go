package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type handle struct {
	conn       Connection
	session    Channel
	generation uint64
	since      time.Time
}

// Guard owns the single shared connection and session of the process. Readers
// take the fast path through an atomic pointer; creation, validation and
// cleanup serialize on one mutex.
type Guard struct {
	factory            ConnectionFactory
	queue              QueueRef
	logger             Logger
	recorder           Recorder
	prefetch           int
	validationInterval time.Duration
	scheduler          *Scheduler
	ownsScheduler      bool

	mu         sync.Mutex
	current    atomic.Pointer[handle]
	generation uint64
	released   bool
	startOnce  sync.Once
}

// NewGuard creates a guard for the given queue. Nothing is dialed until Start or Establish.
func NewGuard(factory ConnectionFactory, queue QueueRef, opts ...Option) *Guard {
	o := newOptions(opts)

	g := &Guard{
		factory:            factory,
		queue:              queue,
		logger:             o.logger,
		recorder:           o.recorder,
		prefetch:           o.prefetch,
		validationInterval: o.validationInterval,
		scheduler:          o.scheduler,
	}

	if g.scheduler == nil {
		g.scheduler = NewScheduler(o.logger)
		g.ownsScheduler = true
	}

	return g
}

// Start establishes the connection and registers periodic validation. It runs
// once per guard; a failed initial dial is logged and left to validation.
func (g *Guard) Start(ctx context.Context) error {
	var err error

	g.startOnce.Do(func() {
		if err = g.Establish(ctx); err != nil {
			g.logger.Error().Err(err).Str("queue", g.queue.Name).Msg("Initial broker connection failed, validation will retry")
		}

		if scheduleErr := g.scheduler.Schedule("connection-validation", g.validationInterval, g.validationInterval, g.Validate); scheduleErr != nil {
			err = errors.Join(err, scheduleErr)

			return
		}

		if g.ownsScheduler {
			g.scheduler.Start()
		}
	})

	return err
}

// Establish creates the connection and session if none is held. Concurrent
// callers share the single result.
func (g *Guard) Establish(ctx context.Context) error {
	if g.current.Load() != nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.released = false

	return g.establishLocked(ctx)
}

// Validate checks the held pair and rebuilds it when absent or dead. After
// Cleanup it does nothing until the next explicit Establish.
func (g *Guard) Validate(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := g.current.Load()

	switch {
	case h != nil:
		err := g.verify(h)
		g.recorder.RecordValidation(ctx, err == nil)

		if err == nil {
			g.logger.Debug().Str("queue", g.queue.Name).Msg("Broker connection is healthy")

			return nil
		}

		g.logger.Warn().Err(err).Int("generation", int(h.generation)).Msg("Broker connection failed validation, reconnecting")
	case g.released:
		g.logger.Debug().Msg("Broker connection released, skipping validation")

		return nil
	default:
		g.recorder.RecordValidation(ctx, false)
		g.logger.Warn().Msg("No broker connection held, reconnecting")
	}

	g.recorder.RecordReconnect(ctx)

	if err := g.teardownLocked(); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to release dead broker connection")
	}

	return g.establishLocked(ctx)
}

// Cleanup closes the session, then the connection, then stops an owned
// scheduler. Close failures are logged and returned joined; the guard ends
// empty regardless. A later Establish builds a fresh pair.
func (g *Guard) Cleanup() error {
	g.mu.Lock()
	err := g.teardownLocked()
	g.released = true
	g.mu.Unlock()

	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to close broker resources")
	}

	if g.ownsScheduler {
		g.scheduler.Stop()
	}

	return err
}

// Session returns the shared session, or ErrNotConnected.
func (g *Guard) Session() (Channel, error) {
	h := g.current.Load()
	if h == nil {
		return nil, ErrNotConnected
	}

	return h.session, nil
}

// IsConnected reports whether a pair is held and neither side reports closed.
func (g *Guard) IsConnected() bool {
	h := g.current.Load()

	return h != nil && !h.conn.IsClosed() && !h.session.IsClosed()
}

// Generation counts how many pairs this guard has built. It changes on every rebuild.
func (g *Guard) Generation() uint64 {
	h := g.current.Load()
	if h == nil {
		return 0
	}

	return h.generation
}

// Queue returns the queue the guard was created for.
func (g *Guard) Queue() QueueRef {
	return g.queue
}

// Scheduler returns the scheduler validation runs on, so other periodic work can share its worker.
func (g *Guard) Scheduler() *Scheduler {
	return g.scheduler
}

// Check reports the liveness of the held pair without rebuilding it. A check
// still running when ctx ends is abandoned and ctx.Err() is returned.
func (g *Guard) Check(ctx context.Context) error {
	h := g.current.Load()
	if h == nil {
		return ErrNotConnected
	}

	result := make(chan error, 1)

	go func() {
		result <- g.verify(h)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("health check: %w", ctx.Err())
	}
}

func (g *Guard) establishLocked(ctx context.Context) error {
	if g.current.Load() != nil {
		return nil
	}

	conn, err := g.factory.CreateConnection(ctx)
	if err != nil {
		g.recorder.RecordConnectionAttempt(ctx, false)

		return fmt.Errorf("%w: create connection: %w", ErrConnectivity, err)
	}

	session, err := g.openSession(conn)
	if err != nil {
		g.recorder.RecordConnectionAttempt(ctx, false)

		if closeErr := conn.Close(); closeErr != nil && !errors.Is(closeErr, amqp.ErrClosed) {
			g.logger.Warn().Err(closeErr).Msg("Failed to close connection after session failure")
		}

		return fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	g.generation++
	g.current.Store(&handle{
		conn:       conn,
		session:    session,
		generation: g.generation,
		since:      time.Now(),
	})
	g.recorder.RecordConnectionAttempt(ctx, true)

	g.logger.Info().
		Str("queue", g.queue.Name).
		Int("generation", int(g.generation)).
		Msg("Successfully connected to broker")

	return nil
}

func (g *Guard) openSession(conn Connection) (Channel, error) {
	session, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	if err := session.Qos(g.prefetch, 0, false); err != nil {
		_ = session.Close()

		return nil, fmt.Errorf("start session: %w", err)
	}

	if g.queue.Declare {
		if _, err := session.QueueDeclare(g.queue.Name, g.queue.Durable, false, false, false, nil); err != nil {
			_ = session.Close()

			return nil, fmt.Errorf("declare queue %s: %w", g.queue.Name, err)
		}
	}

	return session, nil
}

// verify is the identity check: both sides open and a passive round trip answered.
func (g *Guard) verify(h *handle) error {
	if h.conn.IsClosed() {
		return fmt.Errorf("connection closed: %w", amqp.ErrClosed)
	}

	if h.session.IsClosed() {
		return fmt.Errorf("session closed: %w", amqp.ErrClosed)
	}

	if g.queue.Name == "" {
		return nil
	}

	if _, err := h.session.QueueDeclarePassive(g.queue.Name, g.queue.Durable, false, false, false, nil); err != nil {
		return fmt.Errorf("inspect queue %s: %w", g.queue.Name, err)
	}

	return nil
}

func (g *Guard) teardownLocked() error {
	h := g.current.Swap(nil)
	if h == nil {
		return nil
	}

	var errs []error

	if err := h.session.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}

	if err := h.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}

	g.logger.Info().
		Int("generation", int(h.generation)).
		Dur("uptime", time.Since(h.since)).
		Msg("Released broker connection")

	return errors.Join(errs...)
}
