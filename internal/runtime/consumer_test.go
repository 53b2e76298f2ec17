package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/architeacher/svc-broker-link/internal/config"
	"github.com/architeacher/svc-broker-link/internal/infrastructure"
	"github.com/architeacher/svc-broker-link/internal/service"
	"github.com/architeacher/svc-broker-link/internal/usecases"
	"github.com/architeacher/svc-broker-link/pkg/broker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type (
	mockSession struct {
		mock.Mock
	}

	staticSession struct {
		session broker.Channel
	}

	countingAcknowledger struct {
		mu    sync.Mutex
		acks  []uint64
		nacks []uint64
	}
)

func (m *mockSession) Close() error   { return m.Called().Error(0) }
func (m *mockSession) IsClosed() bool { return m.Called().Bool(0) }

func (m *mockSession) Qos(prefetchCount, prefetchSize int, global bool) error {
	return m.Called(prefetchCount, prefetchSize, global).Error(0)
}

func (m *mockSession) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, table amqp.Table) (amqp.Queue, error) {
	args := m.Called(name, durable, autoDelete, exclusive, noWait, table)

	return args.Get(0).(amqp.Queue), args.Error(1)
}

func (m *mockSession) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, table amqp.Table) (amqp.Queue, error) {
	args := m.Called(name, durable, autoDelete, exclusive, noWait, table)

	return args.Get(0).(amqp.Queue), args.Error(1)
}

func (m *mockSession) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, table amqp.Table) (<-chan amqp.Delivery, error) {
	args := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, table)
	deliveries, _ := args.Get(0).(<-chan amqp.Delivery)

	return deliveries, args.Error(1)
}

func (m *mockSession) Cancel(consumer string, noWait bool) error {
	return m.Called(consumer, noWait).Error(0)
}

func (m *mockSession) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}

func (s staticSession) Session() (broker.Channel, error) {
	return s.session, nil
}

func (a *countingAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.acks = append(a.acks, tag)

	return nil
}

func (a *countingAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nacks = append(a.nacks, tag)

	return nil
}

func (a *countingAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *countingAcknowledger) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.acks), len(a.nacks)
}

func newConsumerTestCtx(t *testing.T, session broker.Channel, workers int) *ConsumerCtx {
	t.Helper()

	logger := infrastructure.NewTestLogger()

	cfg := &config.ServiceConfig{
		Consumer: config.ConsumerConfig{
			Workers:        workers,
			ReceiveTimeout: 20 * time.Millisecond,
			StopSentinel:   "goodbye",
		},
		Backoff: config.BackoffConfig{BaseDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond},
	}

	return &ConsumerCtx{
		deps: &Dependencies{
			cfg:    cfg,
			logger: logger,
			Apps: Applications{
				Subscriber: usecases.NewSubscriberApplication(
					service.NewSubscriberService(cfg.Consumer.StopSentinel, logger),
					logger,
					noop.NewTracerProvider(),
					nopMetricsClient{},
				),
			},
			Broker: BrokerDeps{
				Consumers: broker.NewConsumerFactory(
					staticSession{session: session},
					broker.QueueRef{Name: "data"},
					broker.WithDrainTimeout(10*time.Millisecond),
				),
			},
		},
	}
}

func TestConsumerCtx_BuildWorkersPullFromQueue(t *testing.T) {
	t.Parallel()

	first := make(chan amqp.Delivery, 4)
	second := make(chan amqp.Delivery, 4)

	session := &mockSession{}
	session.On("QueueDeclarePassive", "data", false, false, false, false, mock.Anything).Return(amqp.Queue{Name: "data"}, nil)
	session.On("Consume", "data", mock.Anything, false, false, false, false, mock.Anything).
		Return((<-chan amqp.Delivery)(first), nil).Once()
	session.On("Consume", "data", mock.Anything, false, false, false, false, mock.Anything).
		Return((<-chan amqp.Delivery)(second), nil).Once()
	session.On("Cancel", mock.Anything, false).Return(nil)

	cCtx := newConsumerTestCtx(t, session, 2)

	workers, err := cCtx.buildWorkers(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 2)

	session.AssertNumberOfCalls(t, "Consume", 2)

	ack := &countingAcknowledger{}
	for tag, body := range []string{"hello", " GOODBYE ", "left behind"} {
		first <- amqp.Delivery{
			Acknowledger: ack,
			DeliveryTag:  uint64(tag + 1),
			ContentType:  "text/plain",
			MessageId:    body,
			Body:         []byte(body),
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- workers[0].worker.run(context.Background(), workers[0].consumer)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on the goodbye message")
	}

	acked, nacked := ack.counts()
	assert.Equal(t, 2, acked)
	assert.Equal(t, 1, nacked)

	require.NoError(t, workers[1].consumer.Close())
	session.AssertNumberOfCalls(t, "Cancel", 2)
}

func TestConsumerCtx_BuildWorkersClosesStartedOnFailure(t *testing.T) {
	t.Parallel()

	session := &mockSession{}
	session.On("QueueDeclarePassive", "data", false, false, false, false, mock.Anything).Return(amqp.Queue{Name: "data"}, nil)
	session.On("Consume", "data", mock.Anything, false, false, false, false, mock.Anything).
		Return((<-chan amqp.Delivery)(make(chan amqp.Delivery)), nil).Once()
	session.On("Consume", "data", mock.Anything, false, false, false, false, mock.Anything).
		Return(nil, amqp.ErrClosed).Once()
	session.On("Cancel", mock.Anything, false).Return(nil)

	workers, err := newConsumerTestCtx(t, session, 2).buildWorkers(context.Background())
	require.ErrorIs(t, err, amqp.ErrClosed)
	assert.Nil(t, workers)

	session.AssertNumberOfCalls(t, "Cancel", 1)
}
