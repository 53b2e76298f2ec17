package broker

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

type MockConnectionFactory struct {
	mock.Mock
}

func (m *MockConnectionFactory) CreateConnection(ctx context.Context) (Connection, error) {
	args := m.Called(ctx)
	conn, _ := args.Get(0).(Connection)

	return conn, args.Error(1)
}

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockConnection) Channel() (Channel, error) {
	args := m.Called()
	ch, _ := args.Get(0).(Channel)

	return ch, args.Error(1)
}

func (m *MockConnection) IsClosed() bool {
	args := m.Called()

	return args.Bool(0)
}

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockChannel) IsClosed() bool {
	args := m.Called()

	return args.Bool(0)
}

func (m *MockChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	args := m.Called(prefetchCount, prefetchSize, global)

	return args.Error(0)
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, table amqp.Table) (amqp.Queue, error) {
	args := m.Called(name, durable, autoDelete, exclusive, noWait, table)

	return args.Get(0).(amqp.Queue), args.Error(1)
}

func (m *MockChannel) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, table amqp.Table) (amqp.Queue, error) {
	args := m.Called(name, durable, autoDelete, exclusive, noWait, table)

	return args.Get(0).(amqp.Queue), args.Error(1)
}

func (m *MockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, table amqp.Table) (<-chan amqp.Delivery, error) {
	args := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, table)
	deliveries, _ := args.Get(0).(<-chan amqp.Delivery)

	return deliveries, args.Error(1)
}

func (m *MockChannel) Cancel(consumer string, noWait bool) error {
	args := m.Called(consumer, noWait)

	return args.Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)

	return args.Error(0)
}

// healthyPair wires a connection and session that accept every call a guard makes.
func healthyPair() (*MockConnection, *MockChannel) {
	conn := &MockConnection{}
	session := &MockChannel{}

	conn.On("Channel").Return(session, nil)
	conn.On("IsClosed").Return(false)
	conn.On("Close").Return(nil)

	session.On("Qos", mock.Anything, 0, false).Return(nil)
	session.On("IsClosed").Return(false)
	session.On("Close").Return(nil)
	session.On("QueueDeclarePassive", mock.Anything, mock.Anything, false, false, false, mock.Anything).
		Return(amqp.Queue{}, nil)

	return conn, session
}

// fakeAcknowledger records acknowledgements of test deliveries.
type fakeAcknowledger struct {
	mu       sync.Mutex
	acks     []uint64
	nacks    []uint64
	requeues []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.acks = append(f.acks, tag)

	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nacks = append(f.nacks, tag)
	f.requeues = append(f.requeues, requeue)

	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) counts() (acked, nacked int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.acks), len(f.nacks)
}

func (f *fakeAcknowledger) acked() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]uint64(nil), f.acks...)
}

func (f *fakeAcknowledger) requeued() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]bool(nil), f.requeues...)
}

func textDelivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		ContentType:  contentTypeText,
		MessageId:    body,
		Body:         []byte(body),
	}
}

type staticSessions struct {
	session Channel
	err     error
}

func (s staticSessions) Session() (Channel, error) {
	return s.session, s.err
}
