package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGuard_EstablishConcurrently(t *testing.T) {
	t.Parallel()

	conn, session := healthyPair()

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).
		After(20*time.Millisecond).
		Return(conn, nil).
		Once()

	guard := NewGuard(factory, QueueRef{Name: "data"})

	const callers = 16

	var wg sync.WaitGroup

	errs := make(chan error, callers)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- guard.Establish(context.Background())
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	factory.AssertNumberOfCalls(t, "CreateConnection", 1)
	conn.AssertNumberOfCalls(t, "Channel", 1)
	session.AssertNumberOfCalls(t, "Qos", 1)
	assert.True(t, guard.IsConnected())
	assert.Equal(t, uint64(1), guard.Generation())
}

func TestGuard_CleanupThenEstablish(t *testing.T) {
	t.Parallel()

	firstConn, firstSession := healthyPair()
	secondConn, secondSession := healthyPair()

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(firstConn, nil).Once()
	factory.On("CreateConnection", mock.Anything).Return(secondConn, nil).Once()

	guard := NewGuard(factory, QueueRef{Name: "data"})
	ctx := context.Background()

	require.NoError(t, guard.Establish(ctx))

	session, err := guard.Session()
	require.NoError(t, err)
	assert.Same(t, firstSession, session)

	require.NoError(t, guard.Cleanup())

	_, err = guard.Session()
	require.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, guard.IsConnected())

	require.NoError(t, guard.Establish(ctx))

	session, err = guard.Session()
	require.NoError(t, err)
	assert.Same(t, secondSession, session)
	assert.Equal(t, uint64(2), guard.Generation())

	firstSession.AssertNumberOfCalls(t, "Close", 1)
	firstConn.AssertNumberOfCalls(t, "Close", 1)
	secondConn.AssertNotCalled(t, "Close")
}

func TestGuard_CleanupOrder(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)

	record := func(step string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()

			order = append(order, step)
		}
	}

	conn := &MockConnection{}
	session := &MockChannel{}

	conn.On("Channel").Return(session, nil)
	conn.On("Close").Run(record("connection")).Return(nil)
	session.On("Qos", mock.Anything, 0, false).Return(nil)
	session.On("Close").Run(record("session")).Return(nil)

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(conn, nil)

	scheduler := NewScheduler(nil)
	guard := NewGuard(factory, QueueRef{Name: "data"}, WithScheduler(scheduler))

	require.NoError(t, guard.Establish(context.Background()))

	scheduler.Start()
	t.Cleanup(scheduler.Stop)

	require.NoError(t, guard.Cleanup())

	assert.Equal(t, []string{"session", "connection"}, order)
	assert.True(t, scheduler.Running(), "an external scheduler is left running")
}

func TestGuard_CleanupReportsCloseFailures(t *testing.T) {
	t.Parallel()

	conn := &MockConnection{}
	session := &MockChannel{}

	conn.On("Channel").Return(session, nil)
	conn.On("Close").Return(nil)
	session.On("Qos", mock.Anything, 0, false).Return(nil)
	session.On("Close").Return(errors.New("session close refused"))

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(conn, nil)

	guard := NewGuard(factory, QueueRef{Name: "data"})
	require.NoError(t, guard.Establish(context.Background()))

	err := guard.Cleanup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close session")

	conn.AssertNumberOfCalls(t, "Close", 1)
	assert.False(t, guard.IsConnected())

	require.NoError(t, guard.Cleanup())
	session.AssertNumberOfCalls(t, "Close", 1)
	conn.AssertNumberOfCalls(t, "Close", 1)
}

func TestGuard_EstablishFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(factory *MockConnectionFactory)
		assertions func(t *testing.T, factory *MockConnectionFactory)
	}{
		{
			name: "dial failure",
			setup: func(factory *MockConnectionFactory) {
				factory.On("CreateConnection", mock.Anything).Return(nil, ErrBrokerUnavailable)
			},
			assertions: func(t *testing.T, _ *MockConnectionFactory) {},
		},
		{
			name: "session failure closes the connection",
			setup: func(factory *MockConnectionFactory) {
				conn := &MockConnection{}
				conn.On("Channel").Return(nil, errors.New("channel refused"))
				conn.On("Close").Return(nil)

				factory.On("CreateConnection", mock.Anything).Return(conn, nil)
			},
			assertions: func(t *testing.T, factory *MockConnectionFactory) {
				conn := factory.Calls[0].ReturnArguments.Get(0).(*MockConnection)
				conn.AssertNumberOfCalls(t, "Close", 1)
			},
		},
		{
			name: "start failure closes session and connection",
			setup: func(factory *MockConnectionFactory) {
				conn := &MockConnection{}
				session := &MockChannel{}

				conn.On("Channel").Return(session, nil)
				conn.On("Close").Return(nil)
				session.On("Qos", mock.Anything, 0, false).Return(errors.New("qos refused"))
				session.On("Close").Return(nil)

				factory.On("CreateConnection", mock.Anything).Return(conn, nil)
			},
			assertions: func(t *testing.T, factory *MockConnectionFactory) {
				conn := factory.Calls[0].ReturnArguments.Get(0).(*MockConnection)
				conn.AssertNumberOfCalls(t, "Close", 1)

				session := conn.Calls[0].ReturnArguments.Get(0).(*MockChannel)
				session.AssertNumberOfCalls(t, "Close", 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			factory := &MockConnectionFactory{}
			tt.setup(factory)

			guard := NewGuard(factory, QueueRef{Name: "data"})

			err := guard.Establish(context.Background())
			require.ErrorIs(t, err, ErrConnectivity)

			_, err = guard.Session()
			require.ErrorIs(t, err, ErrNotConnected)
			assert.False(t, guard.IsConnected())
			assert.Zero(t, guard.Generation())

			tt.assertions(t, factory)
		})
	}
}

func TestGuard_ValidateRebuildsDeadConnectionOnce(t *testing.T) {
	t.Parallel()

	deadConn := &MockConnection{}
	deadSession := &MockChannel{}

	deadConn.On("Channel").Return(deadSession, nil)
	deadConn.On("IsClosed").Return(true)
	deadConn.On("Close").Return(amqp.ErrClosed)
	deadSession.On("Qos", mock.Anything, 0, false).Return(nil)
	deadSession.On("Close").Return(nil)

	freshConn, freshSession := healthyPair()

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(deadConn, nil).Once()
	factory.On("CreateConnection", mock.Anything).Return(freshConn, nil).Once()

	guard := NewGuard(factory, QueueRef{Name: "data"})
	ctx := context.Background()

	require.NoError(t, guard.Establish(ctx))

	const validators = 8

	var wg sync.WaitGroup

	for range validators {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, guard.Validate(ctx))
		}()
	}

	wg.Wait()

	factory.AssertNumberOfCalls(t, "CreateConnection", 2)
	deadSession.AssertNumberOfCalls(t, "Close", 1)
	deadConn.AssertNumberOfCalls(t, "Close", 1)
	freshConn.AssertNotCalled(t, "Close")
	assert.Equal(t, uint64(2), guard.Generation())

	session, err := guard.Session()
	require.NoError(t, err)
	assert.Same(t, freshSession, session)
}

func TestGuard_Validate(t *testing.T) {
	t.Parallel()

	t.Run("healthy pair is kept", func(t *testing.T) {
		t.Parallel()

		conn, session := healthyPair()

		factory := &MockConnectionFactory{}
		factory.On("CreateConnection", mock.Anything).Return(conn, nil).Once()

		guard := NewGuard(factory, QueueRef{Name: "data"})
		require.NoError(t, guard.Establish(context.Background()))
		require.NoError(t, guard.Validate(context.Background()))

		factory.AssertNumberOfCalls(t, "CreateConnection", 1)
		session.AssertCalled(t, "QueueDeclarePassive", "data", false, false, false, false, mock.Anything)
		session.AssertNotCalled(t, "Close")
	})

	t.Run("absent pair is established", func(t *testing.T) {
		t.Parallel()

		conn, _ := healthyPair()

		factory := &MockConnectionFactory{}
		factory.On("CreateConnection", mock.Anything).Return(conn, nil).Once()

		guard := NewGuard(factory, QueueRef{Name: "data"})
		require.NoError(t, guard.Validate(context.Background()))

		assert.True(t, guard.IsConnected())
	})

	t.Run("failed round trip rebuilds", func(t *testing.T) {
		t.Parallel()

		staleConn := &MockConnection{}
		staleSession := &MockChannel{}

		staleConn.On("Channel").Return(staleSession, nil)
		staleConn.On("IsClosed").Return(false)
		staleConn.On("Close").Return(nil)
		staleSession.On("Qos", mock.Anything, 0, false).Return(nil)
		staleSession.On("IsClosed").Return(false)
		staleSession.On("Close").Return(nil)
		staleSession.On("QueueDeclarePassive", "data", false, false, false, false, mock.Anything).
			Return(amqp.Queue{}, errors.New("no reply"))

		freshConn, _ := healthyPair()

		factory := &MockConnectionFactory{}
		factory.On("CreateConnection", mock.Anything).Return(staleConn, nil).Once()
		factory.On("CreateConnection", mock.Anything).Return(freshConn, nil).Once()

		guard := NewGuard(factory, QueueRef{Name: "data"})
		require.NoError(t, guard.Establish(context.Background()))
		require.NoError(t, guard.Validate(context.Background()))

		staleConn.AssertNumberOfCalls(t, "Close", 1)
		assert.Equal(t, uint64(2), guard.Generation())
	})

	t.Run("released guard is not revived", func(t *testing.T) {
		t.Parallel()

		conn, _ := healthyPair()

		factory := &MockConnectionFactory{}
		factory.On("CreateConnection", mock.Anything).Return(conn, nil).Once()

		guard := NewGuard(factory, QueueRef{Name: "data"})
		require.NoError(t, guard.Establish(context.Background()))
		require.NoError(t, guard.Cleanup())
		require.NoError(t, guard.Validate(context.Background()))

		assert.False(t, guard.IsConnected())
		factory.AssertNumberOfCalls(t, "CreateConnection", 1)
	})
}

func TestGuard_StartRetriesThroughValidation(t *testing.T) {
	t.Parallel()

	conn, _ := healthyPair()

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(nil, ErrBrokerUnavailable).Once()
	factory.On("CreateConnection", mock.Anything).Return(conn, nil)

	guard := NewGuard(factory, QueueRef{Name: "data"}, WithValidationInterval(10*time.Millisecond))

	err := guard.Start(context.Background())
	require.ErrorIs(t, err, ErrBrokerUnavailable)

	require.Eventually(t, guard.IsConnected, time.Second, 5*time.Millisecond)

	require.NoError(t, guard.Start(context.Background()), "start runs once")
	require.NoError(t, guard.Cleanup())

	assert.False(t, guard.IsConnected())
	assert.False(t, guard.Scheduler().Running())
}

func TestGuard_Check(t *testing.T) {
	t.Parallel()

	conn, _ := healthyPair()

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(conn, nil)

	guard := NewGuard(factory, QueueRef{Name: "data"})

	require.ErrorIs(t, guard.Check(context.Background()), ErrNotConnected)
	require.NoError(t, guard.Establish(context.Background()))
	require.NoError(t, guard.Check(context.Background()))
}

func TestGuard_CheckHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan time.Time)
	defer close(release)

	conn := &MockConnection{}
	session := &MockChannel{}

	conn.On("Channel").Return(session, nil)
	conn.On("IsClosed").Return(false)
	session.On("Qos", mock.Anything, 0, false).Return(nil)
	session.On("IsClosed").Return(false)
	session.On("QueueDeclarePassive", "data", false, false, false, false, mock.Anything).
		WaitUntil(release).
		Return(amqp.Queue{}, nil)

	factory := &MockConnectionFactory{}
	factory.On("CreateConnection", mock.Anything).Return(conn, nil)

	guard := NewGuard(factory, QueueRef{Name: "data"})
	require.NoError(t, guard.Establish(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := guard.Check(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), time.Second)
}
