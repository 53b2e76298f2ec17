package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionSignal_Wait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected int
		signals  int
		timeout  time.Duration
		abort    bool
		wantErr  error
	}{
		{name: "nothing expected", expected: 0},
		{name: "negative counts as zero", expected: -3},
		{name: "all observed", expected: 3, signals: 3},
		{name: "extra signals are discarded", expected: 2, signals: 5},
		{name: "timeout", expected: 2, signals: 1, timeout: 10 * time.Millisecond, wantErr: ErrWaitTimeout},
		{name: "aborted", expected: 2, signals: 1, abort: true, wantErr: ErrConsumerClosed},
		{name: "aborted after completion", expected: 2, signals: 2, abort: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			signal := NewCompletionSignal(tt.expected)

			for range tt.signals {
				signal.Done()
			}

			abort := make(chan struct{})
			if tt.abort {
				close(abort)
			}

			err := signal.Wait(context.Background(), tt.timeout, abort)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, max(tt.expected, 0), signal.Observed())
		})
	}
}

func TestCompletionSignal_DoneNeverBlocks(t *testing.T) {
	t.Parallel()

	signal := NewCompletionSignal(1)

	assert.True(t, signal.Done())
	assert.False(t, signal.Done())
	assert.Equal(t, 1, signal.Observed())
	assert.Equal(t, 1, signal.Expected())
}

func TestCompletionSignal_WaitCancelled(t *testing.T) {
	t.Parallel()

	signal := NewCompletionSignal(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, signal.Wait(ctx, 0, nil), context.Canceled)
}

func TestCompletionSignal_ConcurrentDone(t *testing.T) {
	t.Parallel()

	signal := NewCompletionSignal(50)

	for range 50 {
		go signal.Done()
	}

	require.NoError(t, signal.Wait(context.Background(), time.Second, nil))
	assert.Equal(t, 50, signal.Observed())
}
