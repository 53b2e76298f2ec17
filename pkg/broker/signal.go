package broker

import (
	"context"
	"sync/atomic"
	"time"
)

// CompletionSignal counts down from an expected number of deliveries. Done
// never blocks; signals beyond the expected count are discarded.
type CompletionSignal struct {
	expected int
	signals  chan struct{}
	observed atomic.Int64
}

// NewCompletionSignal creates a signal expecting n deliveries. Negative n counts as zero.
func NewCompletionSignal(n int) *CompletionSignal {
	n = max(n, 0)

	return &CompletionSignal{
		expected: n,
		signals:  make(chan struct{}, n),
	}
}

// Done records one delivery and reports whether it counted.
func (s *CompletionSignal) Done() bool {
	for {
		n := s.observed.Load()
		if n >= int64(s.expected) {
			return false
		}

		if s.observed.CompareAndSwap(n, n+1) {
			s.signals <- struct{}{}

			return true
		}
	}
}

// Expected returns the count the signal was created with.
func (s *CompletionSignal) Expected() int {
	return s.expected
}

// Observed returns how many deliveries counted so far.
func (s *CompletionSignal) Observed() int {
	return int(s.observed.Load())
}

// Wait blocks until every expected delivery was observed. It returns early with
// the context error on cancellation, ErrWaitTimeout once timeout elapses (zero
// disables it) and ErrConsumerClosed when abort closes first.
func (s *CompletionSignal) Wait(ctx context.Context, timeout time.Duration, abort <-chan struct{}) error {
	var deadline <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		deadline = timer.C
	}

	for received := 0; received < s.expected; received++ {
		select {
		case <-s.signals:
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if s.Observed() >= s.expected {
				return nil
			}

			return ErrWaitTimeout
		case <-abort:
			if s.Observed() >= s.expected {
				return nil
			}

			return ErrConsumerClosed
		}
	}

	return nil
}
