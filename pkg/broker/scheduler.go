package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TaskFunc is a unit of periodic work. The context is cancelled when the scheduler stops.
type TaskFunc func(ctx context.Context) error

// Scheduler runs periodic tasks one at a time on a single worker. A tick that
// fires while its task is still queued or running is dropped, so a slow task
// never piles up runs.
type Scheduler struct {
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc
	runs   chan *scheduledTask
	wg     sync.WaitGroup

	mu      sync.Mutex
	tasks   []*scheduledTask
	started bool
	stopped bool
}

type scheduledTask struct {
	name         string
	initialDelay time.Duration
	period       time.Duration
	run          TaskFunc
	pending      atomic.Bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger Logger) *Scheduler {
	if logger == nil {
		logger = NopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(chan *scheduledTask),
	}
}

// Schedule registers a task running first after initialDelay and then every period.
// Tasks registered on a running scheduler start ticking immediately.
func (s *Scheduler) Schedule(name string, initialDelay, period time.Duration, run TaskFunc) error {
	if period <= 0 {
		return fmt.Errorf("task %s: period must be positive, got %s", name, period)
	}

	if run == nil {
		return fmt.Errorf("task %s: nil task", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	task := &scheduledTask{
		name:         name,
		initialDelay: max(initialDelay, 0),
		period:       period,
		run:          run,
	}

	s.tasks = append(s.tasks, task)

	if s.started {
		s.launch(task)
	}

	return nil
}

// Start begins ticking every registered task. Calling it again, or after Stop, does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}

	s.started = true

	s.wg.Add(1)
	go s.work()

	for _, task := range s.tasks {
		s.launch(task)
	}

	s.logger.Debug().Int("tasks", len(s.tasks)).Msg("Scheduler started")
}

// Stop cancels the running task and waits for every scheduler goroutine to exit.
// It must not be called from inside a scheduled task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()

		return
	}

	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.logger.Debug().Msg("Scheduler stopped")
}

// Running reports whether the scheduler was started and not yet stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started && !s.stopped
}

func (s *Scheduler) launch(task *scheduledTask) {
	s.wg.Add(1)
	go s.tick(task)
}

func (s *Scheduler) tick(task *scheduledTask) {
	defer s.wg.Done()

	timer := time.NewTimer(task.initialDelay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
		s.enqueue(task)
	}

	ticker := time.NewTicker(task.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(task)
		}
	}
}

func (s *Scheduler) enqueue(task *scheduledTask) {
	if !task.pending.CompareAndSwap(false, true) {
		s.logger.Debug().Str("task", task.name).Msg("Previous run still pending, skipping tick")

		return
	}

	select {
	case s.runs <- task:
	case <-s.ctx.Done():
		task.pending.Store(false)
	}
}

func (s *Scheduler) work() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.runs:
			s.execute(task)
			task.pending.Store(false)
		}
	}
}

func (s *Scheduler) execute(task *scheduledTask) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("task", task.name).
				Str("panic", fmt.Sprint(r)).
				Msg("Scheduled task panicked")
		}
	}()

	start := time.Now()

	err := task.run(s.ctx)

	switch {
	case err == nil:
		s.logger.Debug().Str("task", task.name).Dur("duration", time.Since(start)).Msg("Scheduled task completed")
	case s.ctx.Err() != nil && errors.Is(err, context.Canceled):
		s.logger.Debug().Str("task", task.name).Msg("Scheduled task interrupted by shutdown")
	default:
		s.logger.Error().Err(err).Str("task", task.name).Dur("duration", time.Since(start)).Msg("Scheduled task failed")
	}
}
