package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Task is a storage-bound operation executed off the authoritative loop.
type Task func(ctx context.Context) error

// Continuation receives the task's result. It runs on the goroutine that
// calls Poll, which is how results get back onto the authoritative loop
// without that loop ever blocking on I/O.
type Continuation func(err error)

type pendingTask struct {
	run  Task
	done Continuation
}

// Dispatcher runs cold-path ledger work on a worker pool and stages the
// continuations until the authoritative loop polls for them.
type Dispatcher struct {
	tasks       chan pendingTask
	completions chan func()
	logger      zerolog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity, and starts its workers.
func NewDispatcher(ctx context.Context, workers, queueSize int, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher{
		tasks:       make(chan pendingTask, queueSize),
		completions: make(chan func(), queueSize),
		logger:      logger,
		stopped:     make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}

	return d
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopped:
			return
		case t, ok := <-d.tasks:
			if !ok {
				return
			}

			err := t.run(ctx)

			if t.done != nil {
				select {
				case d.completions <- func() { t.done(err) }:
				case <-d.stopped:
					return
				}
			} else if err != nil {
				d.logger.Error().Err(err).Msg("dispatched task failed with no continuation")
			}
		}
	}
}

// Submit enqueues a task. It returns false when the queue is full or the
// dispatcher has stopped; the caller decides whether to retry or fail.
func (d *Dispatcher) Submit(run Task, done Continuation) bool {
	select {
	case <-d.stopped:
		return false
	default:
	}

	select {
	case d.tasks <- pendingTask{run: run, done: done}:
		return true
	default:
		return false
	}
}

// Poll runs up to max staged continuations on the calling goroutine. The
// authoritative loop calls this once per tick. It returns how many ran.
func (d *Dispatcher) Poll(max int) int {
	ran := 0
	for ran < max {
		select {
		case fn := <-d.completions:
			fn()
			ran++
		default:
			return ran
		}
	}
	return ran
}

// Stop shuts the workers down. Queued tasks that have not started are
// dropped; in-flight tasks finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopped)
	})
	d.wg.Wait()
}
