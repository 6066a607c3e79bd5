package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dyncards/dyncards/internal/domain"
)

// Common errors returned by the Runner
var (
	ErrNotRunning = errors.New("task runner is not running")
	ErrQueueFull  = errors.New("task queue is full")

	// ErrAlreadyInFlight is returned when the item already has a queued or
	// executing task. Callers typically ignore it: the outstanding task will
	// produce the variant they wanted anyway.
	ErrAlreadyInFlight = errors.New("task already in flight for card")
)

// DefaultQueueSize is the buffer size used when none is configured.
const DefaultQueueSize = 64

// Runner executes tasks on a single background consumer, in FIFO order
// across all items. Start is idempotent; Stop joins the consumer before
// returning, so no task executes after Stop returns and a subsequent Start
// begins from an empty queue.
type Runner struct {
	mu       sync.Mutex
	running  bool
	tasks    chan Task
	inflight map[domain.CardID]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	queueSize  int
	logger     *slog.Logger
	errHandler func(task Task, err error)
}

// NewRunner creates a stopped Runner.
func NewRunner(queueSize int, logger *slog.Logger) *Runner {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Runner{
		queueSize: queueSize,
		logger:    logger.With("component", "task_runner"),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom handler for task failures.
// The handler runs on the consumer goroutine.
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if handler != nil {
		r.errHandler = handler
	}
}

// Start allocates a fresh queue and spawns the consumer. Calling Start on a
// running Runner is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.tasks = make(chan Task, r.queueSize)
	r.inflight = make(map[domain.CardID]struct{})
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.consume(ctx, r.tasks)

	r.logger.Debug("task runner started", "queue_size", r.queueSize)
}

// Enqueue appends a task to the tail of the queue without blocking.
// Returns ErrNotRunning when the runner is stopped, ErrAlreadyInFlight when
// the item already has an outstanding task, and ErrQueueFull when the
// buffer is exhausted.
func (r *Runner) Enqueue(t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}

	if _, ok := r.inflight[t.CardID()]; ok {
		return fmt.Errorf("%w: %d", ErrAlreadyInFlight, t.CardID())
	}

	select {
	case r.tasks <- t:
		r.inflight[t.CardID()] = struct{}{}
		r.logger.Debug("task enqueued",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"card_id", t.CardID(),
			"queue_len", len(r.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(r.tasks))
	}
}

// Stop flips the running flag and joins the consumer. A task that already
// started executing runs to completion first; queued tasks that never
// started are discarded with the queue handle.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	r.mu.Lock()
	r.tasks = nil
	r.inflight = nil
	r.mu.Unlock()

	r.logger.Debug("task runner stopped")
}

// Running reports whether the consumer is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// consume is the single consumer loop: dequeue one task, run it to
// completion, repeat. Execution errors and panics are contained at the task
// boundary so one failing job never kills the loop.
func (r *Runner) consume(ctx context.Context, tasks <-chan Task) {
	defer r.wg.Done()

	for {
		// Shutdown wins over further dequeues when both are ready.
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case t := <-tasks:
			r.execute(ctx, t)
		}
	}
}

func (r *Runner) execute(ctx context.Context, t Task) {
	defer func() {
		r.mu.Lock()
		if r.inflight != nil {
			delete(r.inflight, t.CardID())
		}
		r.mu.Unlock()

		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"panic", rec)

			// A panic is still a job failure and gets reported like one.
			r.mu.Lock()
			handler := r.errHandler
			r.mu.Unlock()
			handler(t, fmt.Errorf("task panicked: %v", rec))
		}
	}()

	logger := r.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"card_id", t.CardID(),
	)

	logger.Debug("processing task")

	if err := t.Execute(ctx); err != nil {
		logger.Warn("task execution failed", "error", err)

		r.mu.Lock()
		handler := r.errHandler
		r.mu.Unlock()
		handler(t, err)
		return
	}

	logger.Debug("task completed")
}
