// Package jobs runs background work on a small in-memory worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotStarted is returned by Enqueue before Start or after Stop.
var ErrNotStarted = errors.New("queue not running")

// Job is a unit of queued work. Payload is owned by the handler.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// Outcome is reported to the observer once per handler run.
type Outcome struct {
	Queue    string
	Job      Job
	Err      error
	Final    bool
	Duration time.Duration
}

// Observer receives job outcomes, e.g. for metrics.
type Observer func(Outcome)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	Observer   Observer
}

// Queue dispatches jobs to a fixed number of goroutines. Failed jobs are
// re-enqueued after RetryDelay until MaxRetries is exhausted.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	state  int
}

const (
	stateIdle = iota
	stateRunning
	stateStopped
)

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != stateIdle {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.state = stateRunning
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels workers and waits for in-flight handlers to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.state != stateRunning {
		q.mu.Unlock()
		return
	}
	q.state = stateStopped
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue pushes a job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx, state := q.ctx, q.state
	q.mu.Unlock()

	if state != stateRunning {
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	case q.jobs <- job:
		return nil
	}
}

// Pending returns the number of buffered jobs not yet picked up.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	start := time.Now()
	err := q.handler(q.ctx, job)
	final := err == nil || job.Attempt >= q.cfg.MaxRetries
	if q.cfg.Observer != nil {
		q.cfg.Observer(Outcome{Queue: q.name, Job: job, Err: err, Final: final, Duration: time.Since(start)})
	}
	if err == nil {
		return
	}
	if final {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	job.Attempt++
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))
	go q.retryLater(job)
}

func (q *Queue) retryLater(job Job) {
	timer := time.NewTimer(q.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
	case <-timer.C:
		if err := q.Enqueue(job); err != nil {
			q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}
