// Package jobs admits write jobs into a bounded executor. Jobs that do not
// fit are rejected immediately instead of queueing.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"claim-comments/internal/domain"
	"claim-comments/internal/metrics"
)

type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

// Func is the body of a job. The context is cancelled when the executor is
// closed past its drain deadline.
type Func func(ctx context.Context) (any, error)

type Config struct {
	// Limit is the number of jobs running at once.
	Limit int
	// PendingLimit is the number of admitted jobs allowed to wait for a slot.
	PendingLimit int
}

func DefaultConfig() Config {
	return Config{Limit: 1, PendingLimit: 0}
}

type Executor struct {
	admit   *semaphore.Weighted
	run     *semaphore.Weighted
	log     *zap.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewExecutor(cfg Config, log *zap.Logger, m *metrics.Metrics) *Executor {
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.PendingLimit < 0 {
		cfg.PendingLimit = 0
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		admit:   semaphore.NewWeighted(int64(cfg.Limit + cfg.PendingLimit)),
		run:     semaphore.NewWeighted(int64(cfg.Limit)),
		log:     log.Named("jobs"),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Job is the handle of an admitted job.
type Job struct {
	name string
	done chan struct{}

	mu     sync.Mutex
	state  State
	result any
	err    error
}

func (j *Job) Name() string { return j.name }

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx ends. Giving up on a job does
// not cancel it.
func (j *Job) Wait(ctx context.Context) (any, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) finish(result any, err error) {
	j.mu.Lock()
	j.result = result
	j.err = err
	if err != nil {
		j.state = StateFailed
	} else {
		j.state = StateCommitted
	}
	j.mu.Unlock()
	close(j.done)
}

// Submit admits fn or rejects it with a capacity error. It never blocks on
// a busy executor.
func (e *Executor) Submit(name string, fn Func) (*Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.metrics.RecordWriteJob("rejected", 0)
		return nil, domain.NewCapacityError("write executor is shut down")
	}
	if !e.admit.TryAcquire(1) {
		e.metrics.RecordWriteJob("rejected", 0)
		e.log.Warn("write job rejected", zap.String("job", name))
		return nil, domain.NewCapacityError("too many concurrent writes, try again later")
	}

	job := &Job{name: name, state: StatePending, done: make(chan struct{})}
	e.wg.Add(1)
	go e.execute(job, fn)
	return job, nil
}

// Do submits fn and waits for its result.
func (e *Executor) Do(ctx context.Context, name string, fn Func) (any, error) {
	job, err := e.Submit(name, fn)
	if err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

func (e *Executor) execute(job *Job, fn Func) {
	defer e.wg.Done()
	result, err := e.runJob(job, fn)
	e.admit.Release(1)
	job.finish(result, err)
}

func (e *Executor) runJob(job *Job, fn Func) (any, error) {
	if err := e.run.Acquire(e.ctx, 1); err != nil {
		e.metrics.RecordWriteJob("failed", 0)
		return nil, domain.NewCapacityError("write executor is shut down")
	}
	defer e.run.Release(1)

	job.setState(StateRunning)
	start := time.Now()
	result, err := e.invoke(job.name, fn)
	elapsed := time.Since(start)

	if err != nil {
		e.metrics.RecordWriteJob("failed", elapsed)
		e.log.Debug("write job failed", zap.String("job", job.name), zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		e.metrics.RecordWriteJob("committed", elapsed)
	}
	return result, err
}

func (e *Executor) invoke(name string, fn Func) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("write job panicked", zap.String("job", name), zap.Any("panic", r))
			result = nil
			err = domain.NewStorageError("write job panicked", fmt.Errorf("%v", r))
		}
	}()
	return fn(e.ctx)
}

// Close stops admitting jobs and waits for admitted ones. When ctx ends
// first, running jobs are cancelled and Close still waits for them to
// return.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.log.Warn("write executor drain timed out, cancelling jobs")
		e.cancel()
		<-drained
		return ctx.Err()
	}
}
