// Package worker provides a bounded worker pool for fan-out work such as
// cache warmup batches.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBackpressure is returned when a job cannot be enqueued because the
// queue is full and the pool is configured not to block.
var ErrBackpressure = errors.New("worker: job queue full")

// ErrClosed is returned when submitting to a pool after Close.
var ErrClosed = errors.New("worker: pool closed")

// DropPolicy controls what Submit does when the job queue is full.
type DropPolicy int

const (
	// DropPolicyBlock makes Submit wait for queue space.
	DropPolicyBlock DropPolicy = iota
	// DropPolicyNewest makes Submit reject the incoming job with
	// ErrBackpressure instead of waiting.
	DropPolicyNewest
)

// Job is a unit of work executed by a pool worker.
type Job struct {
	// ID identifies the job in results and logs.
	ID string
	// Execute runs the work. The context is the pool context and is
	// cancelled when the pool closes.
	Execute func(ctx context.Context) (any, error)
}

// Result is the outcome of one executed job.
type Result struct {
	JobID string
	Value any
	Err   error
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Workers is the number of concurrent worker goroutines. Values < 1
	// are treated as 1.
	Workers int
	// QueueSize is the job queue buffer. Values < 0 are treated as 0.
	QueueSize int
	// DropPolicy controls Submit behaviour when the queue is full.
	DropPolicy DropPolicy
}

// PoolStats is a point-in-time snapshot of pool counters.
type PoolStats struct {
	JobsSubmitted uint64
	JobsCompleted uint64
	JobsFailed    uint64
	JobsDropped   uint64
}

// Pool runs jobs on a fixed set of worker goroutines. Results are
// delivered on a shared channel, so batch collection (SubmitAndWait)
// assumes one batch in flight at a time; the pool serializes batches
// internally.
type Pool struct {
	cfg      PoolConfig
	jobQueue chan Job
	results  chan Result

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	batchMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewPool creates a pool with the given worker count and queue size and
// a blocking submit policy. Workers start immediately.
func NewPool(ctx context.Context, workers, queueSize int) *Pool {
	return NewPoolWithConfig(ctx, PoolConfig{
		Workers:    workers,
		QueueSize:  queueSize,
		DropPolicy: DropPolicyBlock,
	})
}

// NewPoolWithConfig creates a pool from an explicit configuration.
func NewPoolWithConfig(ctx context.Context, cfg PoolConfig) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	poolCtx, cancel := context.WithCancel(ctx)

	p := &Pool{
		cfg:      cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		results:  make(chan Result, cfg.QueueSize),
		ctx:      poolCtx,
		cancel:   cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobQueue:
			value, err := job.Execute(p.ctx)
			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
			// Blocking send: results must not be silently lost, or
			// batch collection would stall waiting for them.
			select {
			case p.results <- Result{JobID: job.ID, Value: value, Err: err}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job. With DropPolicyBlock it waits for queue space;
// with DropPolicyNewest it returns ErrBackpressure when the queue is
// full. Returns ErrClosed after Close and the context error when the
// pool context is cancelled.
func (p *Pool) Submit(job Job) error {
	if p.cfg.DropPolicy == DropPolicyNewest {
		return p.TrySubmit(job)
	}
	if p.closed.Load() {
		return ErrClosed
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		p.submitted.Add(1)
		return nil
	}
}

// TrySubmit enqueues a job without blocking, returning ErrBackpressure
// when the queue is full regardless of the configured drop policy.
func (p *Pool) TrySubmit(job Job) error {
	if p.closed.Load() {
		return ErrClosed
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrBackpressure
	}
}

// SubmitAndWait runs a batch of jobs and returns their results in
// completion order. Submission happens on a separate goroutine so
// batches larger than the queue cannot deadlock. If a submit fails
// (cancellation or backpressure), only results for the jobs accepted
// before the failure are collected.
func (p *Pool) SubmitAndWait(jobs []Job) []Result {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	accepted := make(chan int, 1)
	go func() {
		n := 0
		for _, job := range jobs {
			if err := p.Submit(job); err != nil {
				break
			}
			n++
		}
		accepted <- n
	}()

	results := make([]Result, 0, len(jobs))
	want := -1
	for want < 0 || len(results) < want {
		select {
		case <-p.ctx.Done():
			return results
		case n := <-accepted:
			want = n
			accepted = nil
		case r, ok := <-p.results:
			if !ok {
				return results
			}
			results = append(results, r)
		}
	}
	return results
}

// Results exposes the shared results channel for callers that consume
// job outcomes as a stream instead of in batches.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops the pool: no new jobs are accepted, running jobs are
// cancelled via the pool context and workers are waited for. Jobs still
// sitting in the queue are discarded.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.cancel()
		p.wg.Wait()
		close(p.results)
	})
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}

// DropPolicy returns the configured drop policy.
func (p *Pool) DropPolicy() DropPolicy {
	return p.cfg.DropPolicy
}

// QueueLen returns the number of jobs waiting in the queue.
func (p *Pool) QueueLen() int {
	return len(p.jobQueue)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		JobsSubmitted: p.submitted.Load(),
		JobsCompleted: p.completed.Load(),
		JobsFailed:    p.failed.Load(),
		JobsDropped:   p.dropped.Load(),
	}
}
