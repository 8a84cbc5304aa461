// Package task runs background jobs on a fixed set of workers so that
// concurrent document processing is bounded instead of spawning one
// goroutine per upload.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Job is one unit of background work. Run receives a context that
// carries the pool's per-job timeout.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Pool struct {
	jobs    chan Job
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines consuming from a queue of queueSize.
// Submit blocks once the queue is full, which is the only backpressure
// the service applies to the external API.
func NewPool(workers, queueSize int, timeout time.Duration, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool{
		jobs:    make(chan Job, queueSize),
		timeout: timeout,
		logger:  logger,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		ctx := context.Background()
		cancel := context.CancelFunc(func() {})
		if p.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
		}

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			p.logger.Error("Background job failed",
				zap.String("job", job.Name),
				zap.Int("worker", id),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Submit enqueues a job, blocking while the queue is full. It returns
// ErrPoolClosed after Stop.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.jobs <- job
	return nil
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
