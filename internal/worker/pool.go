// Package worker provides a small bounded pool for the blocking background
// work of the controller: discovery, connect and disconnect.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultSize is the number of tasks allowed to run at once.
const DefaultSize = 4

// ErrPoolClosed is returned by Go after Close has been called.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs tasks in background goroutines, at most size at a time.
// Submitting never blocks the caller; tasks queue on the semaphore.
type Pool struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool. A size below 1 uses DefaultSize.
func New(size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Go schedules task. The context passed to task is cancelled when the pool
// is force-closed.
func (p *Pool) Go(task func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.logger.Debug("Task dropped, pool shutting down", zap.Error(err))
			return
		}
		defer p.sem.Release(1)

		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Task panicked", zap.Any("panic", r))
			}
		}()

		task(p.ctx)
	}()

	return nil
}

// Wait blocks until every scheduled task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops accepting tasks and waits for running ones. If ctx expires
// first, the task context is cancelled and ctx.Err() is returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.logger.Warn("Worker pool close timed out, cancelling tasks")
		p.cancel()
		return ctx.Err()
	}
}
