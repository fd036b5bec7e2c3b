package service

import (
	"context"
	"sync"

	"github.com/bnema/snatch/internal/domain"
	"github.com/bnema/snatch/internal/infrastructure/logger"
)

// JobRunner executes one download job from start to terminal state.
type JobRunner interface {
	Run(ctx context.Context, jobID string)
}

// WorkerPool runs queued jobs on a fixed number of workers fed by a bounded
// queue. Enqueue never blocks: when the queue is full the caller gets
// domain.ErrQueueFull and decides what to tell the client.
type WorkerPool struct {
	runner   JobRunner
	registry *Registry
	queue    chan string
	workers  int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorkerPool(runner JobRunner, registry *Registry, workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		runner:   runner,
		registry: registry,
		queue:    make(chan string, queueSize),
		workers:  workers,
	}
}

// Start launches the workers. Cancelling ctx hard-stops them between jobs;
// graceful termination goes through Shutdown instead.
func (wp *WorkerPool) Start(ctx context.Context) {
	logger.Info().Int("workers", wp.workers).Int("queue_size", cap(wp.queue)).Msg("starting download workers")
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.runWorker(ctx, i)
	}
}

// Enqueue hands a job to the pool without blocking.
func (wp *WorkerPool) Enqueue(jobID string) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return domain.ErrShutdown
	}
	select {
	case wp.queue <- jobID:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Shutdown stops intake, fails jobs still waiting in the queue and waits for
// in-flight downloads to finish, up to the context deadline.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.queue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("download workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) runWorker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-wp.queue:
			if !ok {
				return
			}
			if wp.draining() {
				// Queued but never started; tell the client instead of
				// silently dropping it.
				wp.registry.MarkFailed(jobID, domain.ErrKindUnknown, "server is shutting down")
				continue
			}
			logger.Debug().Int("worker", id).Str("job_id", jobID).Msg("picked up job")
			wp.runner.Run(ctx, jobID)
		}
	}
}

func (wp *WorkerPool) draining() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return wp.closed
}
