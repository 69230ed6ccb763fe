package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

// WorkingPool runs jobs on a fixed number of goroutines fed by a bounded queue.
type WorkingPool struct {
	NumWorkers int
	jobChan    chan Job

	mu     sync.RWMutex
	closed bool
}

func NewWorkingPool(numWorkers int, queueSize int) *WorkingPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkingPool{
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
	}
}

// SubmitJob enqueues without blocking. Callers on a request path drop the job
// when the queue is full.
func (p *WorkingPool) SubmitJob(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobChan <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the workers until ctx is done, then drains queued jobs and returns.
func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(&workerWg, i+1)
	}

	<-ctx.Done()

	slog.Info("Working pool shutdown signaled, closing job channel")
	p.mu.Lock()
	p.closed = true
	close(p.jobChan)
	p.mu.Unlock()

	workerWg.Wait()
	slog.Info("Working pool stopped", "workers", p.NumWorkers)
}

// worker runs jobs with a background context so queued publishes still complete
// after the server context is cancelled.
func (p *WorkingPool) worker(wg *sync.WaitGroup, id int) {
	defer wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for job := range p.jobChan {
		p.safeExecution(context.Background(), job, id)
	}
	slog.Debug("Worker exiting, job channel closed", "worker_id", id)
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in job", "worker_id", workerID, "panic", r)
			err = errors.New("job panicked")
		}
	}()

	err = job(ctx)
	if err != nil {
		slog.Error("Error executing job", "worker_id", workerID, "error", err)
	}
	return err
}
