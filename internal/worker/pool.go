package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
)

const jobTimeout = 5 * time.Second

// AuditLogger is the audit store the workers write to.
type AuditLogger interface {
	Log(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, action domain.AuditAction, details interface{}) error
}

// Pool manages a pool of workers that write audit records asynchronously.
type Pool struct {
	jobQueue      *JobQueue
	audit         AuditLogger
	workers       []*Worker
	wg            sync.WaitGroup
	stopped       bool
	jobsProcessed int64
	jobsFailed    int64
	jobsRejected  int64
	mu            sync.RWMutex
}

// Worker represents a single worker in the pool.
type Worker struct {
	id       int
	jobQueue *JobQueue
	audit    AuditLogger
}

// Stats represents worker pool statistics.
type Stats struct {
	ActiveWorkers int   `json:"active_workers"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
	JobsRejected  int64 `json:"jobs_rejected"`
	QueueSize     int   `json:"queue_size"`
}

// NewPool creates a new worker pool.
func NewPool(jobQueue *JobQueue, audit AuditLogger) *Pool {
	return &Pool{
		jobQueue: jobQueue,
		audit:    audit,
	}
}

// Start starts the specified number of workers.
func (wp *Pool) Start(numWorkers int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		utils.Warn("worker pool already stopped, not starting workers")
		return
	}

	for i := 0; i < numWorkers; i++ {
		worker := &Worker{
			id:       len(wp.workers) + 1,
			jobQueue: wp.jobQueue,
			audit:    wp.audit,
		}

		wp.workers = append(wp.workers, worker)

		wp.wg.Add(1)
		go worker.start(&wp.wg, &wp.jobsProcessed, &wp.jobsFailed)
	}

	utils.Info("worker pool started", slog.Int("num_workers", len(wp.workers)))
}

// Stop stops accepting jobs and waits for the workers to drain the queue.
func (wp *Pool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return nil
	}
	wp.stopped = true
	close(wp.jobQueue.QuitChan)
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.Info("worker pool stopped gracefully",
			slog.Int64("jobs_processed", atomic.LoadInt64(&wp.jobsProcessed)),
		)
		return nil
	case <-ctx.Done():
		utils.Warn("worker pool shutdown timed out",
			slog.Int("queue_size", len(wp.jobQueue.SubmitChan)),
		)
		return ctx.Err()
	}
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool is stopped; the caller then owns the job.
func (wp *Pool) Submit(job *AuditJob) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		atomic.AddInt64(&wp.jobsRejected, 1)
		return false
	}

	select {
	case wp.jobQueue.SubmitChan <- job:
		utils.Debug("audit job queued",
			slog.String("job_id", job.ID.String()),
			slog.String("action", string(job.Action)),
		)
		return true
	default:
		atomic.AddInt64(&wp.jobsRejected, 1)
		utils.Warn("audit queue is full", slog.String("job_id", job.ID.String()))
		return false
	}
}

// GetStats returns current worker pool statistics.
func (wp *Pool) GetStats() Stats {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	active := len(wp.workers)
	if wp.stopped {
		active = 0
	}

	return Stats{
		ActiveWorkers: active,
		JobsProcessed: atomic.LoadInt64(&wp.jobsProcessed),
		JobsFailed:    atomic.LoadInt64(&wp.jobsFailed),
		JobsRejected:  atomic.LoadInt64(&wp.jobsRejected),
		QueueSize:     len(wp.jobQueue.SubmitChan),
	}
}

// start processes jobs until the queue is closed, then drains what is left.
func (w *Worker) start(wg *sync.WaitGroup, jobsProcessed, jobsFailed *int64) {
	defer wg.Done()

	for {
		select {
		case job := <-w.jobQueue.SubmitChan:
			w.process(job, jobsProcessed, jobsFailed)

		case <-w.jobQueue.QuitChan:
			for {
				select {
				case job := <-w.jobQueue.SubmitChan:
					w.process(job, jobsProcessed, jobsFailed)
				default:
					utils.Debug("worker stopped", slog.Int("worker_id", w.id))
					return
				}
			}
		}
	}
}

// process writes a single audit record.
func (w *Worker) process(job *AuditJob, jobsProcessed, jobsFailed *int64) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := w.write(ctx, job); err != nil {
		atomic.AddInt64(jobsFailed, 1)
		utils.Error("audit job failed",
			slog.String("job_id", job.ID.String()),
			slog.String("entity_id", job.EntityID.String()),
			slog.String("action", string(job.Action)),
			slog.Int("worker_id", w.id),
			slog.String("error", err.Error()),
		)
		return
	}

	atomic.AddInt64(jobsProcessed, 1)
	utils.Debug("audit job processed",
		slog.String("job_id", job.ID.String()),
		slog.Duration("duration", time.Since(startTime)),
		slog.Duration("queued", startTime.Sub(job.Enqueued)),
	)
}

func (w *Worker) write(ctx context.Context, job *AuditJob) error {
	if job.EntityID == uuid.Nil {
		return fmt.Errorf("invalid audit job: missing entity id")
	}
	return w.audit.Log(ctx, job.EntityType, job.EntityID, job.Action, job.Details)
}
