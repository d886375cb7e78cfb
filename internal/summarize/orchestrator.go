package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/scholarly/internal/config"
	"github.com/dgallion1/scholarly/internal/parser"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("summarize job queue is full")
	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("summarize job queue is stopped")
)

// Orchestrator accepts summarize jobs into a bounded queue and runs them on a
// fixed pool of workers. Finished jobs stay pollable until their TTL lapses.
type Orchestrator struct {
	store   *JobStore
	queue   chan *Job
	worker  *Worker
	workers int
	sweep   time.Duration
	log     *slog.Logger

	mu      sync.RWMutex // guards stopped against sends on a closed queue
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator sizes the queue and pool from cfg. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, pipeline *Pipeline, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:   NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, max(cfg.MaxQueueSize, 1)),
		worker:  NewWorker(pipeline, parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}, log),
		workers: max(cfg.WorkerCount, 1),
		sweep:   sweepInterval(cfg.JobTTL),
		log:     log,
	}
}

// sweepInterval runs the janitor a few times per TTL, within [1m, 5m].
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Minute), 5*time.Minute)
}

// Start launches the workers and the expiry janitor. They stop when ctx is
// canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(o.workers + 1)
	for i := range o.workers {
		go o.runWorker(ctx, i)
	}
	go o.janitor(ctx)
	o.log.Info("summarize workers started", "workers", o.workers, "queue_size", cap(o.queue))
}

func (o *Orchestrator) runWorker(ctx context.Context, id int) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			jobsQueued.Dec()
			o.log.Debug("job picked up", "worker", id, "job_id", job.ID)
			o.worker.Process(ctx, job)
		}
	}
}

func (o *Orchestrator) janitor(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := o.store.Cleanup(); n > 0 {
				o.log.Debug("evicted expired jobs", "count", n, "remaining", o.store.Len())
			}
		}
	}
}

// Stop rejects new jobs, cancels running ones and waits for the pool to exit.
// Jobs still waiting in the queue are failed so pollers see a terminal state.
// It is safe to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	abandoned := 0
	for job := range o.queue {
		jobsQueued.Dec()
		job.Fail("shutdown", "server shut down before the job ran")
		abandoned++
	}
	if abandoned > 0 {
		o.log.Warn("failed queued jobs on shutdown", "count", abandoned)
	}
}

// Submit registers job and queues it. A full queue fails the job at once and
// returns ErrQueueFull; the job stays pollable either way.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	o.store.Put(job)
	select {
	case o.queue <- job:
		jobsQueued.Inc()
		return nil
	default:
		job.Fail("queued", ErrQueueFull.Error())
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(o.queue))
	}
}

// GetJob returns the job with id, or nil if unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.store.Get(id)
}

// QueueDepth returns the number of jobs waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
