// Package jobs runs background work such as catalog ingestion off the request path.
//
// Jobs are queued in process and drained by a single worker. Delivery is
// at-least-once: a failed run is attempted again until it succeeds, fails with a
// terminal error, or exhausts its attempts. Handlers must therefore be safe to
// re-run; catalog ingestion is, because it skips ids it already stored.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelscout/backend/internal/domain"
)

// Kind names a registered job handler.
type Kind string

// KindIngest downloads the product catalog.
const KindIngest Kind = "ingest"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a snapshot of one queued unit of work.
type Job struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	Result    any       `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Handler performs one attempt of a job.
type Handler func(ctx context.Context) (any, error)

// Config tunes the dispatcher.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	QueueSize   int
	// Retention is how long a finished job stays queryable before it is pruned.
	Retention time.Duration
	// Terminal reports errors that must not be retried.
	Terminal func(error) bool
}

// ErrQueueFull is returned when the queue cannot take another job.
var ErrQueueFull = errors.New("job queue is full")

// ErrUnknownKind is returned when enqueuing a kind with no handler.
var ErrUnknownKind = errors.New("no handler registered for job kind")

// Dispatcher owns the job table and the worker.
type Dispatcher struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	handlers map[Kind]Handler
	queue    chan string
	cfg      Config
	logger   *slog.Logger
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewDispatcher creates a dispatcher; call Start to begin draining the queue.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	if cfg.Terminal == nil {
		cfg.Terminal = func(err error) bool { return errors.Is(err, domain.ErrIngestInProgress) }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		jobs:     make(map[string]*Job),
		handlers: make(map[Kind]Handler),
		queue:    make(chan string, cfg.QueueSize),
		cfg:      cfg,
		logger:   logger.With("component", "jobs"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register binds a handler to kind.
func (d *Dispatcher) Register(kind Kind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

// Start launches the worker; it exits when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-d.queue:
				d.run(ctx, id)
			}
		}
	}()
}

// Wait blocks until the worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue queues a new job of kind and returns its initial snapshot.
func (d *Dispatcher) Enqueue(kind Kind) (Job, error) {
	d.mu.Lock()
	if _, ok := d.handlers[kind]; !ok {
		d.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	now := d.now()
	d.pruneLocked(now)
	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.jobs[job.ID] = job
	snapshot := *job
	d.mu.Unlock()

	select {
	case d.queue <- job.ID:
	default:
		d.mu.Lock()
		delete(d.jobs, job.ID)
		d.mu.Unlock()
		return Job{}, ErrQueueFull
	}

	d.logger.Info("job queued", "job_id", job.ID, "kind", kind)
	return snapshot, nil
}

// Get returns a snapshot of job id.
func (d *Dispatcher) Get(id string) (Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	job, ok := d.jobs[id]
	if !ok {
		return Job{}, domain.ErrJobNotFound
	}
	return *job, nil
}

// pruneLocked drops finished jobs older than the retention window. Callers
// hold d.mu.
func (d *Dispatcher) pruneLocked(now time.Time) {
	for id, job := range d.jobs {
		finished := job.Status == StatusSucceeded || job.Status == StatusFailed
		if finished && now.Sub(job.UpdatedAt) > d.cfg.Retention {
			delete(d.jobs, id)
		}
	}
}

func (d *Dispatcher) update(id string, fn func(*Job)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if job, ok := d.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = d.now()
	}
}

func (d *Dispatcher) run(ctx context.Context, id string) {
	d.mu.RLock()
	job, ok := d.jobs[id]
	var handler Handler
	var kind Kind
	if ok {
		kind = job.Kind
		handler = d.handlers[kind]
	}
	d.mu.RUnlock()
	if !ok || handler == nil {
		return
	}

	logger := d.logger.With("job_id", id, "kind", kind)
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		d.update(id, func(j *Job) {
			j.Status = StatusRunning
			j.Attempts = attempt
		})

		result, err := handler(ctx)
		if err == nil {
			d.update(id, func(j *Job) {
				j.Status = StatusSucceeded
				j.Error = ""
				j.Result = result
			})
			logger.Info("job succeeded", "attempts", attempt)
			return
		}

		d.update(id, func(j *Job) { j.Error = err.Error() })
		if d.cfg.Terminal(err) || attempt == d.cfg.MaxAttempts || ctx.Err() != nil {
			d.update(id, func(j *Job) { j.Status = StatusFailed })
			logger.Error("job failed", "attempts", attempt, "error", err)
			return
		}

		logger.Warn("job attempt failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			d.update(id, func(j *Job) { j.Status = StatusFailed })
			return
		case <-time.After(d.cfg.Backoff * time.Duration(attempt)):
		}
	}
}
