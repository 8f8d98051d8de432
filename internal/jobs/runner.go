package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"shiftcast/internal/infrastructure"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// RunnerConfig holds the worker pool settings.
type RunnerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

type queuedRun struct {
	job   Job
	state *State
}

// Runner executes jobs on a bounded worker pool. Every state transition is
// persisted through the audit store and forwarded to the notifier, so a
// restart loses at most the in-flight progress of a running job.
type Runner struct {
	queue    chan queuedRun
	workers  int
	timeout  time.Duration
	wg       sync.WaitGroup
	audit    store.AuditStore
	notifier Notifier
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	shutdown chan struct{}

	mu     sync.RWMutex
	jobs   map[domain.JobKind]Job
	active map[string]*State
}

// NewRunner creates a runner. The notifier and metrics may be nil.
func NewRunner(cfg RunnerConfig, audit store.AuditStore, notifier Notifier, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		queue:    make(chan queuedRun, cfg.QueueSize),
		workers:  cfg.Workers,
		timeout:  cfg.JobTimeout,
		audit:    audit,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "jobs")),
		metrics:  metrics,
		shutdown: make(chan struct{}),
		jobs:     make(map[domain.JobKind]Job),
		active:   make(map[string]*State),
	}
}

// Register makes jobs available for enqueueing, keyed by kind.
func (r *Runner) Register(jobs ...Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range jobs {
		r.jobs[job.Kind()] = job
	}
}

// Start launches the worker goroutines.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("starting job runner", slog.Int("workers", r.workers))
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
}

// Stop drains the workers, waiting up to timeout.
func (r *Runner) Stop(timeout time.Duration) error {
	r.logger.Info("stopping job runner")
	close(r.shutdown)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for job workers to finish")
	}
}

// Enqueue records a pending run and queues it. The returned record carries
// the run ID the caller can poll.
func (r *Runner) Enqueue(ctx context.Context, kind domain.JobKind, venueScope string) (domain.JobRecord, error) {
	job, state, err := r.prepare(ctx, kind, venueScope)
	if err != nil {
		return domain.JobRecord{}, err
	}

	select {
	case r.queue <- queuedRun{job: job, state: state}:
		record := state.Record()
		r.logger.Info("job enqueued",
			slog.String("job_id", record.ID),
			slog.String("kind", string(kind)),
			slog.String("venue_scope", venueScope))
		return record, nil
	default:
		state.fail(fmt.Errorf("job queue is full"))
		r.persist(ctx, state)
		return state.Record(), fmt.Errorf("job queue is full")
	}
}

// RunSync executes one job inline, bypassing the queue. The returned error
// is the job's own failure; per-venue failures are visible on the record
// only. Used by the one-shot runner CLI.
func (r *Runner) RunSync(ctx context.Context, kind domain.JobKind, venueScope string) (domain.JobRecord, error) {
	job, state, err := r.prepare(ctx, kind, venueScope)
	if err != nil {
		return domain.JobRecord{}, err
	}

	runErr := r.execute(ctx, job, state)
	return state.Record(), runErr
}

// Get returns the live state of an active run, falling back to the store.
func (r *Runner) Get(ctx context.Context, id string) (domain.JobRecord, error) {
	r.mu.RLock()
	state, ok := r.active[id]
	r.mu.RUnlock()
	if ok {
		return state.Record(), nil
	}
	return r.audit.GetJob(ctx, id)
}

// List returns job records newest first, up to limit (0 means all).
func (r *Runner) List(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	return r.audit.ListJobs(ctx, limit)
}

func (r *Runner) prepare(ctx context.Context, kind domain.JobKind, venueScope string) (Job, *State, error) {
	r.mu.RLock()
	job, ok := r.jobs[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%q: %w", kind, ErrUnknownJob)
	}

	record := domain.JobRecord{
		ID:         uuid.NewString(),
		Kind:       kind,
		Status:     domain.JobStatusPending,
		VenueScope: venueScope,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.audit.CreateJob(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("create job record: %w", err)
	}

	state := newState(record, r.publish)
	return job, state, nil
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()

	logger := r.logger.With(slog.Int("worker_id", id))
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case run := <-r.queue:
			if err := r.execute(ctx, run.job, run.state); err != nil {
				logger.Error("job failed",
					slog.String("job_id", run.state.RunID()),
					slog.String("error", err.Error()))
			}
		}
	}
}

// execute drives one run through its lifecycle with panic recovery.
// Scheduled runs arrive without a trace ID, so one is minted here to keep
// the run's log lines and audit writes correlatable.
func (r *Runner) execute(ctx context.Context, job Job, state *State) (runErr error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	record := state.Record()
	logger := r.logger.With(
		slog.String("job_id", record.ID),
		slog.String("kind", string(record.Kind)),
	)

	r.mu.Lock()
	r.active[record.ID] = state
	r.mu.Unlock()

	start := time.Now()
	if r.metrics != nil {
		r.metrics.JobActiveJobs.Add(ctx, 1)
	}

	defer func() {
		if rec := recover(); rec != nil {
			runErr = fmt.Errorf("job panicked: %v", rec)
			state.fail(runErr)
			logger.ErrorContext(ctx, "job panicked", slog.Any("panic", rec))
		}

		r.mu.Lock()
		delete(r.active, record.ID)
		r.mu.Unlock()

		final := state.Record()
		r.persist(ctx, state)
		r.recordMetrics(ctx, final, time.Since(start))

		logger.InfoContext(ctx, "job finished",
			slog.String("status", string(final.Status)),
			slog.Int("venues_processed", final.VenuesProcessed),
			slog.Int("venues_skipped", final.VenuesSkipped),
			slog.Int("venues_failed", final.VenuesFailed),
			slog.Duration("duration", time.Since(start)))
	}()

	state.start()
	r.persist(ctx, state)
	logger.InfoContext(ctx, "job started", slog.String("venue_scope", record.VenueScope))

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := job.Run(runCtx, state); err != nil {
		state.fail(err)
		return err
	}

	state.complete()
	return nil
}

func (r *Runner) persist(ctx context.Context, state *State) {
	if err := r.audit.UpdateJob(ctx, state.Record()); err != nil {
		r.logger.Error("persist job record",
			slog.String("job_id", state.RunID()),
			slog.String("error", err.Error()))
	}
}

func (r *Runner) publish(record domain.JobRecord) {
	if r.notifier != nil {
		r.notifier.JobUpdated(record)
	}
}

func (r *Runner) recordMetrics(ctx context.Context, record domain.JobRecord, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("job.kind", string(record.Kind)),
		attribute.String("job.status", string(record.Status)),
	)
	r.metrics.JobActiveJobs.Add(ctx, -1)
	r.metrics.JobExecutionsTotal.Add(ctx, 1, attrs)
	r.metrics.JobDuration.Record(ctx, elapsed.Seconds(), attrs)

	kindAttr := metric.WithAttributes(attribute.String("job.kind", string(record.Kind)))
	r.metrics.JobVenuesProcessed.Add(ctx, int64(record.VenuesProcessed), kindAttr)
	r.metrics.JobVenuesSkipped.Add(ctx, int64(record.VenuesSkipped), kindAttr)
	r.metrics.JobVenuesFailed.Add(ctx, int64(record.VenuesFailed), kindAttr)
}
