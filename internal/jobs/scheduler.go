package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// Entry pairs a job kind with its cadence. Entries with a non-positive
// interval are dropped at construction.
type Entry struct {
	Kind     domain.JobKind
	Interval time.Duration
}

// Scheduler enqueues each configured job kind on its own ticker. Admin
// triggers bypass the scheduler and enqueue through the same runner, so a
// scheduled and a triggered run of the same kind are indistinguishable
// downstream.
type Scheduler struct {
	runner           *Runner
	entries          []Entry
	logger           *slog.Logger
	shutdownComplete chan struct{}
}

// NewScheduler creates a scheduler over the runner.
func NewScheduler(runner *Runner, entries []Entry, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	active := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Interval <= 0 {
			logger.Info("schedule disabled", slog.String("kind", string(e.Kind)))
			continue
		}
		active = append(active, e)
	}

	return &Scheduler{
		runner:           runner,
		entries:          active,
		logger:           logger.With(slog.String("component", "scheduler")),
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches one ticker loop per entry. It returns immediately; the
// loops stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, entry := range s.entries {
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(entry)
	}

	go func() {
		wg.Wait()
		close(s.shutdownComplete)
	}()

	s.logger.Info("scheduler started", slog.Int("schedules", len(s.entries)))
}

// Wait blocks until every schedule loop has stopped.
func (s *Scheduler) Wait() {
	<-s.shutdownComplete
}

func (s *Scheduler) loop(ctx context.Context, entry Entry) {
	ticker := time.NewTicker(entry.Interval)
	defer ticker.Stop()

	logger := s.logger.With(
		slog.String("kind", string(entry.Kind)),
		slog.Duration("interval", entry.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			record, err := s.runner.Enqueue(ctx, entry.Kind, "")
			if err != nil {
				logger.Error("enqueue scheduled job", slog.String("error", err.Error()))
				continue
			}
			logger.Info("scheduled job enqueued", slog.String("job_id", record.ID))
		}
	}
}
