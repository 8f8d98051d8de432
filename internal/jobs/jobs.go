package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// ErrUnknownJob is returned when a job kind has no registered implementation.
var ErrUnknownJob = errors.New("unknown job kind")

// Job is a single batch task. Run receives the mutable run state and returns
// an error only for failures that invalidate the whole run; per-venue
// failures are recorded on the state instead.
type Job interface {
	Kind() domain.JobKind
	Run(ctx context.Context, state *State) error
}

// Notifier receives a copy of the job record after every state change.
// Implementations must not block; the WebSocket hub satisfies this.
type Notifier interface {
	JobUpdated(record domain.JobRecord)
}

// State is the mutex-guarded runtime state of one job run. Jobs bump the
// per-venue counters and set the closing message; lifecycle transitions are
// driven by the Runner.
type State struct {
	mu     sync.Mutex
	record domain.JobRecord
	notify func(domain.JobRecord)
}

func newState(record domain.JobRecord, notify func(domain.JobRecord)) *State {
	return &State{record: record, notify: notify}
}

// Record returns a copy of the current job record.
func (s *State) Record() domain.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// RunID returns the job run identifier, used to stamp audit rows.
func (s *State) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.ID
}

// VenueScope returns the venue the run is restricted to, empty for all.
func (s *State) VenueScope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.VenueScope
}

// SetMessage sets the human-readable summary on the record.
func (s *State) SetMessage(msg string) {
	s.update(func(r *domain.JobRecord) { r.Message = msg })
}

// VenueProcessed counts one venue as successfully handled.
func (s *State) VenueProcessed() {
	s.update(func(r *domain.JobRecord) { r.VenuesProcessed++ })
}

// VenueSkipped counts one venue as intentionally left untouched.
func (s *State) VenueSkipped() {
	s.update(func(r *domain.JobRecord) { r.VenuesSkipped++ })
}

// VenueFailed counts one venue that errored. The run itself continues.
func (s *State) VenueFailed() {
	s.update(func(r *domain.JobRecord) { r.VenuesFailed++ })
}

func (s *State) start() {
	now := time.Now().UTC()
	s.update(func(r *domain.JobRecord) {
		r.Status = domain.JobStatusRunning
		r.StartedAt = &now
	})
}

func (s *State) complete() {
	now := time.Now().UTC()
	s.update(func(r *domain.JobRecord) {
		r.Status = domain.JobStatusCompleted
		r.CompletedAt = &now
	})
}

func (s *State) fail(err error) {
	now := time.Now().UTC()
	s.update(func(r *domain.JobRecord) {
		r.Status = domain.JobStatusFailed
		r.CompletedAt = &now
		if err != nil {
			r.Error = err.Error()
		}
	})
}

func (s *State) update(mutate func(*domain.JobRecord)) {
	s.mu.Lock()
	mutate(&s.record)
	record := s.record
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(record)
	}
}

// scopeVenues resolves the venues a run operates on: the single scoped venue
// when set, otherwise every registered venue.
func scopeVenues(ctx context.Context, venues store.VenueStore, scope string) ([]domain.VenueProfile, error) {
	if scope != "" {
		v, err := venues.GetVenue(ctx, scope)
		if err != nil {
			return nil, err
		}
		return []domain.VenueProfile{v}, nil
	}
	return venues.ListVenues(ctx)
}
