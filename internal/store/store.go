// Package store defines the persistence interfaces for the correction
// pipeline's inputs and enrichment layers, plus the sentinel errors shared
// by its implementations. Postgres-backed implementations live in
// store/postgres, mutex-guarded in-memory ones in store/memory.
package store

import (
	"context"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// VenueStore holds the per-venue classification registry.
type VenueStore interface {
	GetVenue(ctx context.Context, venueID string) (domain.VenueProfile, error)
	ListVenues(ctx context.Context) ([]domain.VenueProfile, error)
	UpsertVenue(ctx context.Context, profile domain.VenueProfile) error
}

// ForecastStore holds raw forecast rows. Rows are append-only per run;
// deduplication to the latest run happens on the read path, so List returns
// every run in the range.
type ForecastStore interface {
	AppendForecasts(ctx context.Context, rows []domain.RawForecast) error
	ListForecasts(ctx context.Context, venueID string, from, to time.Time) ([]domain.RawForecast, error)
}

// CalendarStore holds the holiday calendar and the regime adjustment table.
type CalendarStore interface {
	ListCalendar(ctx context.Context, from, to time.Time) ([]domain.HolidayCalendarEntry, error)
	UpsertCalendarEntry(ctx context.Context, entry domain.HolidayCalendarEntry) error
	ListRegimes(ctx context.Context) ([]domain.HolidayRegimeAdjustment, error)
	UpsertRegime(ctx context.Context, adj domain.HolidayRegimeAdjustment) error
}

// BiasStore holds the time-versioned day-type bias records. All writes go
// through Replace, which closes the current active record and inserts the
// new one atomically; history is never mutated. GetActive returns
// ErrNotFound when the venue has no active record and ErrStaleActiveBias
// when it has more than one.
type BiasStore interface {
	GetActiveBias(ctx context.Context, venueID string) (domain.DayTypeBiasRecord, error)
	ReplaceBias(ctx context.Context, record domain.DayTypeBiasRecord) (domain.DayTypeBiasRecord, error)
	ListBiasHistory(ctx context.Context, venueID string, limit int) ([]domain.DayTypeBiasRecord, error)
}

// PacingStore holds pacing baselines (overwritten by key on refresh) and the
// append-only reservation snapshot log they are computed from.
type PacingStore interface {
	ListBaselines(ctx context.Context, venueID string) ([]domain.PacingBaseline, error)
	UpsertBaseline(ctx context.Context, baseline domain.PacingBaseline) error
	AppendSnapshots(ctx context.Context, snapshots []domain.ReservationSnapshot) error
	ListSnapshots(ctx context.Context, venueID string, from, to time.Time) ([]domain.ReservationSnapshot, error)
}

// AccuracyStore holds the per (venue, day type) accuracy summaries and the
// realized actuals they are refreshed from.
type AccuracyStore interface {
	ListStats(ctx context.Context, venueID string) ([]domain.AccuracyStats, error)
	UpsertStats(ctx context.Context, stats domain.AccuracyStats) error
	AppendActuals(ctx context.Context, rows []domain.ActualRecord) error
	ListActuals(ctx context.Context, venueID string, from, to time.Time) ([]domain.ActualRecord, error)
}

// AuditStore persists job run records and the decay job's before/after
// audit trail.
type AuditStore interface {
	CreateJob(ctx context.Context, record domain.JobRecord) error
	UpdateJob(ctx context.Context, record domain.JobRecord) error
	GetJob(ctx context.Context, id string) (domain.JobRecord, error)
	ListJobs(ctx context.Context, limit int) ([]domain.JobRecord, error)
	AppendDecayAudit(ctx context.Context, audit domain.BiasDecayAudit) error
	ListDecayAudits(ctx context.Context, venueID string, limit int) ([]domain.BiasDecayAudit, error)
}

// Stores bundles every store interface for wiring. A single struct keeps
// constructor signatures stable as stores are added.
type Stores struct {
	Venues    VenueStore
	Forecasts ForecastStore
	Calendar  CalendarStore
	Bias      BiasStore
	Pacing    PacingStore
	Accuracy  AccuracyStore
	Audit     AuditStore
}

// Pinger is implemented by backends that can report connectivity, used by
// the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
