package http

import (
	"context"
	"io"
	"time"

	"shiftcast/internal/services"
	"shiftcast/pkg/contracts/domain"
)

// ForecastReader is the slice of the forecast service the venue endpoints
// consume. Handlers depend on it rather than the concrete service so tests
// can substitute stubs.
type ForecastReader interface {
	GetCorrected(ctx context.Context, venueID string, from, to time.Time) ([]domain.CorrectedForecast, error)
	GetRaw(ctx context.Context, venueID string, from, to time.Time) ([]domain.RawForecast, error)
	GetAccuracy(ctx context.Context, venueID string) ([]domain.AccuracyStats, error)
	GetPacing(ctx context.Context, venueID string, from, to time.Time) (services.PacingStatus, error)
}

// AdminOperations is the curator surface the admin endpoints consume.
type AdminOperations interface {
	ReplaceBiasRecord(ctx context.Context, venueID string, coversOffset int, offsets map[domain.DayType]int, reason string) (domain.DayTypeBiasRecord, error)
	BiasHistory(ctx context.Context, venueID string, limit int) ([]domain.DayTypeBiasRecord, error)
	DecayAudits(ctx context.Context, venueID string, limit int) ([]domain.BiasDecayAudit, error)
	UpsertRegime(ctx context.Context, adj domain.HolidayRegimeAdjustment) error
	UpsertCalendarEntry(ctx context.Context, entry domain.HolidayCalendarEntry) error
	UpsertVenue(ctx context.Context, profile domain.VenueProfile) error
	GetVenue(ctx context.Context, venueID string) (domain.VenueProfile, error)
	ListVenues(ctx context.Context) ([]domain.VenueProfile, error)
	TriggerRefresh(ctx context.Context, kind domain.JobKind, venueID string) (domain.JobRecord, error)
	Job(ctx context.Context, id string) (domain.JobRecord, error)
	Jobs(ctx context.Context, limit int) ([]domain.JobRecord, error)
	ImportActuals(ctx context.Context, r io.Reader) (services.ImportSummary, error)
	SubmitActual(ctx context.Context, row domain.ActualRecord) error
}

// HealthChecker is the probe surface of the health service.
type HealthChecker interface {
	Liveness(ctx context.Context) services.HealthStatus
	Readiness(ctx context.Context) (services.HealthStatus, bool)
}
