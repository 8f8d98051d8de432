// Package memory provides mutex-guarded in-memory store implementations
// used by unit tests and by dev mode when no database DSN is configured.
// Semantics match the postgres implementations, including the bias
// replace-versioning and stale-active detection.
package memory

import (
	"time"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// NewStores constructs a full in-memory store bundle.
func NewStores() store.Stores {
	return store.Stores{
		Venues:    NewVenueStore(),
		Forecasts: NewForecastStore(),
		Calendar:  NewCalendarStore(),
		Bias:      NewBiasStore(),
		Pacing:    NewPacingStore(),
		Accuracy:  NewAccuracyStore(),
		Audit:     NewAuditStore(),
	}
}

// inDateRange reports whether the civil date of t falls inside [from, to]
// inclusive, comparing dates only.
func inDateRange(t, from, to time.Time) bool {
	d := domain.DateOnly(t)
	return !d.Before(domain.DateOnly(from)) && !d.After(domain.DateOnly(to))
}
