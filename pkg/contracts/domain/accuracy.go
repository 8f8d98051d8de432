package domain

import (
	"time"
)

// AccuracyStats is the rolling forecast-accuracy summary for a
// (venue, day type), refreshed by pairing corrected forecasts against
// realized actuals. One current value per key, overwritten in place.
type AccuracyStats struct {
	VenueID     string    `json:"venue_id" db:"venue_id"`
	DayType     DayType   `json:"day_type" db:"day_type"`
	MAPE        float64   `json:"mape" db:"mape"`
	PctWithin10 float64   `json:"pct_within_10" db:"pct_within_10"`
	PctWithin20 float64   `json:"pct_within_20" db:"pct_within_20"`
	SampleSize  int       `json:"sample_size" db:"sample_size"`
	ComputedAt  time.Time `json:"computed_at" db:"computed_at"`
}

// ActualRecord is the realized per-venue per-date ground truth consumed by
// the accuracy refresh.
type ActualRecord struct {
	VenueID       string    `json:"venue_id" db:"venue_id" validate:"required"`
	BusinessDate  time.Time `json:"business_date" db:"business_date"`
	CoversActual  float64   `json:"covers_actual" db:"covers_actual"`
	RevenueActual *float64  `json:"revenue_actual,omitempty" db:"revenue_actual"`
	RecordedAt    time.Time `json:"recorded_at" db:"recorded_at"`
}
