package domain

import (
	"time"
)

// HolidayCalendarEntry maps a civil date to a holiday code. A row with an
// empty VenueID is global; a venue-specific row for the same date takes
// precedence. At most one code applies per (venue, date).
type HolidayCalendarEntry struct {
	Date        time.Time `json:"date" db:"date"`
	HolidayCode string    `json:"holiday_code" db:"holiday_code" validate:"required"`
	VenueID     string    `json:"venue_id,omitempty" db:"venue_id"`
	Label       string    `json:"label,omitempty" db:"label"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Global reports whether the entry applies to all venues.
func (e HolidayCalendarEntry) Global() bool {
	return e.VenueID == ""
}

// HolidayRegimeAdjustment is the curated additive correction for a
// (holiday code, venue category) pair. MaxUpliftPct and Floor are
// curator-side guardrails used when the row is authored; they are not
// enforced on the read path.
type HolidayRegimeAdjustment struct {
	HolidayCode   string        `json:"holiday_code" db:"holiday_code" validate:"required"`
	VenueCategory VenueCategory `json:"venue_category" db:"venue_category" validate:"required"`
	CoversOffset  int           `json:"covers_offset" db:"covers_offset"`
	MaxUpliftPct  float64       `json:"max_uplift_pct" db:"max_uplift_pct"`
	Floor         int           `json:"floor" db:"floor"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}
