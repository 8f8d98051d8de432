package domain

import (
	"time"
)

// PacingBaseline is the periodically refreshed "typical bookings on hand at
// the pacing checkpoint" for a (venue, day type). One current value per key,
// overwritten in place by the refresh job.
type PacingBaseline struct {
	VenueID       string    `json:"venue_id" db:"venue_id"`
	DayType       DayType   `json:"day_type" db:"day_type"`
	TypicalOnHand float64   `json:"typical_on_hand" db:"typical_on_hand"`
	SampleSize    int       `json:"sample_size" db:"sample_size"`
	ComputedAt    time.Time `json:"computed_at" db:"computed_at"`
}

// ReservationSnapshot is one append-only observation of confirmed bookings
// for a future service, taken HoursToService hours before it.
type ReservationSnapshot struct {
	ID             int64     `json:"id,omitempty" db:"id"`
	VenueID        string    `json:"venue_id" db:"venue_id" validate:"required"`
	BusinessDate   time.Time `json:"business_date" db:"business_date"`
	SnapshotAt     time.Time `json:"snapshot_at" db:"snapshot_at"`
	ConfirmedCount int       `json:"confirmed_count" db:"confirmed_count" validate:"min=0"`
	HoursToService float64   `json:"hours_to_service" db:"hours_to_service" validate:"min=0"`
}
