package domain

import (
	"time"
)

// VenueCategory selects which holiday-regime rows apply to a venue.
// Categories are curated reference data; the common values are listed here
// but the set is open.
type VenueCategory string

const (
	CategoryFineDining   VenueCategory = "fine_dining"
	CategoryCasualDining VenueCategory = "casual_dining"
	CategoryQuickService VenueCategory = "quick_service"
	CategoryBarLounge    VenueCategory = "bar_lounge"
	CategoryCafe         VenueCategory = "cafe"
)

// VenueProfile is the per-venue classification record: the category driving
// holiday-regime selection plus the venue's recurring closed weekdays.
type VenueProfile struct {
	VenueID        string         `json:"venue_id" db:"venue_id" validate:"required"`
	Name           string         `json:"name" db:"name"`
	Category       VenueCategory  `json:"category" db:"category" validate:"required"`
	ClosedWeekdays []time.Weekday `json:"closed_weekdays" db:"closed_weekdays"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// IsClosedOn reports whether the venue is recurringly closed on the given
// weekday. Holiday overrides are decided by the calendar, not here.
func (v VenueProfile) IsClosedOn(w time.Weekday) bool {
	for _, closed := range v.ClosedWeekdays {
		if closed == w {
			return true
		}
	}
	return false
}
