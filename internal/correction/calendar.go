package correction

import (
	"time"

	"shiftcast/pkg/contracts/domain"
)

// HolidayIndex answers "which holiday, if any, applies to this venue on this
// date". A venue-specific calendar entry takes precedence over a global one
// for the same date.
type HolidayIndex struct {
	venue  map[string]domain.HolidayCalendarEntry // venueID + "|" + dateKey
	global map[string]domain.HolidayCalendarEntry // dateKey
}

// NewHolidayIndex builds the lookup from calendar entries. Later entries for
// the same key overwrite earlier ones.
func NewHolidayIndex(entries []domain.HolidayCalendarEntry) *HolidayIndex {
	idx := &HolidayIndex{
		venue:  make(map[string]domain.HolidayCalendarEntry),
		global: make(map[string]domain.HolidayCalendarEntry),
	}
	for _, e := range entries {
		key := domain.DateKey(e.Date)
		if e.Global() {
			idx.global[key] = e
		} else {
			idx.venue[e.VenueID+"|"+key] = e
		}
	}
	return idx
}

// Lookup returns the holiday entry in effect for the venue on the date.
func (idx *HolidayIndex) Lookup(venueID string, date time.Time) (domain.HolidayCalendarEntry, bool) {
	key := domain.DateKey(date)
	if e, ok := idx.venue[venueID+"|"+key]; ok {
		return e, true
	}
	e, ok := idx.global[key]
	return e, ok
}

// RegimeIndex resolves the curated holiday offset for a
// (holiday code, venue category) pair.
type RegimeIndex struct {
	rows map[string]domain.HolidayRegimeAdjustment
}

// NewRegimeIndex builds the lookup from regime rows.
func NewRegimeIndex(rows []domain.HolidayRegimeAdjustment) *RegimeIndex {
	idx := &RegimeIndex{rows: make(map[string]domain.HolidayRegimeAdjustment, len(rows))}
	for _, r := range rows {
		idx.rows[r.HolidayCode+"|"+string(r.VenueCategory)] = r
	}
	return idx
}

// Lookup returns the regime row for the code and category.
func (idx *RegimeIndex) Lookup(code string, category domain.VenueCategory) (domain.HolidayRegimeAdjustment, bool) {
	r, ok := idx.rows[code+"|"+string(category)]
	return r, ok
}

// ResolveDayType classifies a date for bias and accuracy lookups. An explicit
// day type on the forecast row wins; otherwise a holiday in effect
// reclassifies the date to the holiday day type, and the weekday decides the
// rest.
func ResolveDayType(explicit *domain.DayType, date time.Time, holidayInEffect bool) domain.DayType {
	if explicit != nil && explicit.Valid() {
		return *explicit
	}
	if holidayInEffect {
		return domain.DayTypeHoliday
	}
	return domain.DayTypeForWeekday(date.Weekday())
}

// IsClosedDay applies the closed-day rule: a venue is closed when the date's
// weekday is in its recurring closed set and no holiday is in effect. A
// holiday always suppresses recurring closure.
func IsClosedDay(venue domain.VenueProfile, date time.Time, holidayInEffect bool) bool {
	if holidayInEffect {
		return false
	}
	return venue.IsClosedOn(date.Weekday())
}
