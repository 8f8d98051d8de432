package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// CalendarStore is an in-memory holiday calendar plus regime table.
type CalendarStore struct {
	mu      sync.RWMutex
	entries map[calendarKey]domain.HolidayCalendarEntry
	regimes map[regimeKey]domain.HolidayRegimeAdjustment
}

type calendarKey struct {
	date    string
	venueID string
}

type regimeKey struct {
	code     string
	category domain.VenueCategory
}

// NewCalendarStore constructs an empty calendar store.
func NewCalendarStore() *CalendarStore {
	return &CalendarStore{
		entries: make(map[calendarKey]domain.HolidayCalendarEntry),
		regimes: make(map[regimeKey]domain.HolidayRegimeAdjustment),
	}
}

// ListCalendar returns entries whose date falls in [from, to].
func (s *CalendarStore) ListCalendar(ctx context.Context, from, to time.Time) ([]domain.HolidayCalendarEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.HolidayCalendarEntry
	for _, entry := range s.entries {
		if inDateRange(entry.Date, from, to) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].VenueID < out[j].VenueID
	})
	return out, nil
}

// UpsertCalendarEntry inserts or replaces the entry for its (date, venue)
// key. At most one code applies per key; replacement is how codes change.
func (s *CalendarStore) UpsertCalendarEntry(ctx context.Context, entry domain.HolidayCalendarEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Date = domain.DateOnly(entry.Date)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries[calendarKey{date: domain.DateKey(entry.Date), venueID: entry.VenueID}] = entry
	return nil
}

// ListRegimes returns every regime row ordered by code then category.
func (s *CalendarStore) ListRegimes(ctx context.Context) ([]domain.HolidayRegimeAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HolidayRegimeAdjustment, 0, len(s.regimes))
	for _, adj := range s.regimes {
		out = append(out, adj)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HolidayCode != out[j].HolidayCode {
			return out[i].HolidayCode < out[j].HolidayCode
		}
		return out[i].VenueCategory < out[j].VenueCategory
	})
	return out, nil
}

// UpsertRegime inserts or replaces the row for its (code, category) key.
func (s *CalendarStore) UpsertRegime(ctx context.Context, adj domain.HolidayRegimeAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	adj.UpdatedAt = time.Now().UTC()
	s.regimes[regimeKey{code: adj.HolidayCode, category: adj.VenueCategory}] = adj
	return nil
}
