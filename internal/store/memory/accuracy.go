package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// AccuracyStore is an in-memory accuracy summary table plus actuals log.
type AccuracyStore struct {
	mu      sync.RWMutex
	stats   map[string]map[domain.DayType]domain.AccuracyStats
	actuals map[string][]domain.ActualRecord
}

// NewAccuracyStore constructs an empty accuracy store.
func NewAccuracyStore() *AccuracyStore {
	return &AccuracyStore{
		stats:   make(map[string]map[domain.DayType]domain.AccuracyStats),
		actuals: make(map[string][]domain.ActualRecord),
	}
}

// ListStats returns the venue's current summaries ordered by day type.
func (s *AccuracyStore) ListStats(ctx context.Context, venueID string) ([]domain.AccuracyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := s.stats[venueID]
	out := make([]domain.AccuracyStats, 0, len(byType))
	for _, stats := range byType {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayType < out[j].DayType })
	return out, nil
}

// UpsertStats overwrites the summary for its (venue, day type) key.
func (s *AccuracyStore) UpsertStats(ctx context.Context, stats domain.AccuracyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stats.ComputedAt.IsZero() {
		stats.ComputedAt = time.Now().UTC()
	}
	byType := s.stats[stats.VenueID]
	if byType == nil {
		byType = make(map[domain.DayType]domain.AccuracyStats)
		s.stats[stats.VenueID] = byType
	}
	byType[stats.DayType] = stats
	return nil
}

// AppendActuals appends realized records to the actuals log. A later record
// for the same (venue, date) supersedes earlier ones on the read path.
func (s *AccuracyStore) AppendActuals(ctx context.Context, rows []domain.ActualRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range rows {
		if row.RecordedAt.IsZero() {
			row.RecordedAt = now
		}
		s.actuals[row.VenueID] = append(s.actuals[row.VenueID], row)
	}
	return nil
}

// ListActuals returns the venue's latest actual per business date in
// [from, to], ordered by date.
func (s *AccuracyStore) ListActuals(ctx context.Context, venueID string, from, to time.Time) ([]domain.ActualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]domain.ActualRecord)
	for _, row := range s.actuals[venueID] {
		if !inDateRange(row.BusinessDate, from, to) {
			continue
		}
		key := domain.DateKey(row.BusinessDate)
		if existing, ok := latest[key]; !ok || row.RecordedAt.After(existing.RecordedAt) {
			latest[key] = row
		}
	}

	out := make([]domain.ActualRecord, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessDate.Before(out[j].BusinessDate) })
	return out, nil
}
