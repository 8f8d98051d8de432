package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftcast/pkg/contracts/domain"
)

// ForecastStore is an in-memory append-only raw forecast log.
type ForecastStore struct {
	mu   sync.RWMutex
	rows map[string][]domain.RawForecast
}

// NewForecastStore constructs an empty forecast log.
func NewForecastStore() *ForecastStore {
	return &ForecastStore{rows: make(map[string][]domain.RawForecast)}
}

// AppendForecasts appends rows; every run is kept, deduplication is a read
// concern.
func (s *ForecastStore) AppendForecasts(ctx context.Context, rows []domain.RawForecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		s.rows[row.VenueID] = append(s.rows[row.VenueID], row)
	}
	return nil
}

// ListForecasts returns all runs for the venue whose business date falls in
// [from, to], ordered by date then run timestamp.
func (s *ForecastStore) ListForecasts(ctx context.Context, venueID string, from, to time.Time) ([]domain.RawForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RawForecast
	for _, row := range s.rows[venueID] {
		if inDateRange(row.BusinessDate, from, to) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BusinessDate.Equal(out[j].BusinessDate) {
			return out[i].BusinessDate.Before(out[j].BusinessDate)
		}
		return out[i].ForecastRunAt.Before(out[j].ForecastRunAt)
	})
	return out, nil
}
