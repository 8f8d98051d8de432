package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// PacingStore is an in-memory pacing baseline table plus snapshot log.
type PacingStore struct {
	mu        sync.RWMutex
	baselines map[string]map[domain.DayType]domain.PacingBaseline
	snapshots map[string][]domain.ReservationSnapshot
	nextID    int64
}

// NewPacingStore constructs an empty pacing store.
func NewPacingStore() *PacingStore {
	return &PacingStore{
		baselines: make(map[string]map[domain.DayType]domain.PacingBaseline),
		snapshots: make(map[string][]domain.ReservationSnapshot),
	}
}

// ListBaselines returns the venue's current baselines ordered by day type.
func (s *PacingStore) ListBaselines(ctx context.Context, venueID string) ([]domain.PacingBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := s.baselines[venueID]
	out := make([]domain.PacingBaseline, 0, len(byType))
	for _, baseline := range byType {
		out = append(out, baseline)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayType < out[j].DayType })
	return out, nil
}

// UpsertBaseline overwrites the baseline for its (venue, day type) key.
func (s *PacingStore) UpsertBaseline(ctx context.Context, baseline domain.PacingBaseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if baseline.ComputedAt.IsZero() {
		baseline.ComputedAt = time.Now().UTC()
	}
	byType := s.baselines[baseline.VenueID]
	if byType == nil {
		byType = make(map[domain.DayType]domain.PacingBaseline)
		s.baselines[baseline.VenueID] = byType
	}
	byType[baseline.DayType] = baseline
	return nil
}

// AppendSnapshots appends observations to the snapshot log.
func (s *PacingStore) AppendSnapshots(ctx context.Context, snapshots []domain.ReservationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snapshots {
		if snap.ID == 0 {
			s.nextID++
			snap.ID = s.nextID
		}
		s.snapshots[snap.VenueID] = append(s.snapshots[snap.VenueID], snap)
	}
	return nil
}

// ListSnapshots returns the venue's snapshots whose business date falls in
// [from, to], ordered by business date then snapshot time.
func (s *PacingStore) ListSnapshots(ctx context.Context, venueID string, from, to time.Time) ([]domain.ReservationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ReservationSnapshot
	for _, snap := range s.snapshots[venueID] {
		if inDateRange(snap.BusinessDate, from, to) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BusinessDate.Equal(out[j].BusinessDate) {
			return out[i].BusinessDate.Before(out[j].BusinessDate)
		}
		return out[i].SnapshotAt.Before(out[j].SnapshotAt)
	})
	return out, nil
}
