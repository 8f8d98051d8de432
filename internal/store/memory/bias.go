package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// BiasStore is an in-memory time-versioned bias record store. History is
// append-only; a replace closes the active record and inserts the new one
// under the same lock, so readers never observe a torn transition.
type BiasStore struct {
	mu      sync.RWMutex
	records map[string][]domain.DayTypeBiasRecord
}

// NewBiasStore constructs an empty bias store.
func NewBiasStore() *BiasStore {
	return &BiasStore{records: make(map[string][]domain.DayTypeBiasRecord)}
}

// GetActiveBias returns the venue's single active record. ErrNotFound when
// none exists, ErrStaleActiveBias when more than one is active.
func (s *BiasStore) GetActiveBias(ctx context.Context, venueID string) (domain.DayTypeBiasRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []domain.DayTypeBiasRecord
	for _, rec := range s.records[venueID] {
		if rec.Active() {
			active = append(active, rec)
		}
	}

	switch len(active) {
	case 0:
		return domain.DayTypeBiasRecord{}, fmt.Errorf("bias for venue %q: %w", venueID, store.ErrNotFound)
	case 1:
		out := active[0]
		out.Offsets = out.CloneOffsets()
		return out, nil
	default:
		return domain.DayTypeBiasRecord{}, fmt.Errorf("venue %q has %d active records: %w", venueID, len(active), store.ErrStaleActiveBias)
	}
}

// ReplaceBias closes the current active record, if any, and inserts the new
// one. The stored record gets an ID, effective-from, and created-at when the
// caller left them unset. An already inconsistent history is refused.
func (s *BiasStore) ReplaceBias(ctx context.Context, record domain.DayTypeBiasRecord) (domain.DayTypeBiasRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.records[record.VenueID]

	activeCount := 0
	activeIdx := -1
	for i, rec := range history {
		if rec.Active() {
			activeCount++
			activeIdx = i
		}
	}
	if activeCount > 1 {
		return domain.DayTypeBiasRecord{}, fmt.Errorf("venue %q has %d active records: %w", record.VenueID, activeCount, store.ErrStaleActiveBias)
	}

	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.EffectiveFrom.IsZero() {
		record.EffectiveFrom = now
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.EffectiveTo = nil
	record.Offsets = record.CloneOffsets()

	if activeIdx >= 0 {
		closedAt := record.EffectiveFrom
		history[activeIdx].EffectiveTo = &closedAt
	}

	s.records[record.VenueID] = append(history, record)

	out := record
	out.Offsets = record.CloneOffsets()
	return out, nil
}

// ListBiasHistory returns the venue's records newest first, up to limit
// (0 means all).
func (s *BiasStore) ListBiasHistory(ctx context.Context, venueID string, limit int) ([]domain.DayTypeBiasRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[venueID]
	out := make([]domain.DayTypeBiasRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		rec.Offsets = rec.CloneOffsets()
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
