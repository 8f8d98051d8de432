package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// VenueStore is an in-memory venue registry.
type VenueStore struct {
	mu     sync.RWMutex
	venues map[string]domain.VenueProfile
}

// NewVenueStore constructs an empty venue registry.
func NewVenueStore() *VenueStore {
	return &VenueStore{venues: make(map[string]domain.VenueProfile)}
}

// GetVenue returns the profile for a venue ID.
func (s *VenueStore) GetVenue(ctx context.Context, venueID string) (domain.VenueProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.venues[venueID]
	if !ok {
		return domain.VenueProfile{}, fmt.Errorf("venue %q: %w", venueID, store.ErrNotFound)
	}
	return profile, nil
}

// ListVenues returns all profiles ordered by venue ID.
func (s *VenueStore) ListVenues(ctx context.Context) ([]domain.VenueProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.VenueProfile, 0, len(s.venues))
	for _, profile := range s.venues {
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VenueID < out[j].VenueID })
	return out, nil
}

// UpsertVenue inserts or replaces a profile, maintaining timestamps.
func (s *VenueStore) UpsertVenue(ctx context.Context, profile domain.VenueProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.venues[profile.VenueID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	s.venues[profile.VenueID] = profile
	return nil
}
