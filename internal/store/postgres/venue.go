package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// VenueStore is the Postgres venue registry.
type VenueStore struct {
	pool *pgxpool.Pool
}

// NewVenueStore constructs a VenueStore.
func NewVenueStore(pool *pgxpool.Pool) *VenueStore {
	return &VenueStore{pool: pool}
}

// GetVenue returns the profile for a venue ID.
func (s *VenueStore) GetVenue(ctx context.Context, venueID string) (domain.VenueProfile, error) {
	const query = `SELECT venue_id, name, category, closed_weekdays, created_at, updated_at
        FROM venues WHERE venue_id = $1`

	row := s.pool.QueryRow(ctx, query, venueID)
	profile, err := scanVenue(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VenueProfile{}, fmt.Errorf("venue %q: %w", venueID, store.ErrNotFound)
		}
		return domain.VenueProfile{}, err
	}
	return profile, nil
}

// ListVenues returns all profiles ordered by venue ID.
func (s *VenueStore) ListVenues(ctx context.Context) ([]domain.VenueProfile, error) {
	const query = `SELECT venue_id, name, category, closed_weekdays, created_at, updated_at
        FROM venues ORDER BY venue_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VenueProfile
	for rows.Next() {
		profile, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, profile)
	}
	return out, rows.Err()
}

// UpsertVenue inserts or replaces a profile.
func (s *VenueStore) UpsertVenue(ctx context.Context, profile domain.VenueProfile) error {
	const stmt = `INSERT INTO venues (venue_id, name, category, closed_weekdays, created_at, updated_at)
        VALUES ($1, $2, $3, $4, now(), now())
        ON CONFLICT (venue_id) DO UPDATE
        SET name = EXCLUDED.name,
            category = EXCLUDED.category,
            closed_weekdays = EXCLUDED.closed_weekdays,
            updated_at = now()`

	closed := make([]int32, len(profile.ClosedWeekdays))
	for i, w := range profile.ClosedWeekdays {
		closed[i] = int32(w)
	}

	_, err := s.pool.Exec(ctx, stmt, profile.VenueID, profile.Name, string(profile.Category), closed)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVenue(row rowScanner) (domain.VenueProfile, error) {
	var (
		profile  domain.VenueProfile
		category string
		closed   []int32
		created  time.Time
		updated  time.Time
	)
	if err := row.Scan(&profile.VenueID, &profile.Name, &category, &closed, &created, &updated); err != nil {
		return domain.VenueProfile{}, err
	}

	profile.Category = domain.VenueCategory(category)
	profile.CreatedAt = created
	profile.UpdatedAt = updated
	profile.ClosedWeekdays = make([]time.Weekday, len(closed))
	for i, w := range closed {
		profile.ClosedWeekdays[i] = time.Weekday(w)
	}
	return profile, nil
}
