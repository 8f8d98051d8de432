package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/pkg/contracts/domain"
)

// CalendarStore is the Postgres holiday calendar plus regime table.
type CalendarStore struct {
	pool *pgxpool.Pool
}

// NewCalendarStore constructs a CalendarStore.
func NewCalendarStore(pool *pgxpool.Pool) *CalendarStore {
	return &CalendarStore{pool: pool}
}

// ListCalendar returns entries with dates in [from, to]. An empty venue_id
// marks a global entry.
func (s *CalendarStore) ListCalendar(ctx context.Context, from, to time.Time) ([]domain.HolidayCalendarEntry, error) {
	const query = `SELECT date, venue_id, holiday_code, label, created_at
        FROM holiday_calendar
        WHERE date BETWEEN $1 AND $2
        ORDER BY date, venue_id`

	rows, err := s.pool.Query(ctx, query, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HolidayCalendarEntry
	for rows.Next() {
		var entry domain.HolidayCalendarEntry
		if err := rows.Scan(&entry.Date, &entry.VenueID, &entry.HolidayCode, &entry.Label, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Date = domain.DateOnly(entry.Date)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// UpsertCalendarEntry inserts or replaces the entry for its (date, venue)
// key.
func (s *CalendarStore) UpsertCalendarEntry(ctx context.Context, entry domain.HolidayCalendarEntry) error {
	const stmt = `INSERT INTO holiday_calendar (date, venue_id, holiday_code, label, created_at)
        VALUES ($1, $2, $3, $4, now())
        ON CONFLICT (date, venue_id) DO UPDATE
        SET holiday_code = EXCLUDED.holiday_code,
            label = EXCLUDED.label`

	_, err := s.pool.Exec(ctx, stmt, domain.DateOnly(entry.Date), entry.VenueID, entry.HolidayCode, entry.Label)
	return err
}

// ListRegimes returns every regime row ordered by code then category.
func (s *CalendarStore) ListRegimes(ctx context.Context) ([]domain.HolidayRegimeAdjustment, error) {
	const query = `SELECT holiday_code, venue_category, covers_offset, max_uplift_pct, floor_covers, updated_at
        FROM holiday_regimes ORDER BY holiday_code, venue_category`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HolidayRegimeAdjustment
	for rows.Next() {
		var (
			adj      domain.HolidayRegimeAdjustment
			category string
		)
		if err := rows.Scan(&adj.HolidayCode, &category, &adj.CoversOffset, &adj.MaxUpliftPct, &adj.Floor, &adj.UpdatedAt); err != nil {
			return nil, err
		}
		adj.VenueCategory = domain.VenueCategory(category)
		out = append(out, adj)
	}
	return out, rows.Err()
}

// UpsertRegime inserts or replaces the row for its (code, category) key.
func (s *CalendarStore) UpsertRegime(ctx context.Context, adj domain.HolidayRegimeAdjustment) error {
	const stmt = `INSERT INTO holiday_regimes
        (holiday_code, venue_category, covers_offset, max_uplift_pct, floor_covers, updated_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (holiday_code, venue_category) DO UPDATE
        SET covers_offset = EXCLUDED.covers_offset,
            max_uplift_pct = EXCLUDED.max_uplift_pct,
            floor_covers = EXCLUDED.floor_covers,
            updated_at = now()`

	_, err := s.pool.Exec(ctx, stmt, adj.HolidayCode, string(adj.VenueCategory), adj.CoversOffset, adj.MaxUpliftPct, adj.Floor)
	return err
}
