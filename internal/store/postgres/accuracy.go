package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/pkg/contracts/domain"
)

// AccuracyStore is the Postgres accuracy summary table plus actuals log.
type AccuracyStore struct {
	pool *pgxpool.Pool
}

// NewAccuracyStore constructs an AccuracyStore.
func NewAccuracyStore(pool *pgxpool.Pool) *AccuracyStore {
	return &AccuracyStore{pool: pool}
}

// ListStats returns the venue's current summaries ordered by day type.
func (s *AccuracyStore) ListStats(ctx context.Context, venueID string) ([]domain.AccuracyStats, error) {
	const query = `SELECT venue_id, day_type, mape, pct_within_10, pct_within_20, sample_size, computed_at
        FROM accuracy_stats WHERE venue_id = $1 ORDER BY day_type`

	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AccuracyStats
	for rows.Next() {
		var (
			stats   domain.AccuracyStats
			dayType string
		)
		if err := rows.Scan(&stats.VenueID, &dayType, &stats.MAPE, &stats.PctWithin10, &stats.PctWithin20, &stats.SampleSize, &stats.ComputedAt); err != nil {
			return nil, err
		}
		stats.DayType = domain.DayType(dayType)
		out = append(out, stats)
	}
	return out, rows.Err()
}

// UpsertStats overwrites the summary for its (venue, day type) key.
func (s *AccuracyStore) UpsertStats(ctx context.Context, stats domain.AccuracyStats) error {
	const stmt = `INSERT INTO accuracy_stats
        (venue_id, day_type, mape, pct_within_10, pct_within_20, sample_size, computed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (venue_id, day_type) DO UPDATE
        SET mape = EXCLUDED.mape,
            pct_within_10 = EXCLUDED.pct_within_10,
            pct_within_20 = EXCLUDED.pct_within_20,
            sample_size = EXCLUDED.sample_size,
            computed_at = EXCLUDED.computed_at`

	computedAt := stats.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, stmt, stats.VenueID, string(stats.DayType), stats.MAPE, stats.PctWithin10, stats.PctWithin20, stats.SampleSize, computedAt)
	return err
}

// AppendActuals upserts realized records; the latest record per
// (venue, business date) wins.
func (s *AccuracyStore) AppendActuals(ctx context.Context, rows []domain.ActualRecord) error {
	if len(rows) == 0 {
		return nil
	}

	const stmt = `INSERT INTO actual_records
        (venue_id, business_date, covers_actual, revenue_actual, recorded_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (venue_id, business_date) DO UPDATE
        SET covers_actual = EXCLUDED.covers_actual,
            revenue_actual = EXCLUDED.revenue_actual,
            recorded_at = EXCLUDED.recorded_at
        WHERE EXCLUDED.recorded_at >= actual_records.recorded_at`

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		recordedAt := row.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		_, err = tx.Exec(ctx, stmt,
			row.VenueID,
			domain.DateOnly(row.BusinessDate),
			row.CoversActual,
			row.RevenueActual,
			recordedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListActuals returns the venue's actuals with business dates in [from, to],
// ordered by date.
func (s *AccuracyStore) ListActuals(ctx context.Context, venueID string, from, to time.Time) ([]domain.ActualRecord, error) {
	const query = `SELECT venue_id, business_date, covers_actual, revenue_actual, recorded_at
        FROM actual_records
        WHERE venue_id = $1 AND business_date BETWEEN $2 AND $3
        ORDER BY business_date`

	rows, err := s.pool.Query(ctx, query, venueID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActualRecord
	for rows.Next() {
		var row domain.ActualRecord
		if err := rows.Scan(&row.VenueID, &row.BusinessDate, &row.CoversActual, &row.RevenueActual, &row.RecordedAt); err != nil {
			return nil, err
		}
		row.BusinessDate = domain.DateOnly(row.BusinessDate)
		out = append(out, row)
	}
	return out, rows.Err()
}
