package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/pkg/contracts/domain"
)

// ForecastStore is the Postgres append-only raw forecast log.
type ForecastStore struct {
	pool *pgxpool.Pool
}

// NewForecastStore constructs a ForecastStore.
func NewForecastStore(pool *pgxpool.Pool) *ForecastStore {
	return &ForecastStore{pool: pool}
}

// AppendForecasts appends rows in one transaction. Redelivered rows for an
// already-recorded run key are ignored, keeping the intake idempotent.
func (s *ForecastStore) AppendForecasts(ctx context.Context, rows []domain.RawForecast) error {
	if len(rows) == 0 {
		return nil
	}

	const stmt = `INSERT INTO raw_forecasts
        (id, venue_id, business_date, shift, forecast_run_at, covers_predicted,
         covers_lower, covers_upper, revenue_predicted, day_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
        ON CONFLICT (venue_id, business_date, shift, forecast_run_at) DO NOTHING`

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		var dayType *string
		if row.DayType != nil {
			v := string(*row.DayType)
			dayType = &v
		}
		_, err = tx.Exec(ctx, stmt,
			id,
			row.VenueID,
			domain.DateOnly(row.BusinessDate),
			string(row.Shift),
			row.ForecastRunAt,
			row.CoversPredicted,
			row.CoversLower,
			row.CoversUpper,
			row.RevenuePredicted,
			dayType,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListForecasts returns all runs for the venue with business dates in
// [from, to], ordered by date then run timestamp.
func (s *ForecastStore) ListForecasts(ctx context.Context, venueID string, from, to time.Time) ([]domain.RawForecast, error) {
	const query = `SELECT id, venue_id, business_date, shift, forecast_run_at, covers_predicted,
        covers_lower, covers_upper, revenue_predicted, day_type, created_at
        FROM raw_forecasts
        WHERE venue_id = $1 AND business_date BETWEEN $2 AND $3
        ORDER BY business_date, forecast_run_at`

	rows, err := s.pool.Query(ctx, query, venueID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RawForecast
	for rows.Next() {
		var (
			row     domain.RawForecast
			shift   string
			dayType *string
		)
		err := rows.Scan(&row.ID, &row.VenueID, &row.BusinessDate, &shift, &row.ForecastRunAt,
			&row.CoversPredicted, &row.CoversLower, &row.CoversUpper, &row.RevenuePredicted,
			&dayType, &row.CreatedAt)
		if err != nil {
			return nil, err
		}
		row.Shift = domain.Shift(shift)
		if dayType != nil {
			dt := domain.DayType(*dayType)
			row.DayType = &dt
		}
		row.BusinessDate = domain.DateOnly(row.BusinessDate)
		out = append(out, row)
	}
	return out, rows.Err()
}
