package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/pkg/contracts/domain"
)

// PacingStore is the Postgres pacing baseline table plus snapshot log.
type PacingStore struct {
	pool *pgxpool.Pool
}

// NewPacingStore constructs a PacingStore.
func NewPacingStore(pool *pgxpool.Pool) *PacingStore {
	return &PacingStore{pool: pool}
}

// ListBaselines returns the venue's current baselines ordered by day type.
func (s *PacingStore) ListBaselines(ctx context.Context, venueID string) ([]domain.PacingBaseline, error) {
	const query = `SELECT venue_id, day_type, typical_on_hand, sample_size, computed_at
        FROM pacing_baselines WHERE venue_id = $1 ORDER BY day_type`

	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PacingBaseline
	for rows.Next() {
		var (
			baseline domain.PacingBaseline
			dayType  string
		)
		if err := rows.Scan(&baseline.VenueID, &dayType, &baseline.TypicalOnHand, &baseline.SampleSize, &baseline.ComputedAt); err != nil {
			return nil, err
		}
		baseline.DayType = domain.DayType(dayType)
		out = append(out, baseline)
	}
	return out, rows.Err()
}

// UpsertBaseline overwrites the baseline for its (venue, day type) key.
func (s *PacingStore) UpsertBaseline(ctx context.Context, baseline domain.PacingBaseline) error {
	const stmt = `INSERT INTO pacing_baselines (venue_id, day_type, typical_on_hand, sample_size, computed_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (venue_id, day_type) DO UPDATE
        SET typical_on_hand = EXCLUDED.typical_on_hand,
            sample_size = EXCLUDED.sample_size,
            computed_at = EXCLUDED.computed_at`

	computedAt := baseline.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, stmt, baseline.VenueID, string(baseline.DayType), baseline.TypicalOnHand, baseline.SampleSize, computedAt)
	return err
}

// AppendSnapshots appends observations in one transaction. Redelivered
// observations for an already-recorded (venue, date, time) are ignored.
func (s *PacingStore) AppendSnapshots(ctx context.Context, snapshots []domain.ReservationSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	const stmt = `INSERT INTO reservation_snapshots
        (venue_id, business_date, snapshot_at, confirmed_count, hours_to_service)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (venue_id, business_date, snapshot_at) DO NOTHING`

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, snap := range snapshots {
		_, err = tx.Exec(ctx, stmt,
			snap.VenueID,
			domain.DateOnly(snap.BusinessDate),
			snap.SnapshotAt,
			snap.ConfirmedCount,
			snap.HoursToService,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListSnapshots returns the venue's snapshots with business dates in
// [from, to], ordered by date then snapshot time.
func (s *PacingStore) ListSnapshots(ctx context.Context, venueID string, from, to time.Time) ([]domain.ReservationSnapshot, error) {
	const query = `SELECT id, venue_id, business_date, snapshot_at, confirmed_count, hours_to_service
        FROM reservation_snapshots
        WHERE venue_id = $1 AND business_date BETWEEN $2 AND $3
        ORDER BY business_date, snapshot_at`

	rows, err := s.pool.Query(ctx, query, venueID, domain.DateOnly(from), domain.DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReservationSnapshot
	for rows.Next() {
		var snap domain.ReservationSnapshot
		if err := rows.Scan(&snap.ID, &snap.VenueID, &snap.BusinessDate, &snap.SnapshotAt, &snap.ConfirmedCount, &snap.HoursToService); err != nil {
			return nil, err
		}
		snap.BusinessDate = domain.DateOnly(snap.BusinessDate)
		out = append(out, snap)
	}
	return out, rows.Err()
}
