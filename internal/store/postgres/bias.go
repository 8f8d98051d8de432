package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// BiasStore is the Postgres time-versioned bias record store. The offset map
// is stored as jsonb; replacement closes the active row and inserts the new
// one inside a single transaction with the active rows locked.
type BiasStore struct {
	pool *pgxpool.Pool
}

// NewBiasStore constructs a BiasStore.
func NewBiasStore(pool *pgxpool.Pool) *BiasStore {
	return &BiasStore{pool: pool}
}

const biasColumns = `id, venue_id, effective_from, effective_to, covers_offset,
        offsets, reason, decay_cycle, decayed_at, created_at`

// GetActiveBias returns the venue's single active record. ErrNotFound when
// none exists, ErrStaleActiveBias when more than one is active.
func (s *BiasStore) GetActiveBias(ctx context.Context, venueID string) (domain.DayTypeBiasRecord, error) {
	const query = `SELECT ` + biasColumns + `
        FROM bias_records WHERE venue_id = $1 AND effective_to IS NULL`

	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return domain.DayTypeBiasRecord{}, err
	}
	defer rows.Close()

	var active []domain.DayTypeBiasRecord
	for rows.Next() {
		record, err := scanBias(rows)
		if err != nil {
			return domain.DayTypeBiasRecord{}, err
		}
		active = append(active, record)
	}
	if err := rows.Err(); err != nil {
		return domain.DayTypeBiasRecord{}, err
	}

	switch len(active) {
	case 0:
		return domain.DayTypeBiasRecord{}, fmt.Errorf("bias for venue %q: %w", venueID, store.ErrNotFound)
	case 1:
		return active[0], nil
	default:
		return domain.DayTypeBiasRecord{}, fmt.Errorf("venue %q has %d active records: %w", venueID, len(active), store.ErrStaleActiveBias)
	}
}

// ReplaceBias closes the current active record and inserts the new one in
// one transaction. The active rows are locked first so concurrent replaces
// serialize; an already inconsistent history is refused.
func (s *BiasStore) ReplaceBias(ctx context.Context, record domain.DayTypeBiasRecord) (domain.DayTypeBiasRecord, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.DayTypeBiasRecord{}, err
	}
	defer tx.Rollback(ctx)

	const lockQuery = `SELECT id FROM bias_records
        WHERE venue_id = $1 AND effective_to IS NULL FOR UPDATE`

	rows, err := tx.Query(ctx, lockQuery, record.VenueID)
	if err != nil {
		return domain.DayTypeBiasRecord{}, err
	}
	var activeIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return domain.DayTypeBiasRecord{}, err
		}
		activeIDs = append(activeIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.DayTypeBiasRecord{}, err
	}

	if len(activeIDs) > 1 {
		return domain.DayTypeBiasRecord{}, fmt.Errorf("venue %q has %d active records: %w", record.VenueID, len(activeIDs), store.ErrStaleActiveBias)
	}

	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.EffectiveFrom.IsZero() {
		record.EffectiveFrom = now
	}
	record.EffectiveTo = nil
	record.CreatedAt = now

	if len(activeIDs) == 1 {
		const closeStmt = `UPDATE bias_records SET effective_to = $1 WHERE id = $2`
		if _, err := tx.Exec(ctx, closeStmt, record.EffectiveFrom, activeIDs[0]); err != nil {
			return domain.DayTypeBiasRecord{}, err
		}
	}

	offsets, err := json.Marshal(record.CloneOffsets())
	if err != nil {
		return domain.DayTypeBiasRecord{}, fmt.Errorf("marshal offsets: %w", err)
	}

	const insertStmt = `INSERT INTO bias_records
        (id, venue_id, effective_from, effective_to, covers_offset, offsets,
         reason, decay_cycle, decayed_at, created_at)
        VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, insertStmt,
		record.ID,
		record.VenueID,
		record.EffectiveFrom,
		record.CoversOffset,
		offsets,
		record.Reason,
		record.DecayCycle,
		record.DecayedAt,
		record.CreatedAt,
	)
	if err != nil {
		return domain.DayTypeBiasRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.DayTypeBiasRecord{}, err
	}
	return record, nil
}

// ListBiasHistory returns the venue's records newest first, up to limit
// (0 means all).
func (s *BiasStore) ListBiasHistory(ctx context.Context, venueID string, limit int) ([]domain.DayTypeBiasRecord, error) {
	query := `SELECT ` + biasColumns + `
        FROM bias_records WHERE venue_id = $1
        ORDER BY effective_from DESC, created_at DESC`
	args := []any{venueID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DayTypeBiasRecord
	for rows.Next() {
		record, err := scanBias(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanBias(row rowScanner) (domain.DayTypeBiasRecord, error) {
	var (
		record  domain.DayTypeBiasRecord
		offsets []byte
	)
	err := row.Scan(&record.ID, &record.VenueID, &record.EffectiveFrom, &record.EffectiveTo,
		&record.CoversOffset, &offsets, &record.Reason, &record.DecayCycle,
		&record.DecayedAt, &record.CreatedAt)
	if err != nil {
		return domain.DayTypeBiasRecord{}, err
	}

	record.Offsets = make(map[domain.DayType]int)
	if len(offsets) > 0 {
		if err := json.Unmarshal(offsets, &record.Offsets); err != nil {
			return domain.DayTypeBiasRecord{}, fmt.Errorf("unmarshal offsets: %w", err)
		}
	}
	return record, nil
}
