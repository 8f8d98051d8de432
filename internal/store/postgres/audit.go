package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// AuditStore is the Postgres job record and decay audit store.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore constructs an AuditStore.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

const jobColumns = `id, kind, status, venue_scope, created_at, started_at, completed_at,
        venues_processed, venues_skipped, venues_failed, message, error`

// CreateJob inserts a new job record, assigning an ID when unset.
func (s *AuditStore) CreateJob(ctx context.Context, record domain.JobRecord) error {
	const stmt = `INSERT INTO job_records
        (id, kind, status, venue_scope, created_at, started_at, completed_at,
         venues_processed, venues_skipped, venues_failed, message, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO NOTHING`

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, stmt,
		record.ID,
		string(record.Kind),
		string(record.Status),
		record.VenueScope,
		record.CreatedAt,
		record.StartedAt,
		record.CompletedAt,
		record.VenuesProcessed,
		record.VenuesSkipped,
		record.VenuesFailed,
		record.Message,
		record.Error,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %q: %w", record.ID, store.ErrConflict)
	}
	return nil
}

// UpdateJob replaces an existing job record.
func (s *AuditStore) UpdateJob(ctx context.Context, record domain.JobRecord) error {
	const stmt = `UPDATE job_records
        SET status = $2, started_at = $3, completed_at = $4,
            venues_processed = $5, venues_skipped = $6, venues_failed = $7,
            message = $8, error = $9
        WHERE id = $1`

	tag, err := s.pool.Exec(ctx, stmt,
		record.ID,
		string(record.Status),
		record.StartedAt,
		record.CompletedAt,
		record.VenuesProcessed,
		record.VenuesSkipped,
		record.VenuesFailed,
		record.Message,
		record.Error,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %q: %w", record.ID, store.ErrNotFound)
	}
	return nil
}

// GetJob returns a job record by ID.
func (s *AuditStore) GetJob(ctx context.Context, id string) (domain.JobRecord, error) {
	const query = `SELECT ` + jobColumns + ` FROM job_records WHERE id = $1`

	record, err := scanJob(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JobRecord{}, fmt.Errorf("job %q: %w", id, store.ErrNotFound)
		}
		return domain.JobRecord{}, err
	}
	return record, nil
}

// ListJobs returns records newest first, up to limit (0 means all).
func (s *AuditStore) ListJobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_records ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// AppendDecayAudit appends one decay audit row.
func (s *AuditStore) AppendDecayAudit(ctx context.Context, audit domain.BiasDecayAudit) error {
	const stmt = `INSERT INTO bias_decay_audits
        (id, job_run_id, venue_id, before_offsets, after_offsets, decay_rate, cycle, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.RecordedAt.IsZero() {
		audit.RecordedAt = time.Now().UTC()
	}

	before, err := json.Marshal(audit.Before)
	if err != nil {
		return fmt.Errorf("marshal before offsets: %w", err)
	}
	after, err := json.Marshal(audit.After)
	if err != nil {
		return fmt.Errorf("marshal after offsets: %w", err)
	}

	_, err = s.pool.Exec(ctx, stmt, audit.ID, audit.JobRunID, audit.VenueID, before, after, audit.DecayRate, audit.Cycle, audit.RecordedAt)
	return err
}

// ListDecayAudits returns audits newest first, filtered by venue when
// venueID is non-empty, up to limit (0 means all).
func (s *AuditStore) ListDecayAudits(ctx context.Context, venueID string, limit int) ([]domain.BiasDecayAudit, error) {
	query := `SELECT id, job_run_id, venue_id, before_offsets, after_offsets, decay_rate, cycle, recorded_at
        FROM bias_decay_audits`
	args := []any{}
	if venueID != "" {
		query += ` WHERE venue_id = $1`
		args = append(args, venueID)
	}
	query += ` ORDER BY recorded_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BiasDecayAudit
	for rows.Next() {
		var (
			audit  domain.BiasDecayAudit
			before []byte
			after  []byte
		)
		if err := rows.Scan(&audit.ID, &audit.JobRunID, &audit.VenueID, &before, &after, &audit.DecayRate, &audit.Cycle, &audit.RecordedAt); err != nil {
			return nil, err
		}
		audit.Before = make(map[domain.DayType]int)
		audit.After = make(map[domain.DayType]int)
		if len(before) > 0 {
			if err := json.Unmarshal(before, &audit.Before); err != nil {
				return nil, fmt.Errorf("unmarshal before offsets: %w", err)
			}
		}
		if len(after) > 0 {
			if err := json.Unmarshal(after, &audit.After); err != nil {
				return nil, fmt.Errorf("unmarshal after offsets: %w", err)
			}
		}
		out = append(out, audit)
	}
	return out, rows.Err()
}

func scanJob(row rowScanner) (domain.JobRecord, error) {
	var (
		record domain.JobRecord
		kind   string
		status string
	)
	err := row.Scan(&record.ID, &kind, &status, &record.VenueScope, &record.CreatedAt,
		&record.StartedAt, &record.CompletedAt, &record.VenuesProcessed,
		&record.VenuesSkipped, &record.VenuesFailed, &record.Message, &record.Error)
	if err != nil {
		return domain.JobRecord{}, err
	}
	record.Kind = domain.JobKind(kind)
	record.Status = domain.JobStatus(status)
	return record, nil
}
