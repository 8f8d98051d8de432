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

// AuditStore is an in-memory job record and decay audit store.
type AuditStore struct {
	mu     sync.RWMutex
	jobs   map[string]domain.JobRecord
	order  []string
	audits []domain.BiasDecayAudit
}

// NewAuditStore constructs an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{jobs: make(map[string]domain.JobRecord)}
}

// CreateJob inserts a new job record, assigning an ID when unset.
func (s *AuditStore) CreateJob(ctx context.Context, record domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if _, exists := s.jobs[record.ID]; exists {
		return fmt.Errorf("job %q: %w", record.ID, store.ErrConflict)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	s.jobs[record.ID] = record
	s.order = append(s.order, record.ID)
	return nil
}

// UpdateJob replaces an existing job record.
func (s *AuditStore) UpdateJob(ctx context.Context, record domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[record.ID]; !exists {
		return fmt.Errorf("job %q: %w", record.ID, store.ErrNotFound)
	}
	s.jobs[record.ID] = record
	return nil
}

// GetJob returns a job record by ID.
func (s *AuditStore) GetJob(ctx context.Context, id string) (domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.jobs[id]
	if !ok {
		return domain.JobRecord{}, fmt.Errorf("job %q: %w", id, store.ErrNotFound)
	}
	return record, nil
}

// ListJobs returns records newest first, up to limit (0 means all).
func (s *AuditStore) ListJobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.JobRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.jobs[s.order[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// AppendDecayAudit appends one decay audit row.
func (s *AuditStore) AppendDecayAudit(ctx context.Context, audit domain.BiasDecayAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.RecordedAt.IsZero() {
		audit.RecordedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, audit)
	return nil
}

// ListDecayAudits returns audits newest first, filtered by venue when
// venueID is non-empty, up to limit (0 means all).
func (s *AuditStore) ListDecayAudits(ctx context.Context, venueID string, limit int) ([]domain.BiasDecayAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.BiasDecayAudit
	for i := len(s.audits) - 1; i >= 0; i-- {
		audit := s.audits[i]
		if venueID != "" && audit.VenueID != venueID {
			continue
		}
		out = append(out, audit)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
