package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"shiftcast/internal/intake"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// JobTrigger enqueues out-of-cycle job runs and reads job records. The jobs
// runner satisfies it; the indirection keeps the admin service testable
// without a live worker pool.
type JobTrigger interface {
	Enqueue(ctx context.Context, kind domain.JobKind, venueScope string) (domain.JobRecord, error)
	Get(ctx context.Context, id string) (domain.JobRecord, error)
	List(ctx context.Context, limit int) ([]domain.JobRecord, error)
}

// AdminService implements the curator operations: bias replacement, regime
// and calendar maintenance, venue registration, actuals intake over the API,
// and out-of-cycle recalibration triggers.
type AdminService struct {
	stores  store.Stores
	trigger JobTrigger
	logger  *slog.Logger
}

// NewAdminService creates an admin service. trigger may be nil when job
// triggering is not wired, such as in the one-shot CLI.
func NewAdminService(stores store.Stores, trigger JobTrigger, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		stores:  stores,
		trigger: trigger,
		logger:  logger.With(slog.String("service", "admin")),
	}
}

// ReplaceBiasRecord closes the venue's active bias record and installs a new
// one with the given offsets. The replacement starts a fresh decay lifecycle:
// cycle zero, never decayed. The closed record stays in history untouched.
func (s *AdminService) ReplaceBiasRecord(ctx context.Context, venueID string, coversOffset int, offsets map[domain.DayType]int, reason string) (domain.DayTypeBiasRecord, error) {
	if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
		return domain.DayTypeBiasRecord{}, fmt.Errorf("load venue %q: %w", venueID, err)
	}
	for dt := range offsets {
		if !dt.Valid() {
			return domain.DayTypeBiasRecord{}, fmt.Errorf("unknown day type %q in offsets", dt)
		}
	}

	record := domain.DayTypeBiasRecord{
		VenueID:      venueID,
		CoversOffset: coversOffset,
		Offsets:      offsets,
		Reason:       reason,
		DecayCycle:   0,
		DecayedAt:    nil,
	}

	stored, err := s.stores.Bias.ReplaceBias(ctx, record)
	if err != nil {
		return domain.DayTypeBiasRecord{}, fmt.Errorf("replace bias for venue %q: %w", venueID, err)
	}

	s.logger.InfoContext(ctx, "bias record replaced",
		slog.String("venue_id", venueID),
		slog.String("record_id", stored.ID),
		slog.String("reason", reason))
	return stored, nil
}

// BiasHistory returns the venue's bias records newest first.
func (s *AdminService) BiasHistory(ctx context.Context, venueID string, limit int) ([]domain.DayTypeBiasRecord, error) {
	if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
		return nil, fmt.Errorf("load venue %q: %w", venueID, err)
	}
	history, err := s.stores.Bias.ListBiasHistory(ctx, venueID, limit)
	if err != nil {
		return nil, fmt.Errorf("list bias history for venue %q: %w", venueID, err)
	}
	return history, nil
}

// DecayAudits returns the venue's decay audit trail newest first.
func (s *AdminService) DecayAudits(ctx context.Context, venueID string, limit int) ([]domain.BiasDecayAudit, error) {
	if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
		return nil, fmt.Errorf("load venue %q: %w", venueID, err)
	}
	audits, err := s.stores.Audit.ListDecayAudits(ctx, venueID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decay audits for venue %q: %w", venueID, err)
	}
	return audits, nil
}

// UpsertRegime creates or updates a (holiday code, venue category) regime
// adjustment row.
func (s *AdminService) UpsertRegime(ctx context.Context, adj domain.HolidayRegimeAdjustment) error {
	if adj.HolidayCode == "" || adj.VenueCategory == "" {
		return fmt.Errorf("regime row needs a holiday code and a venue category")
	}
	if adj.UpdatedAt.IsZero() {
		adj.UpdatedAt = time.Now().UTC()
	}
	if err := s.stores.Calendar.UpsertRegime(ctx, adj); err != nil {
		return fmt.Errorf("upsert regime %s/%s: %w", adj.HolidayCode, adj.VenueCategory, err)
	}
	s.logger.InfoContext(ctx, "regime upserted",
		slog.String("holiday_code", adj.HolidayCode),
		slog.String("venue_category", string(adj.VenueCategory)),
		slog.Int("covers_offset", adj.CoversOffset))
	return nil
}

// UpsertCalendarEntry creates or updates a holiday calendar entry. An entry
// with an empty venue ID is global; a venue-specific entry must name a
// registered venue.
func (s *AdminService) UpsertCalendarEntry(ctx context.Context, entry domain.HolidayCalendarEntry) error {
	if entry.HolidayCode == "" {
		return fmt.Errorf("calendar entry needs a holiday code")
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("calendar entry needs a date")
	}
	if entry.VenueID != "" {
		if _, err := s.stores.Venues.GetVenue(ctx, entry.VenueID); err != nil {
			return fmt.Errorf("load venue %q: %w", entry.VenueID, err)
		}
	}
	entry.Date = domain.DateOnly(entry.Date)
	if err := s.stores.Calendar.UpsertCalendarEntry(ctx, entry); err != nil {
		return fmt.Errorf("upsert calendar entry %s %s: %w", domain.DateKey(entry.Date), entry.HolidayCode, err)
	}
	s.logger.InfoContext(ctx, "calendar entry upserted",
		slog.String("date", domain.DateKey(entry.Date)),
		slog.String("holiday_code", entry.HolidayCode),
		slog.String("venue_id", entry.VenueID))
	return nil
}

// UpsertVenue registers a venue or updates its classification.
func (s *AdminService) UpsertVenue(ctx context.Context, profile domain.VenueProfile) error {
	if profile.VenueID == "" {
		return fmt.Errorf("venue needs an ID")
	}
	if profile.Category == "" {
		return fmt.Errorf("venue %q needs a category", profile.VenueID)
	}
	for _, w := range profile.ClosedWeekdays {
		if w < time.Sunday || w > time.Saturday {
			return fmt.Errorf("venue %q: invalid closed weekday %d", profile.VenueID, w)
		}
	}
	if err := s.stores.Venues.UpsertVenue(ctx, profile); err != nil {
		return fmt.Errorf("upsert venue %q: %w", profile.VenueID, err)
	}
	s.logger.InfoContext(ctx, "venue upserted",
		slog.String("venue_id", profile.VenueID),
		slog.String("category", string(profile.Category)))
	return nil
}

// GetVenue returns one venue profile.
func (s *AdminService) GetVenue(ctx context.Context, venueID string) (domain.VenueProfile, error) {
	profile, err := s.stores.Venues.GetVenue(ctx, venueID)
	if err != nil {
		return domain.VenueProfile{}, fmt.Errorf("load venue %q: %w", venueID, err)
	}
	return profile, nil
}

// ListVenues returns every registered venue.
func (s *AdminService) ListVenues(ctx context.Context) ([]domain.VenueProfile, error) {
	venues, err := s.stores.Venues.ListVenues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	return venues, nil
}

// TriggerRefresh enqueues an out-of-cycle run of the named job, optionally
// scoped to one venue. The record comes back pending; progress is observable
// through the jobs API and the websocket feed.
func (s *AdminService) TriggerRefresh(ctx context.Context, kind domain.JobKind, venueID string) (domain.JobRecord, error) {
	if s.trigger == nil {
		return domain.JobRecord{}, fmt.Errorf("job triggering is not available")
	}
	if !kind.Valid() {
		return domain.JobRecord{}, fmt.Errorf("%w: %q", ErrUnknownJobKind, kind)
	}
	if venueID != "" {
		if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
			return domain.JobRecord{}, fmt.Errorf("load venue %q: %w", venueID, err)
		}
	}

	record, err := s.trigger.Enqueue(ctx, kind, venueID)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("enqueue %s: %w", kind, err)
	}

	s.logger.InfoContext(ctx, "refresh triggered",
		slog.String("job", string(kind)),
		slog.String("job_id", record.ID),
		slog.String("venue_scope", venueID))
	return record, nil
}

// Job returns one job record by ID.
func (s *AdminService) Job(ctx context.Context, id string) (domain.JobRecord, error) {
	if s.trigger == nil {
		return domain.JobRecord{}, fmt.Errorf("job triggering is not available")
	}
	record, err := s.trigger.Get(ctx, id)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("load job %q: %w", id, err)
	}
	return record, nil
}

// Jobs returns recent job records newest first.
func (s *AdminService) Jobs(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	if s.trigger == nil {
		return nil, fmt.Errorf("job triggering is not available")
	}
	records, err := s.trigger.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return records, nil
}

// ImportSummary reports the outcome of an actuals workbook import.
type ImportSummary struct {
	Imported         int `json:"imported"`
	SkippedRows      int `json:"skipped_rows"`
	UnknownVenueRows int `json:"unknown_venue_rows"`
}

// ImportActuals parses a POS covers workbook and appends the usable rows.
// Rows naming venues that are not registered are dropped and counted, the
// rest of the import proceeds.
func (s *AdminService) ImportActuals(ctx context.Context, r io.Reader) (ImportSummary, error) {
	result, err := intake.ParseActualsWorkbook(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("parse actuals workbook: %w", err)
	}

	venues, err := s.stores.Venues.ListVenues(ctx)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("list venues: %w", err)
	}
	known := make(map[string]bool, len(venues))
	for _, v := range venues {
		known[v.VenueID] = true
	}

	summary := ImportSummary{SkippedRows: result.Skipped}
	keep := make([]domain.ActualRecord, 0, len(result.Rows))
	for _, row := range result.Rows {
		if !known[row.VenueID] {
			summary.UnknownVenueRows++
			s.logger.WarnContext(ctx, "dropping actuals row for unregistered venue",
				slog.String("venue_id", row.VenueID),
				slog.String("business_date", domain.DateKey(row.BusinessDate)))
			continue
		}
		keep = append(keep, row)
	}

	if len(keep) > 0 {
		if err := s.stores.Accuracy.AppendActuals(ctx, keep); err != nil {
			return ImportSummary{}, fmt.Errorf("append actuals: %w", err)
		}
	}
	summary.Imported = len(keep)

	s.logger.InfoContext(ctx, "actuals workbook imported",
		slog.Int("imported", summary.Imported),
		slog.Int("skipped_rows", summary.SkippedRows),
		slog.Int("unknown_venue_rows", summary.UnknownVenueRows))
	return summary, nil
}

// SubmitActual appends one realized-actuals row submitted over the API.
func (s *AdminService) SubmitActual(ctx context.Context, row domain.ActualRecord) error {
	if _, err := s.stores.Venues.GetVenue(ctx, row.VenueID); err != nil {
		return fmt.Errorf("load venue %q: %w", row.VenueID, err)
	}
	if row.CoversActual < 0 {
		return fmt.Errorf("covers cannot be negative: %f", row.CoversActual)
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	row.BusinessDate = domain.DateOnly(row.BusinessDate)

	if err := s.stores.Accuracy.AppendActuals(ctx, []domain.ActualRecord{row}); err != nil {
		return fmt.Errorf("append actual for venue %q: %w", row.VenueID, err)
	}
	return nil
}
