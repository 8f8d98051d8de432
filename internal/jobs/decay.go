package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"shiftcast/internal/correction"
	"shiftcast/internal/infrastructure"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// DecayConfig holds the decay job settings.
type DecayConfig struct {
	Params correction.DecayParams
	// Cadence guards idempotence: a venue already decayed within one cadence
	// interval is skipped, so an interrupted run can be repeated without
	// compounding the decay.
	Cadence time.Duration
	DryRun  bool
}

// DecayJob relaxes every venue's per-day-type bias offsets toward zero by
// one cycle. The generic covers offset and the holiday key are left alone;
// each decayed venue gets a new bias record version plus an audit row.
type DecayJob struct {
	stores  store.Stores
	cfg     DecayConfig
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewDecayJob constructs the decay job. Metrics may be nil.
func NewDecayJob(stores store.Stores, cfg DecayConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *DecayJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecayJob{
		stores:  stores,
		cfg:     cfg,
		logger:  logger.With(slog.String("job", string(domain.JobKindBiasDecay))),
		metrics: metrics,
	}
}

// Kind identifies the job.
func (j *DecayJob) Kind() domain.JobKind { return domain.JobKindBiasDecay }

// Run applies one decay cycle across the scoped venues.
func (j *DecayJob) Run(ctx context.Context, state *State) error {
	if err := j.cfg.Params.Validate(); err != nil {
		return fmt.Errorf("decay parameters: %w", err)
	}

	venues, err := scopeVenues(ctx, j.stores.Venues, state.VenueScope())
	if err != nil {
		return fmt.Errorf("resolve venues: %w", err)
	}

	now := time.Now().UTC()
	decayedSince := now.Add(-j.cfg.Cadence)

	decayed := 0
	for _, venue := range venues {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if j.decayVenue(ctx, state, venue, now, decayedSince) {
			decayed++
		}
	}

	if j.cfg.DryRun {
		state.SetMessage(fmt.Sprintf("dry run: would decay %d of %d venues", decayed, len(venues)))
	} else {
		state.SetMessage(fmt.Sprintf("decayed %d of %d venues", decayed, len(venues)))
	}
	return nil
}

// decayVenue handles one venue and reports whether a decay was applied (or
// would have been, under dry run).
func (j *DecayJob) decayVenue(ctx context.Context, state *State, venue domain.VenueProfile, now time.Time, decayedSince time.Time) bool {
	logger := j.logger.With(slog.String("venue_id", venue.VenueID))

	record, err := j.stores.Bias.GetActiveBias(ctx, venue.VenueID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state.VenueSkipped()
		return false
	case errors.Is(err, store.ErrStaleActiveBias):
		state.VenueFailed()
		j.countStale(ctx, venue.VenueID)
		logger.Error("stale active bias record, venue left untouched",
			slog.String("error", err.Error()))
		return false
	case err != nil:
		state.VenueFailed()
		logger.Error("load active bias", slog.String("error", err.Error()))
		return false
	}

	if !correction.DecayEligible(record, j.cfg.Params, decayedSince) {
		state.VenueSkipped()
		logger.Debug("decay not applicable",
			slog.Int("offset_count", len(record.Offsets)),
			slog.Int("decay_cycle", record.DecayCycle))
		return false
	}

	next, changed := correction.DecayOffsets(record.Offsets, j.cfg.Params)
	if !changed {
		state.VenueSkipped()
		logger.Debug("offsets unchanged by decay")
		return false
	}

	zeroed := 0
	for dayType, old := range record.Offsets {
		if old != 0 && next[dayType] == 0 {
			zeroed++
		}
	}

	if j.cfg.DryRun {
		state.VenueProcessed()
		logger.Info("dry run: would decay offsets",
			slog.Any("before", record.Offsets),
			slog.Any("after", next),
			slog.Int("cycle", record.DecayCycle+1))
		return true
	}

	replacement := domain.DayTypeBiasRecord{
		VenueID:      venue.VenueID,
		CoversOffset: record.CoversOffset,
		Offsets:      next,
		Reason:       fmt.Sprintf("scheduled decay cycle %d", record.DecayCycle+1),
		DecayCycle:   record.DecayCycle + 1,
		DecayedAt:    &now,
	}
	stored, err := j.stores.Bias.ReplaceBias(ctx, replacement)
	if err != nil {
		state.VenueFailed()
		if errors.Is(err, store.ErrStaleActiveBias) {
			j.countStale(ctx, venue.VenueID)
		}
		logger.Error("replace bias record", slog.String("error", err.Error()))
		return false
	}

	audit := domain.BiasDecayAudit{
		JobRunID:   state.RunID(),
		VenueID:    venue.VenueID,
		Before:     record.CloneOffsets(),
		After:      stored.CloneOffsets(),
		DecayRate:  j.cfg.Params.Rate,
		Cycle:      stored.DecayCycle,
		RecordedAt: now,
	}
	if err := j.stores.Audit.AppendDecayAudit(ctx, audit); err != nil {
		logger.Error("append decay audit", slog.String("error", err.Error()))
	}

	if j.metrics != nil && zeroed > 0 {
		j.metrics.BiasOffsetsZeroed.Add(ctx, int64(zeroed),
			metric.WithAttributes(attribute.String("venue.id", venue.VenueID)))
	}

	state.VenueProcessed()
	logger.Info("bias offsets decayed",
		slog.Int("cycle", stored.DecayCycle),
		slog.Int("zeroed", zeroed))
	return true
}

func (j *DecayJob) countStale(ctx context.Context, venueID string) {
	if j.metrics != nil {
		j.metrics.StaleBiasDetected.Add(ctx, 1,
			metric.WithAttributes(attribute.String("venue.id", venueID)))
	}
}
