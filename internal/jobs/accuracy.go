package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"shiftcast/internal/correction"
	"shiftcast/internal/infrastructure"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// CorrectedProvider supplies corrected forecasts for a venue and date range.
// The forecast service implements it; the job stays decoupled from the
// service layer.
type CorrectedProvider interface {
	CorrectedRange(ctx context.Context, venueID string, from, to time.Time) ([]domain.CorrectedForecast, error)
}

// AccuracyConfig holds the accuracy refresh settings.
type AccuracyConfig struct {
	LookbackDays int
	MinSamples   int
	Concurrency  int
	DryRun       bool
}

// AccuracyRefreshJob recomputes per-day-type accuracy summaries by pairing
// each realized daily actual against the across-shift sum of the corrected
// covers for that date. Groups with too few usable pairs keep their stored
// summary.
type AccuracyRefreshJob struct {
	stores    store.Stores
	corrected CorrectedProvider
	cfg       AccuracyConfig
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
}

// NewAccuracyRefreshJob constructs the accuracy refresh job. Metrics may be
// nil.
func NewAccuracyRefreshJob(stores store.Stores, corrected CorrectedProvider, cfg AccuracyConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *AccuracyRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &AccuracyRefreshJob{
		stores:    stores,
		corrected: corrected,
		cfg:       cfg,
		logger:    logger.With(slog.String("job", string(domain.JobKindAccuracyRefresh))),
		metrics:   metrics,
	}
}

// Kind identifies the job.
func (j *AccuracyRefreshJob) Kind() domain.JobKind { return domain.JobKindAccuracyRefresh }

// Run refreshes accuracy stats for the scoped venues with bounded fan-out.
// Venue errors are recorded on the state, never returned to the group.
func (j *AccuracyRefreshJob) Run(ctx context.Context, state *State) error {
	venues, err := scopeVenues(ctx, j.stores.Venues, state.VenueScope())
	if err != nil {
		return fmt.Errorf("resolve venues: %w", err)
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -j.cfg.LookbackDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)
	for _, venue := range venues {
		venue := venue
		g.Go(func() error {
			j.refreshVenue(gctx, state, venue, from, now)
			return nil
		})
	}
	g.Wait()

	state.SetMessage(fmt.Sprintf("refreshed accuracy stats for %d venues", len(venues)))
	return nil
}

func (j *AccuracyRefreshJob) refreshVenue(ctx context.Context, state *State, venue domain.VenueProfile, from, to time.Time) {
	logger := j.logger.With(slog.String("venue_id", venue.VenueID))

	actuals, err := j.stores.Accuracy.ListActuals(ctx, venue.VenueID, from, to)
	if err != nil {
		state.VenueFailed()
		logger.Error("load actuals", slog.String("error", err.Error()))
		return
	}
	if len(actuals) == 0 {
		state.VenueSkipped()
		logger.Debug("no actuals in window")
		return
	}

	rows, err := j.corrected.CorrectedRange(ctx, venue.VenueID, from, to)
	if err != nil {
		state.VenueFailed()
		if errors.Is(err, store.ErrStaleActiveBias) {
			j.countStale(ctx, venue.VenueID)
		}
		logger.Error("compute corrected forecasts", slog.String("error", err.Error()))
		return
	}

	// Across-shift daily totals, tagged with the day type the correction
	// run resolved for the date.
	type dayTotal struct {
		covers  float64
		dayType domain.DayType
	}
	totals := make(map[string]dayTotal)
	for _, row := range rows {
		key := domain.DateKey(row.BusinessDate)
		t := totals[key]
		t.covers += float64(row.CoversCorrected)
		t.dayType = row.DayType
		totals[key] = t
	}

	groups := make(map[domain.DayType][]correction.ErrorPair)
	for _, actual := range actuals {
		t, ok := totals[domain.DateKey(actual.BusinessDate)]
		if !ok {
			continue
		}
		groups[t.dayType] = append(groups[t.dayType], correction.ErrorPair{
			Date:     actual.BusinessDate,
			Forecast: t.covers,
			Actual:   actual.CoversActual,
		})
	}

	for dayType, pairs := range groups {
		summary, ok := correction.ComputeAccuracy(pairs, j.cfg.MinSamples)
		if !ok {
			logger.Info("skipping day-type group",
				slog.String("day_type", string(dayType)),
				slog.String("reason", "insufficient samples"),
				slog.Int("samples", summary.SampleSize),
				slog.Int("excluded", summary.Excluded),
				slog.Int("min_samples", j.cfg.MinSamples))
			continue
		}

		if j.cfg.DryRun {
			logger.Info("dry run: would update accuracy stats",
				slog.String("day_type", string(dayType)),
				slog.Float64("mape", summary.MAPE),
				slog.Float64("pct_within_20", summary.PctWithin20),
				slog.Int("samples", summary.SampleSize))
			continue
		}

		stats := domain.AccuracyStats{
			VenueID:     venue.VenueID,
			DayType:     dayType,
			MAPE:        summary.MAPE,
			PctWithin10: summary.PctWithin10,
			PctWithin20: summary.PctWithin20,
			SampleSize:  summary.SampleSize,
			ComputedAt:  to,
		}
		if err := j.stores.Accuracy.UpsertStats(ctx, stats); err != nil {
			state.VenueFailed()
			logger.Error("upsert accuracy stats",
				slog.String("day_type", string(dayType)),
				slog.String("error", err.Error()))
			return
		}
	}

	state.VenueProcessed()
}

func (j *AccuracyRefreshJob) countStale(ctx context.Context, venueID string) {
	if j.metrics != nil {
		j.metrics.StaleBiasDetected.Add(ctx, 1,
			metric.WithAttributes(attribute.String("venue.id", venueID)))
	}
}
