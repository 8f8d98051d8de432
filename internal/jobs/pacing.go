package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"shiftcast/internal/correction"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// PacingConfig holds the pacing refresh settings.
type PacingConfig struct {
	// Params supplies the snapshot lead-time window; checkpoints are picked
	// with the same rule the correction pipeline uses at read time.
	Params       correction.Params
	LookbackDays int
	MinSamples   int
	Concurrency  int
	DryRun       bool
}

// PacingRefreshJob recomputes each venue's typical on-hand booking count
// per day type from the trailing snapshot window. Day-type groups with too
// few observations keep their stored baseline.
type PacingRefreshJob struct {
	stores store.Stores
	cfg    PacingConfig
	logger *slog.Logger
}

// NewPacingRefreshJob constructs the pacing refresh job.
func NewPacingRefreshJob(stores store.Stores, cfg PacingConfig, logger *slog.Logger) *PacingRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &PacingRefreshJob{
		stores: stores,
		cfg:    cfg,
		logger: logger.With(slog.String("job", string(domain.JobKindPacingRefresh))),
	}
}

// Kind identifies the job.
func (j *PacingRefreshJob) Kind() domain.JobKind { return domain.JobKindPacingRefresh }

// Run refreshes baselines for the scoped venues with bounded fan-out.
// Venue errors are recorded on the state, never returned to the group.
func (j *PacingRefreshJob) Run(ctx context.Context, state *State) error {
	if err := j.cfg.Params.Validate(); err != nil {
		return fmt.Errorf("pacing parameters: %w", err)
	}

	venues, err := scopeVenues(ctx, j.stores.Venues, state.VenueScope())
	if err != nil {
		return fmt.Errorf("resolve venues: %w", err)
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -j.cfg.LookbackDays)

	entries, err := j.stores.Calendar.ListCalendar(ctx, from, now)
	if err != nil {
		return fmt.Errorf("load holiday calendar: %w", err)
	}
	holidays := correction.NewHolidayIndex(entries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)
	for _, venue := range venues {
		venue := venue
		g.Go(func() error {
			j.refreshVenue(gctx, state, venue, holidays, from, now)
			return nil
		})
	}
	g.Wait()

	state.SetMessage(fmt.Sprintf("refreshed pacing baselines for %d venues", len(venues)))
	return nil
}

func (j *PacingRefreshJob) refreshVenue(ctx context.Context, state *State, venue domain.VenueProfile, holidays *correction.HolidayIndex, from, to time.Time) {
	logger := j.logger.With(slog.String("venue_id", venue.VenueID))

	snapshots, err := j.stores.Pacing.ListSnapshots(ctx, venue.VenueID, from, to)
	if err != nil {
		state.VenueFailed()
		logger.Error("load reservation snapshots", slog.String("error", err.Error()))
		return
	}

	// One checkpoint per business date, then grouped by day type.
	dates := make(map[string]time.Time)
	for _, snap := range snapshots {
		dates[domain.DateKey(snap.BusinessDate)] = snap.BusinessDate
	}

	groups := make(map[domain.DayType][]float64)
	for _, date := range dates {
		checkpoint, ok := correction.SelectSnapshot(snapshots, venue.VenueID, date, j.cfg.Params)
		if !ok {
			continue
		}
		_, holiday := holidays.Lookup(venue.VenueID, date)
		dayType := correction.ResolveDayType(nil, date, holiday)
		groups[dayType] = append(groups[dayType], float64(checkpoint.ConfirmedCount))
	}

	if len(groups) == 0 {
		state.VenueSkipped()
		logger.Debug("no snapshots inside the checkpoint window")
		return
	}

	for dayType, counts := range groups {
		if len(counts) < j.cfg.MinSamples {
			logger.Info("skipping day-type group",
				slog.String("day_type", string(dayType)),
				slog.String("reason", "insufficient samples"),
				slog.Int("samples", len(counts)),
				slog.Int("min_samples", j.cfg.MinSamples))
			continue
		}

		typical := correction.Median(counts)
		if j.cfg.DryRun {
			logger.Info("dry run: would update baseline",
				slog.String("day_type", string(dayType)),
				slog.Float64("typical_on_hand", typical),
				slog.Int("samples", len(counts)))
			continue
		}

		baseline := domain.PacingBaseline{
			VenueID:       venue.VenueID,
			DayType:       dayType,
			TypicalOnHand: typical,
			SampleSize:    len(counts),
			ComputedAt:    to,
		}
		if err := j.stores.Pacing.UpsertBaseline(ctx, baseline); err != nil {
			state.VenueFailed()
			logger.Error("upsert pacing baseline",
				slog.String("day_type", string(dayType)),
				slog.String("error", err.Error()))
			return
		}
	}

	state.VenueProcessed()
}
