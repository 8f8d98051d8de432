package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shiftcast/internal/correction"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// ForecastService serves corrected and raw forecast reads. Corrections are
// composed on demand: the service gathers the venue's enrichment inputs and
// hands them to the stateless composer, so a curator edit is visible on the
// very next read.
type ForecastService struct {
	stores    store.Stores
	corrector *correction.Corrector
	logger    *slog.Logger
}

// NewForecastService creates a forecast service.
func NewForecastService(stores store.Stores, corrector *correction.Corrector, logger *slog.Logger) *ForecastService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastService{
		stores:    stores,
		corrector: corrector,
		logger:    logger.With(slog.String("service", "forecast")),
	}
}

// GetCorrected returns the corrected forecasts for a venue over [from, to],
// one row per (business date, shift), with the layer contributions broken
// out. A venue with more than one active bias record fails the read with
// store.ErrStaleActiveBias.
func (s *ForecastService) GetCorrected(ctx context.Context, venueID string, from, to time.Time) ([]domain.CorrectedForecast, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	in, err := s.assembleInputs(ctx, venueID, from, to)
	if err != nil {
		return nil, err
	}

	rows, err := s.corrector.Correct(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("correct forecasts for venue %q: %w", venueID, err)
	}
	return rows, nil
}

// CorrectedRange implements the corrected-forecast provider used by the
// accuracy refresh job.
func (s *ForecastService) CorrectedRange(ctx context.Context, venueID string, from, to time.Time) ([]domain.CorrectedForecast, error) {
	return s.GetCorrected(ctx, venueID, from, to)
}

// GetRaw returns the vendor forecasts for a venue over [from, to],
// deduplicated to the latest run per (business date, shift) but otherwise
// untouched.
func (s *ForecastService) GetRaw(ctx context.Context, venueID string, from, to time.Time) ([]domain.RawForecast, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
		return nil, fmt.Errorf("load venue %q: %w", venueID, err)
	}

	rows, err := s.stores.Forecasts.ListForecasts(ctx, venueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list forecasts for venue %q: %w", venueID, err)
	}
	return correction.DedupLatestRun(rows), nil
}

// GetAccuracy returns the venue's per-day-type accuracy summaries.
func (s *ForecastService) GetAccuracy(ctx context.Context, venueID string) ([]domain.AccuracyStats, error) {
	if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
		return nil, fmt.Errorf("load venue %q: %w", venueID, err)
	}
	stats, err := s.stores.Accuracy.ListStats(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("list accuracy stats for venue %q: %w", venueID, err)
	}
	return stats, nil
}

// PacingStatus bundles a venue's pacing baselines with the reservation
// snapshots recorded for service dates in the requested range.
type PacingStatus struct {
	VenueID   string                       `json:"venue_id"`
	Baselines []domain.PacingBaseline      `json:"baselines"`
	Snapshots []domain.ReservationSnapshot `json:"snapshots"`
}

// GetPacing returns the venue's pacing inputs for inspection: the current
// baselines and the snapshots covering [from, to].
func (s *ForecastService) GetPacing(ctx context.Context, venueID string, from, to time.Time) (PacingStatus, error) {
	if err := checkRange(from, to); err != nil {
		return PacingStatus{}, err
	}
	if _, err := s.stores.Venues.GetVenue(ctx, venueID); err != nil {
		return PacingStatus{}, fmt.Errorf("load venue %q: %w", venueID, err)
	}

	baselines, err := s.stores.Pacing.ListBaselines(ctx, venueID)
	if err != nil {
		return PacingStatus{}, fmt.Errorf("list baselines for venue %q: %w", venueID, err)
	}
	snapshots, err := s.stores.Pacing.ListSnapshots(ctx, venueID, from, to)
	if err != nil {
		return PacingStatus{}, fmt.Errorf("list snapshots for venue %q: %w", venueID, err)
	}

	return PacingStatus{VenueID: venueID, Baselines: baselines, Snapshots: snapshots}, nil
}

// assembleInputs fetches everything the composer needs for one venue and
// range. A missing bias record degrades to the neutral nil; every other
// enrichment gap is handled inside the composer per layer.
func (s *ForecastService) assembleInputs(ctx context.Context, venueID string, from, to time.Time) (correction.Inputs, error) {
	venue, err := s.stores.Venues.GetVenue(ctx, venueID)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("load venue %q: %w", venueID, err)
	}

	forecasts, err := s.stores.Forecasts.ListForecasts(ctx, venueID, from, to)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("list forecasts for venue %q: %w", venueID, err)
	}

	calendar, err := s.stores.Calendar.ListCalendar(ctx, from, to)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("list calendar: %w", err)
	}

	regimes, err := s.stores.Calendar.ListRegimes(ctx)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("list regimes: %w", err)
	}

	var bias *domain.DayTypeBiasRecord
	switch record, err := s.stores.Bias.GetActiveBias(ctx, venueID); {
	case err == nil:
		bias = &record
	case errors.Is(err, store.ErrNotFound):
		// No record yet; the bias layer stays neutral.
	default:
		return correction.Inputs{}, fmt.Errorf("load active bias for venue %q: %w", venueID, err)
	}

	baselines, err := s.stores.Pacing.ListBaselines(ctx, venueID)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("list baselines for venue %q: %w", venueID, err)
	}

	snapshots, err := s.stores.Pacing.ListSnapshots(ctx, venueID, from, to)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("list snapshots for venue %q: %w", venueID, err)
	}

	accuracy, err := s.stores.Accuracy.ListStats(ctx, venueID)
	if err != nil {
		return correction.Inputs{}, fmt.Errorf("list accuracy stats for venue %q: %w", venueID, err)
	}

	return correction.Inputs{
		Venue:     venue,
		Forecasts: forecasts,
		Calendar:  calendar,
		Regimes:   regimes,
		Bias:      bias,
		Baselines: baselines,
		Snapshots: snapshots,
		Accuracy:  accuracy,
	}, nil
}
