package correction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// Corrector composes the correction layers over deduplicated raw forecasts.
// It is stateless apart from its parameters and safe for concurrent use.
type Corrector struct {
	params Params
	logger *slog.Logger
}

// NewCorrector creates a Corrector with the given pacing parameters.
func NewCorrector(params Params, logger *slog.Logger) (*Corrector, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pacing parameters: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{
		params: params,
		logger: logger.With(slog.String("component", "corrector")),
	}, nil
}

// Params returns the pacing parameters in use.
func (c *Corrector) Params() Params {
	return c.params
}

// Correct produces one corrected row per (venue, business date, shift) from
// the pre-fetched inputs. Rows are deduplicated to the latest forecast run
// first. A malformed row is logged and skipped rather than failing the whole
// read; missing enrichment data degrades each layer to its neutral value.
func (c *Corrector) Correct(ctx context.Context, in Inputs) ([]domain.CorrectedForecast, error) {
	start := time.Now()

	if err := ValidateInputs(in); err != nil {
		return nil, fmt.Errorf("invalid correction inputs: %w", err)
	}

	rows := DedupLatestRun(in.Forecasts)

	holidays := NewHolidayIndex(in.Calendar)
	regimes := NewRegimeIndex(in.Regimes)
	baselines := NewBaselineIndex(in.Baselines)
	accuracy := make(map[domain.DayType]domain.AccuracyStats, len(in.Accuracy))
	for _, st := range in.Accuracy {
		accuracy[st.DayType] = st
	}

	out := make([]domain.CorrectedForecast, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("correction cancelled: %w", ctx.Err())
		default:
		}

		if !row.Shift.Valid() || row.CoversPredicted < 0 {
			c.logger.WarnContext(ctx, "skipping malformed forecast row",
				slog.String("venue_id", row.VenueID),
				slog.String("business_date", domain.DateKey(row.BusinessDate)),
				slog.String("shift", string(row.Shift)),
				slog.Float64("covers_predicted", row.CoversPredicted))
			skipped++
			continue
		}

		out = append(out, c.composeRow(in, holidays, regimes, baselines, accuracy, row))
	}

	c.logger.InfoContext(ctx, "correction completed",
		slog.String("venue_id", in.Venue.VenueID),
		slog.Int("rows_in", len(in.Forecasts)),
		slog.Int("rows_out", len(out)),
		slog.Int("rows_skipped", skipped),
		slog.Duration("duration", time.Since(start)))

	return out, nil
}

// composeRow applies the full layer stack to one deduplicated row.
func (c *Corrector) composeRow(
	in Inputs,
	holidays *HolidayIndex,
	regimes *RegimeIndex,
	baselines BaselineIndex,
	accuracy map[domain.DayType]domain.AccuracyStats,
	row domain.RawForecast,
) domain.CorrectedForecast {
	date := domain.DateOnly(row.BusinessDate)
	holiday, hasHoliday := holidays.Lookup(row.VenueID, date)
	dayType := ResolveDayType(row.DayType, date, hasHoliday)
	closed := IsClosedDay(in.Venue, date, hasHoliday)

	out := domain.CorrectedForecast{
		VenueID:          row.VenueID,
		BusinessDate:     date,
		Shift:            row.Shift,
		ForecastRunAt:    row.ForecastRunAt,
		DayType:          dayType,
		IsClosedDay:      closed,
		CoversRaw:        row.CoversPredicted,
		RevenueRaw:       row.RevenuePredicted,
		PacingMultiplier: NeutralMultiplier,
	}
	if hasHoliday {
		out.HolidayCode = holiday.HolidayCode
	}

	// A closed day or a legitimate zero prediction short-circuits the layer
	// stack: offsets never resurrect a zero.
	if closed || row.CoversPredicted == 0 {
		return zeroRow(out, row)
	}

	if offset, ok := BiasOffset(in.Bias, dayType); ok {
		out.DayTypeOffset = offset
	}

	if hasHoliday {
		if regime, ok := regimes.Lookup(holiday.HolidayCode, in.Venue.Category); ok {
			out.HolidayOffset = regime.CoversOffset
		}
	}

	if snap, ok := SelectSnapshot(in.Snapshots, row.VenueID, date, c.params); ok {
		onHand := snap.ConfirmedCount
		out.PacingOnHand = &onHand
		if baseline, haveBaseline := baselines[dayType]; haveBaseline && baseline.TypicalOnHand > 0 {
			typical := baseline.TypicalOnHand
			out.PacingTypical = &typical
			out.PacingMultiplier = Multiplier(float64(onHand), typical, c.params)
		}
	}

	// The multiplier scales the raw base only; additive offsets layer on
	// afterwards.
	corrected := int(math.Round(row.CoversPredicted*out.PacingMultiplier +
		float64(out.DayTypeOffset) + float64(out.HolidayOffset)))
	if corrected < 0 {
		corrected = 0
	}
	out.CoversCorrected = corrected
	out.AdjustmentRatio = float64(corrected) / row.CoversPredicted

	scaleBounds(&out, row, out.AdjustmentRatio)

	if stats, ok := accuracy[dayType]; ok {
		confidence := stats.PctWithin20
		mape := stats.MAPE
		within10 := stats.PctWithin10
		out.ConfidencePct = &confidence
		out.MAPE = &mape
		out.PctWithin10 = &within10
		out.AccuracySampleSize = stats.SampleSize
	}

	return out
}

// zeroRow finalizes the all-zero output for closed days and zero raw covers,
// preserving the shape of the optional fields present on the raw row.
func zeroRow(out domain.CorrectedForecast, row domain.RawForecast) domain.CorrectedForecast {
	out.CoversCorrected = 0
	out.AdjustmentRatio = 0
	if row.CoversLower != nil {
		zero := 0
		out.CoversLower = &zero
	}
	if row.CoversUpper != nil {
		zero := 0
		out.CoversUpper = &zero
	}
	if row.RevenuePredicted != nil {
		zero := 0.0
		out.RevenueCorrected = &zero
	}
	return out
}

// scaleBounds scales revenue and cover bounds by the total adjustment ratio
// so the corrected row keeps the raw row's proportional mix.
func scaleBounds(out *domain.CorrectedForecast, row domain.RawForecast, ratio float64) {
	if row.CoversLower != nil {
		v := int(math.Round(*row.CoversLower * ratio))
		if v < 0 {
			v = 0
		}
		out.CoversLower = &v
	}
	if row.CoversUpper != nil {
		v := int(math.Round(*row.CoversUpper * ratio))
		if v < 0 {
			v = 0
		}
		out.CoversUpper = &v
	}
	if row.RevenuePredicted != nil {
		v := roundTo(*row.RevenuePredicted*ratio, 2)
		out.RevenueCorrected = &v
	}
}
