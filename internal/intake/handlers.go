package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
	"shiftcast/pkg/contracts/events"
)

// StoreHandler persists decoded intake events into the stores. Unknown
// event types are acknowledged and ignored so that producers can roll out
// new event versions ahead of the consumer.
type StoreHandler struct {
	stores store.Stores
	logger *slog.Logger
}

// NewStoreHandler constructs a handler over the store bundle.
func NewStoreHandler(stores store.Stores, logger *slog.Logger) *StoreHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreHandler{
		stores: stores,
		logger: logger.With(slog.String("component", "intake")),
	}
}

// Handle dispatches one decoded record to the matching store write.
func (h *StoreHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeForecastRunPublished:
		return h.handleForecastRun(ctx, msg)
	case events.TypeSnapshotRecorded:
		return h.handleSnapshot(ctx, msg)
	case events.TypeActualsRecorded:
		return h.handleActuals(ctx, msg)
	default:
		h.logger.Debug("ignoring unknown event type",
			slog.String("topic", msg.Topic),
			slog.String("event_type", msg.EventType))
		return nil
	}
}

func (h *StoreHandler) handleForecastRun(ctx context.Context, msg Message) error {
	var evt events.ForecastRunPublished
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("%w: decode forecast run: %v", ErrMalformed, err)
	}
	if evt.ForecastRunAt.IsZero() {
		return fmt.Errorf("%w: forecast run %q has no run timestamp", ErrMalformed, evt.RunID)
	}

	rows := make([]domain.RawForecast, 0, len(evt.Rows))
	for i, wire := range evt.Rows {
		row, err := convertForecastRow(wire, evt.ForecastRunAt)
		if err != nil {
			h.logger.Warn("skipping forecast row",
				slog.String("run_id", evt.RunID),
				slog.Int("row", i),
				slog.String("error", err.Error()))
			recordRowSkipped()
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		h.logger.Info("forecast run carried no usable rows", slog.String("run_id", evt.RunID))
		return nil
	}

	if err := h.stores.Forecasts.AppendForecasts(ctx, rows); err != nil {
		return fmt.Errorf("append forecasts: %w", err)
	}
	h.logger.Info("forecast run ingested",
		slog.String("run_id", evt.RunID),
		slog.Time("forecast_run_at", evt.ForecastRunAt),
		slog.Int("rows", len(rows)))
	return nil
}

func (h *StoreHandler) handleSnapshot(ctx context.Context, msg Message) error {
	var evt events.SnapshotRecorded
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("%w: decode snapshot: %v", ErrMalformed, err)
	}
	if evt.VenueID == "" {
		return fmt.Errorf("%w: snapshot has no venue_id", ErrMalformed)
	}
	date, err := parseBusinessDate(evt.BusinessDate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if evt.SnapshotAt.IsZero() {
		return fmt.Errorf("%w: snapshot has no snapshot_at", ErrMalformed)
	}
	if evt.ConfirmedCount < 0 || evt.HoursToService < 0 {
		return fmt.Errorf("%w: snapshot has negative count or lead time", ErrMalformed)
	}

	snapshot := domain.ReservationSnapshot{
		VenueID:        evt.VenueID,
		BusinessDate:   date,
		SnapshotAt:     evt.SnapshotAt.UTC(),
		ConfirmedCount: evt.ConfirmedCount,
		HoursToService: evt.HoursToService,
	}
	if err := h.stores.Pacing.AppendSnapshots(ctx, []domain.ReservationSnapshot{snapshot}); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

func (h *StoreHandler) handleActuals(ctx context.Context, msg Message) error {
	var evt events.ActualsRecorded
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("%w: decode actuals: %v", ErrMalformed, err)
	}
	if evt.VenueID == "" {
		return fmt.Errorf("%w: actuals have no venue_id", ErrMalformed)
	}
	date, err := parseBusinessDate(evt.BusinessDate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if evt.CoversActual < 0 {
		return fmt.Errorf("%w: negative covers_actual %.2f", ErrMalformed, evt.CoversActual)
	}

	recordedAt := evt.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = msg.Timestamp
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	row := domain.ActualRecord{
		VenueID:       evt.VenueID,
		BusinessDate:  date,
		CoversActual:  evt.CoversActual,
		RevenueActual: evt.RevenueActual,
		RecordedAt:    recordedAt.UTC(),
	}
	if err := h.stores.Accuracy.AppendActuals(ctx, []domain.ActualRecord{row}); err != nil {
		return fmt.Errorf("append actuals: %w", err)
	}
	return nil
}

func convertForecastRow(wire events.ForecastRow, runAt time.Time) (domain.RawForecast, error) {
	if wire.VenueID == "" {
		return domain.RawForecast{}, fmt.Errorf("missing venue_id")
	}
	date, err := parseBusinessDate(wire.BusinessDate)
	if err != nil {
		return domain.RawForecast{}, err
	}
	shift, err := domain.ParseShift(wire.Shift)
	if err != nil {
		return domain.RawForecast{}, err
	}
	if wire.CoversPredicted < 0 {
		return domain.RawForecast{}, fmt.Errorf("negative covers_predicted %.2f", wire.CoversPredicted)
	}

	// The vendor's day_type is a hint the pipeline re-derives anyway, so an
	// unknown value degrades to no hint instead of losing the row.
	var dayType *domain.DayType
	if wire.DayType != "" {
		if dt, err := domain.ParseDayType(wire.DayType); err == nil {
			dayType = &dt
		}
	}

	return domain.RawForecast{
		VenueID:          wire.VenueID,
		BusinessDate:     date,
		Shift:            shift,
		ForecastRunAt:    runAt.UTC(),
		CoversPredicted:  wire.CoversPredicted,
		CoversLower:      wire.CoversLower,
		CoversUpper:      wire.CoversUpper,
		RevenuePredicted: wire.RevenuePredicted,
		DayType:          dayType,
	}, nil
}

func parseBusinessDate(s string) (time.Time, error) {
	date, err := time.Parse(events.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("business date %q: %v", s, err)
	}
	return date, nil
}
