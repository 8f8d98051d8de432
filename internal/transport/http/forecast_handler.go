package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "shiftcast/internal/errors"
	"shiftcast/internal/exporter"
	"shiftcast/internal/middleware"
	"shiftcast/pkg/contracts/domain"
)

// defaultHorizonDays is the forecast window served when the request carries
// no explicit range: today through the next operational planning horizon.
const defaultHorizonDays = 13

// ForecastHandler serves the per-venue forecast read endpoints.
type ForecastHandler struct {
	service  ForecastReader
	exporter *exporter.ForecastExporter
	errors   *apierrors.ErrorHandler
	query    *middleware.QueryParamValidator
	logger   *slog.Logger
}

// NewForecastHandler creates a forecast handler.
func NewForecastHandler(service ForecastReader, exp *exporter.ForecastExporter, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("handler", "forecast"))
	return &ForecastHandler{
		service:  service,
		exporter: exp,
		errors:   errorHandler,
		query:    middleware.NewQueryParamValidator(logger, errorHandler),
		logger:   logger,
	}
}

// Routes returns the venue-scoped forecast routes.
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/forecasts", h.GetForecasts)
	r.Get("/{id}/forecasts/export", h.ExportForecasts)
	r.Get("/{id}/accuracy", h.GetAccuracy)
	r.Get("/{id}/pacing", h.GetPacing)
	return r
}

type correctedForecastsResponse struct {
	VenueID string                     `json:"venue_id"`
	From    string                     `json:"from"`
	To      string                     `json:"to"`
	Count   int                        `json:"count"`
	Rows    []domain.CorrectedForecast `json:"rows"`
}

type rawForecastsResponse struct {
	VenueID string               `json:"venue_id"`
	From    string               `json:"from"`
	To      string               `json:"to"`
	Count   int                  `json:"count"`
	Rows    []domain.RawForecast `json:"rows"`
}

// GetForecasts handles GET /api/v1/venues/{id}/forecasts. The default view
// is the corrected rows; ?raw=true returns the deduplicated vendor rows
// instead.
func (h *ForecastHandler) GetForecasts(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	raw, ok := h.query.ValidateBool(w, r, "raw", false)
	if !ok {
		return
	}

	if raw {
		rows, err := h.service.GetRaw(r.Context(), venueID, from, to)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, rawForecastsResponse{
			VenueID: venueID,
			From:    domain.DateKey(from),
			To:      domain.DateKey(to),
			Count:   len(rows),
			Rows:    rows,
		})
		return
	}

	rows, err := h.service.GetCorrected(r.Context(), venueID, from, to)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, correctedForecastsResponse{
		VenueID: venueID,
		From:    domain.DateKey(from),
		To:      domain.DateKey(to),
		Count:   len(rows),
		Rows:    rows,
	})
}

// ExportForecasts handles GET /api/v1/venues/{id}/forecasts/export,
// streaming the corrected rows as a CSV attachment.
func (h *ForecastHandler) ExportForecasts(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	rows, err := h.service.GetCorrected(r.Context(), venueID, from, to)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.Filename(venueID, from, to)))
	if err := h.exporter.WriteCorrected(w, rows); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		h.logger.ErrorContext(r.Context(), "csv export stream failed",
			slog.String("venue_id", venueID),
			slog.String("error", err.Error()))
	}
}

type accuracyResponse struct {
	VenueID string                 `json:"venue_id"`
	Stats   []domain.AccuracyStats `json:"stats"`
}

// GetAccuracy handles GET /api/v1/venues/{id}/accuracy.
func (h *ForecastHandler) GetAccuracy(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")

	stats, err := h.service.GetAccuracy(r.Context(), venueID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, accuracyResponse{VenueID: venueID, Stats: stats})
}

// GetPacing handles GET /api/v1/venues/{id}/pacing.
func (h *ForecastHandler) GetPacing(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")
	from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetPacing(r.Context(), venueID, from, to)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, status)
}

// rangeParams reads the from/to query params, defaulting to the operational
// horizon starting today. A validation failure has already been rendered
// when ok is false.
func (h *ForecastHandler) rangeParams(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	today := domain.DateOnly(time.Now().UTC())
	from, ok = h.query.ValidateDate(w, r, "from", today)
	if !ok {
		return
	}
	to, ok = h.query.ValidateDate(w, r, "to", from.AddDate(0, 0, defaultHorizonDays))
	if !ok {
		return
	}
	return from, to, true
}
