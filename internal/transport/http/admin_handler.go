package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "shiftcast/internal/errors"
	"shiftcast/internal/middleware"
	apiv1 "shiftcast/pkg/contracts/api/v1"
	"shiftcast/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// maxImportBytes caps uploaded workbook size.
const maxImportBytes = 20 << 20

// AdminHandler serves the curator endpoints: bias replacement, reference
// data upserts, actuals intake, and job triggers.
type AdminHandler struct {
	service    AdminOperations
	jobFeed    http.Handler
	errors     *apierrors.ErrorHandler
	validation *middleware.ValidationMiddleware
	query      *middleware.QueryParamValidator
	logger     *slog.Logger
}

// NewAdminHandler creates an admin handler. jobFeed serves the websocket
// job progress feed and may be nil when the feed is not wired.
func NewAdminHandler(service AdminOperations, jobFeed http.Handler, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("handler", "admin"))
	return &AdminHandler{
		service:    service,
		jobFeed:    jobFeed,
		errors:     errorHandler,
		validation: middleware.NewValidationMiddleware(logger, errorHandler),
		query:      middleware.NewQueryParamValidator(logger, errorHandler),
		logger:     logger,
	}
}

// Routes returns the admin routes, mounted under /api/v1/admin.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/venues", h.ListVenues)
	r.Put("/venues/{id}", h.UpsertVenue)
	r.Put("/venues/{id}/bias-records", h.ReplaceBiasRecord)
	r.Get("/venues/{id}/bias-records", h.BiasHistory)
	r.Get("/venues/{id}/decay-audits", h.DecayAudits)

	r.Post("/regimes", h.UpsertRegime)
	r.Post("/calendar", h.UpsertCalendarEntry)

	r.Post("/actuals", h.SubmitActual)
	r.Post("/actuals/import", h.ImportActuals)

	r.Post("/refresh", h.TriggerRefresh)
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{id}", h.GetJob)
	r.Get("/jobs/ws", h.JobFeed)

	return r
}

// decode unmarshals the body and runs the validator tags. A failure has
// already been rendered when the return is false.
func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validation.ValidateStruct(v); err != nil {
		h.errors.HandleError(w, r, err)
		return false
	}
	return true
}

// ReplaceBiasRecord handles PUT /api/v1/admin/venues/{id}/bias-records.
// The venue's active record is closed and the new one installed; the
// replacement starts a fresh decay lifecycle.
func (h *AdminHandler) ReplaceBiasRecord(w http.ResponseWriter, r *http.Request) {
	var req apiv1.BiasRecordReplaceRequest
	req.VenueID = chi.URLParam(r, "id")
	if !h.decodeBias(w, r, &req) {
		return
	}

	offsets := make(map[domain.DayType]int, len(req.Offsets))
	for k, v := range req.Offsets {
		offsets[domain.DayType(k)] = v
	}

	record, err := h.service.ReplaceBiasRecord(r.Context(), req.VenueID, req.CoversOffset, offsets, req.Reason)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, record)
}

// decodeBias decodes the replace request, preserving the path venue ID over
// anything in the body.
func (h *AdminHandler) decodeBias(w http.ResponseWriter, r *http.Request, req *apiv1.BiasRecordReplaceRequest) bool {
	venueID := req.VenueID
	if err := render.DecodeJSON(r.Body, req); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	req.VenueID = venueID
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errors.HandleError(w, r, err)
		return false
	}
	return true
}

// BiasHistory handles GET /api/v1/admin/venues/{id}/bias-records.
func (h *AdminHandler) BiasHistory(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 200, 20)
	if !ok {
		return
	}

	history, err := h.service.BiasHistory(r.Context(), venueID, limit)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"venue_id": venueID,
		"records":  history,
	})
}

// DecayAudits handles GET /api/v1/admin/venues/{id}/decay-audits.
func (h *AdminHandler) DecayAudits(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "id")
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 200, 20)
	if !ok {
		return
	}

	audits, err := h.service.DecayAudits(r.Context(), venueID, limit)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"venue_id": venueID,
		"audits":   audits,
	})
}

// UpsertRegime handles POST /api/v1/admin/regimes.
func (h *AdminHandler) UpsertRegime(w http.ResponseWriter, r *http.Request) {
	var req apiv1.RegimeUpsertRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.UpsertRegime(r.Context(), domain.HolidayRegimeAdjustment{
		HolidayCode:   req.HolidayCode,
		VenueCategory: domain.VenueCategory(req.VenueCategory),
		CoversOffset:  req.CoversOffset,
		MaxUpliftPct:  req.MaxUpliftPct,
		Floor:         req.Floor,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UpsertCalendarEntry handles POST /api/v1/admin/calendar.
func (h *AdminHandler) UpsertCalendarEntry(w http.ResponseWriter, r *http.Request) {
	var req apiv1.CalendarUpsertRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		h.errors.HandleError(w, r, apierrors.ErrValidation("date", "date must be in yyyy-mm-dd form"))
		return
	}

	err = h.service.UpsertCalendarEntry(r.Context(), domain.HolidayCalendarEntry{
		Date:        date,
		HolidayCode: req.HolidayCode,
		VenueID:     req.VenueID,
		Label:       req.Label,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UpsertVenue handles PUT /api/v1/admin/venues/{id}.
func (h *AdminHandler) UpsertVenue(w http.ResponseWriter, r *http.Request) {
	var req apiv1.VenueUpsertRequest
	venueID := chi.URLParam(r, "id")
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errors.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	req.VenueID = venueID
	if err := h.validation.ValidateStruct(&req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	closed := make([]time.Weekday, 0, len(req.ClosedWeekdays))
	for _, d := range req.ClosedWeekdays {
		closed = append(closed, time.Weekday(d))
	}

	err := h.service.UpsertVenue(r.Context(), domain.VenueProfile{
		VenueID:        venueID,
		Name:           req.Name,
		Category:       domain.VenueCategory(req.Category),
		ClosedWeekdays: closed,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	profile, err := h.service.GetVenue(r.Context(), venueID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, profile)
}

// ListVenues handles GET /api/v1/admin/venues.
func (h *AdminHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.service.ListVenues(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"count":  len(venues),
		"venues": venues,
	})
}

// SubmitActual handles POST /api/v1/admin/actuals, the single-row JSON
// alternative to the workbook import.
func (h *AdminHandler) SubmitActual(w http.ResponseWriter, r *http.Request) {
	var req apiv1.ActualUpsertRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := time.Parse(dateLayout, req.BusinessDate)
	if err != nil {
		h.errors.HandleError(w, r, apierrors.ErrValidation("business_date", "business_date must be in yyyy-mm-dd form"))
		return
	}

	err = h.service.SubmitActual(r.Context(), domain.ActualRecord{
		VenueID:       req.VenueID,
		BusinessDate:  date,
		CoversActual:  req.CoversActual,
		RevenueActual: req.RevenueActual,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"status": "recorded"})
}

// ImportActuals handles POST /api/v1/admin/actuals/import. The body is a
// multipart form with the workbook under the "file" field.
func (h *AdminHandler) ImportActuals(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		h.errors.HandleError(w, r, apierrors.ErrValidation("file", "request must be a multipart form with a workbook file"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errors.HandleError(w, r, apierrors.ErrValidation("file", "missing workbook file"))
		return
	}
	defer file.Close()

	summary, err := h.service.ImportActuals(r.Context(), file)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "actuals workbook imported",
		slog.String("filename", header.Filename),
		slog.Int("imported", summary.Imported))
	render.JSON(w, r, summary)
}

// TriggerRefresh handles POST /api/v1/admin/refresh, enqueueing an
// out-of-cycle venue-scoped run of the named job.
func (h *AdminHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	var req apiv1.RefreshTriggerRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.service.TriggerRefresh(r.Context(), domain.JobKind(req.Job), req.VenueID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, record)
}

// GetJob handles GET /api/v1/admin/jobs/{id}.
func (h *AdminHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, record)
}

// ListJobs handles GET /api/v1/admin/jobs.
func (h *AdminHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 200, 50)
	if !ok {
		return
	}

	records, err := h.service.Jobs(r.Context(), limit)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"count": len(records),
		"jobs":  records,
	})
}

// JobFeed handles GET /api/v1/admin/jobs/ws, upgrading to the websocket
// job progress feed.
func (h *AdminHandler) JobFeed(w http.ResponseWriter, r *http.Request) {
	if h.jobFeed == nil {
		h.errors.HandleError(w, r, apierrors.New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "job feed is not available"))
		return
	}
	h.jobFeed.ServeHTTP(w, r)
}
