package config

// Application constants shared across the ShiftCast services.
const (
	AppName    = "ShiftCast"
	AppVersion = "1.1.0"

	// API Endpoints (internal)
	APIBasePath       = "/api/v1"
	ForecastsEndpoint = "/api/v1/venues/{venueID}/forecasts"
	AdminEndpoint     = "/api/v1/admin"
	JobsEndpoint      = "/api/v1/admin/jobs"
	HealthEndpoint    = "/healthz"
	ReadinessEndpoint = "/readyz"
	MetricsEndpoint   = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/api/v1/admin/jobs/ws"

	// Workbook intake
	ActualsWorkbookPattern = `(?i)^actuals[_-].*\.xlsx?$`

	// CSV export
	ForecastExportPrefix = "corrected_forecasts"
)
