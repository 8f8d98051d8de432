// Package http implements the HTTP handlers for the forecast correction
// service. Handlers stay thin: they parse and validate the request, call a
// service, and render the result. Business rules live in the services, error
// mapping in the shared error handler, which renders RFC 7807 problem
// responses.
//
// The forecast and admin handlers expose a Routes() chi.Router that the
// application mounts; the health probes register directly on the root
// router so they bypass the request middleware:
//
//	/api/v1/venues/...  forecast reads, accuracy, pacing, CSV export
//	/api/v1/admin/...   curator writes, actuals intake, job triggers
//	/healthz            liveness
//	/readyz             readiness
package http
