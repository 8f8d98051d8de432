// Package services implements the business logic layer between the HTTP
// handlers and the stores. Handlers stay thin: they decode and validate
// requests, call a service, and render the result; services own the
// composition rules, error wrapping, and cross-store coordination.
//
// # Available services
//
//   - ForecastService: corrected and raw forecast reads. It assembles the
//     enrichment inputs for a venue and date range and runs the correction
//     composer. It also backs the accuracy refresh job's corrected reads.
//   - AdminService: curator operations. Bias record replacement, regime and
//     calendar upserts, venue registration, actuals import, and
//     out-of-cycle job triggers.
//   - HealthService: liveness, readiness (store ping), and enrichment
//     freshness.
//
// # Error handling
//
// Services return wrapped store sentinels (store.ErrNotFound,
// store.ErrStaleActiveBias, store.ErrConflict) rather than HTTP errors;
// the transport layer maps them to API responses. Input shape validation
// happens in the handlers via the request DTOs, so services only enforce
// semantic rules the DTOs cannot express.
package services
