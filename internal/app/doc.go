// Package app assembles the ShiftCast server: configuration, logging,
// metrics, storage, the correction services, the background job system,
// and the HTTP router, with graceful startup and shutdown around them.
//
// The wiring order matters. Stores come up before services, services
// before transport, and the job runner is registered before the admin
// service so curator-triggered refreshes and scheduled runs flow through
// the same queue.
package app
