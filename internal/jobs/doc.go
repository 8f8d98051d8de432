// Package jobs runs the scheduled recalibration tasks that keep the
// correction layers honest: bias decay, pacing baseline refresh and
// accuracy refresh.
//
// Core components:
//
// Job: a named unit of batch work executed against a mutable State. The
// three shipped jobs iterate venues independently; a venue failure is
// counted and logged, never propagated, so one bad venue cannot abort the
// run for the rest.
//
// Runner: a worker pool that executes queued jobs with panic recovery and
// persists every state transition as a JobRecord through the audit store.
// It also exposes a synchronous path for the one-shot CLI.
//
// Scheduler: ticker loops that enqueue each job kind at its configured
// cadence. Out-of-cycle runs are enqueued by the admin API through the
// same Runner.
//
// State transitions are published to an optional Notifier, which the
// WebSocket hub implements to stream job progress to admin clients.
package jobs
