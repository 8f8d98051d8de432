// Package intake ingests the three upstream data streams that feed the
// correction pipeline: raw forecast runs from the vendor model, reservation
// snapshots from the booking system, and realized actuals from the POS
// bridge.
//
// Streaming intake consumes Kafka topics through a Processor that decodes
// records and dispatches them to a Handler. Malformed records are committed
// and counted rather than retried, so one bad payload can never wedge a
// partition. Handler errors leave the offset uncommitted and the record is
// redelivered.
//
// Batch intake covers venues without a POS bridge: ParseActualsWorkbook
// reads an exported .xlsx of daily covers and returns rows ready for the
// actuals store, skipping rows it cannot use and reporting why.
package intake
