// Package exporter renders corrected forecasts as CSV.
//
// ForecastExporter writes one row per (business date, shift) with every
// correction layer's contribution broken out, so planners can audit in a
// spreadsheet how a number was produced. The same layout serves two
// targets: streaming straight into an HTTP response, and files under the
// configured export directory for scheduled pulls. Output starts with a
// UTF-8 BOM so Excel opens it without mangling.
package exporter
