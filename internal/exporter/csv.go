package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// correctedHeaders is the stable column order of the corrected-forecast
// export. New columns are appended, never inserted, so downstream sheets
// keep working.
var correctedHeaders = []string{
	"business_date",
	"shift",
	"day_type",
	"is_closed_day",
	"holiday_code",
	"covers_raw",
	"covers_corrected",
	"covers_lower",
	"covers_upper",
	"revenue_raw",
	"revenue_corrected",
	"day_type_offset",
	"holiday_offset",
	"pacing_multiplier",
	"adjustment_ratio",
	"confidence_pct",
	"forecast_run_at",
}

// ForecastExporter writes corrected forecasts as CSV.
type ForecastExporter struct {
	exportDir string
}

// NewForecastExporter creates an exporter. exportDir is only needed for
// file exports and may be empty when the exporter serves HTTP streams.
func NewForecastExporter(exportDir string) *ForecastExporter {
	return &ForecastExporter{exportDir: exportDir}
}

// WriteCorrected streams the rows to w, BOM and header first.
func (e *ForecastExporter) WriteCorrected(w io.Writer, rows []domain.CorrectedForecast) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(correctedHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(correctedRecord(row)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCorrectedFile writes the rows to a file under the export directory
// and returns its full path.
func (e *ForecastExporter) ExportCorrectedFile(venueID string, from, to time.Time, rows []domain.CorrectedForecast) (string, error) {
	if e.exportDir == "" {
		return "", fmt.Errorf("no export directory configured")
	}
	if err := os.MkdirAll(e.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("forecasts_%s_%s_%s.csv", venueID, domain.DateKey(from), domain.DateKey(to))
	fullPath := filepath.Join(e.exportDir, name)

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := e.WriteCorrected(file, rows); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return fullPath, nil
}

// Filename returns the attachment name used by the HTTP export endpoint.
func Filename(venueID string, from, to time.Time) string {
	return fmt.Sprintf("forecasts_%s_%s_%s.csv", venueID, domain.DateKey(from), domain.DateKey(to))
}

func correctedRecord(row domain.CorrectedForecast) []string {
	return []string{
		domain.DateKey(row.BusinessDate),
		string(row.Shift),
		string(row.DayType),
		formatBool(row.IsClosedDay),
		row.HolidayCode,
		formatFloat(row.CoversRaw),
		formatInt(int64(row.CoversCorrected)),
		formatOptInt(row.CoversLower),
		formatOptInt(row.CoversUpper),
		formatOptFloat(row.RevenueRaw),
		formatOptFloat(row.RevenueCorrected),
		formatInt(int64(row.DayTypeOffset)),
		formatInt(int64(row.HolidayOffset)),
		formatFloat3(row.PacingMultiplier),
		formatFloat3(row.AdjustmentRatio),
		formatOptFloat(row.ConfidencePct),
		row.ForecastRunAt.UTC().Format(time.RFC3339),
	}
}
