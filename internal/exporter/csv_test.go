package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcast/pkg/contracts/domain"
)

func sampleRows() []domain.CorrectedForecast {
	lower := 95
	upper := 131
	confidence := 87.5
	revenue := 6100.0
	return []domain.CorrectedForecast{
		{
			VenueID:          "cafe-north",
			BusinessDate:     time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC),
			Shift:            domain.ShiftDinner,
			ForecastRunAt:    time.Date(2026, 8, 18, 4, 30, 0, 0, time.UTC),
			DayType:          domain.DayTypeFriday,
			HolidayCode:      "",
			CoversRaw:        110.4,
			CoversCorrected:  118,
			CoversLower:      &lower,
			CoversUpper:      &upper,
			RevenueRaw:       &revenue,
			DayTypeOffset:    8,
			HolidayOffset:    0,
			PacingMultiplier: 1.05,
			AdjustmentRatio:  1.069,
			ConfidencePct:    &confidence,
		},
		{
			VenueID:          "cafe-north",
			BusinessDate:     time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC),
			Shift:            domain.ShiftLunch,
			ForecastRunAt:    time.Date(2026, 8, 18, 4, 30, 0, 0, time.UTC),
			DayType:          domain.DayTypeSaturday,
			IsClosedDay:      true,
			CoversRaw:        64,
			CoversCorrected:  0,
			PacingMultiplier: 1.0,
			AdjustmentRatio:  0,
		},
	}
}

func TestWriteCorrected(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewForecastExporter("")
	require.NoError(t, exporter.WriteCorrected(&buf, sampleRows()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "output must start with a UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two rows")

	assert.Equal(t, correctedHeaders, records[0])

	first := records[1]
	assert.Equal(t, "2026-08-21", first[0])
	assert.Equal(t, "dinner", first[1])
	assert.Equal(t, "friday", first[2])
	assert.Equal(t, "false", first[3])
	assert.Equal(t, "110.40", first[5], "raw covers keep 2 decimal places")
	assert.Equal(t, "118", first[6])
	assert.Equal(t, "95", first[7])
	assert.Equal(t, "131", first[8])
	assert.Equal(t, "6100.00", first[9])
	assert.Equal(t, "", first[10], "absent optional values render empty")
	assert.Equal(t, "8", first[11])
	assert.Equal(t, "1.050", first[13], "multipliers keep 3 decimal places")
	assert.Equal(t, "87.50", first[15])
	assert.Equal(t, "2026-08-18T04:30:00Z", first[16])

	closed := records[2]
	assert.Equal(t, "true", closed[3])
	assert.Equal(t, "0", closed[6])
	assert.Equal(t, "", closed[15])
}

func TestWriteCorrectedEmptyStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewForecastExporter("")
	require.NoError(t, exporter.WriteCorrected(&buf, nil))

	content := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	assert.Equal(t, strings.Join(correctedHeaders, ",")+"\n", content)
}

func TestExportCorrectedFile(t *testing.T) {
	dir := t.TempDir()
	exporter := NewForecastExporter(dir)

	from := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)
	path, err := exporter.ExportCorrectedFile("cafe-north", from, to, sampleRows())
	require.NoError(t, err)
	assert.Contains(t, path, "forecasts_cafe-north_2026-08-21_2026-08-22.csv")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "business_date,shift,day_type")
	assert.Contains(t, string(data), "2026-08-21,dinner,friday")
}

func TestExportCorrectedFileWithoutDirectory(t *testing.T) {
	exporter := NewForecastExporter("")
	_, err := exporter.ExportCorrectedFile("cafe-north", time.Now(), time.Now(), nil)
	require.Error(t, err)
}
