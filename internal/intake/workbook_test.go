package intake

import (
	"bytes"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setRow(t *testing.T, f *excelize.File, sheet string, rowNum int, values []any) {
	t.Helper()
	for colIdx, val := range values {
		col, err := excelize.ColumnNumberToName(colIdx + 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, col+strconv.Itoa(rowNum), val))
	}
}

func TestParseActualsFile(t *testing.T) {
	f := excelize.NewFile()
	sheet := "Daily Covers"
	f.SetSheetName(f.GetSheetName(0), sheet)

	setRow(t, f, sheet, 1, []any{"Acme Hospitality covers export"})
	setRow(t, f, sheet, 3, []any{"Venue ID", "Business Date", "Total Covers", "Net Revenue"})
	setRow(t, f, sheet, 4, []any{"cafe-north", "2026-08-19", 143, "5,400.50"})
	setRow(t, f, sheet, 5, []any{"cafe-north", "2026-08-20", 98, ""})
	setRow(t, f, sheet, 6, []any{"bistro-east", "08/20/2026", "1,210", 11200})
	setRow(t, f, sheet, 7, []any{"Total", "", 451, ""})
	setRow(t, f, sheet, 8, []any{"cafe-north", "n/a", 50, ""})

	path := filepath.Join(t.TempDir(), "covers_export.xlsx")
	require.NoError(t, f.SaveAs(path))

	result, err := ParseActualsFile(path)
	require.NoError(t, err)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, 2, result.Skipped, "total row and bad date row are skipped")

	first := result.Rows[0]
	assert.Equal(t, "cafe-north", first.VenueID)
	assert.True(t, first.BusinessDate.Equal(time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 143.0, first.CoversActual)
	require.NotNil(t, first.RevenueActual)
	assert.Equal(t, 5400.50, *first.RevenueActual)
	assert.False(t, first.RecordedAt.IsZero())

	assert.Nil(t, result.Rows[1].RevenueActual)

	third := result.Rows[2]
	assert.Equal(t, "bistro-east", third.VenueID)
	assert.True(t, third.BusinessDate.Equal(time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1210.0, third.CoversActual)
}

func TestParseActualsWorkbookHeaderSynonyms(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	setRow(t, f, sheet, 1, []any{"Location", "Date", "Guests"})
	setRow(t, f, sheet, 2, []any{"bar-west", "2026-08-21", 77})

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := ParseActualsWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "bar-west", result.Rows[0].VenueID)
	assert.Equal(t, 77.0, result.Rows[0].CoversActual)
	assert.Nil(t, result.Rows[0].RevenueActual)
}

func TestParseActualsWorkbookSerialDates(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	setRow(t, f, sheet, 1, []any{"Venue", "Date", "Covers"})
	setRow(t, f, sheet, 2, []any{"cafe-north", 45888, 120})

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	result, err := ParseActualsWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.True(t, result.Rows[0].BusinessDate.Equal(time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)),
		"raw serial cells resolve to the calendar date, got %s", result.Rows[0].BusinessDate)
}

func TestParseActualsWorkbookWithoutCoversColumn(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	setRow(t, f, sheet, 1, []any{"Venue", "Business Date", "Net Revenue"})
	setRow(t, f, sheet, 2, []any{"cafe-north", "2026-08-19", 5400})

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseActualsWorkbook(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "covers sheet")
}
