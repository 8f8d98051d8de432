package intake

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"shiftcast/pkg/contracts/domain"
)

// WorkbookResult summarizes one parsed actuals workbook.
type WorkbookResult struct {
	Rows    []domain.ActualRecord
	Skipped int
}

// Sheet names POS systems commonly use for the covers export.
var actualsSheetNames = []string{"Covers", "Daily Covers", "Actuals", "Export", "Sheet1"}

var workbookDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"02-Jan-06",
	"2-Jan-2006",
	"January 2, 2006",
}

// ParseActualsFile opens a covers export from disk and parses it.
func ParseActualsFile(path string) (*WorkbookResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ParseActualsWorkbook(f)
}

// ParseActualsWorkbook reads a POS covers export and extracts one
// ActualRecord per usable row. The sheet and header row are discovered by
// content, since every POS exports a slightly different layout. Rows the
// parser cannot use are skipped and counted, never fatal.
func ParseActualsWorkbook(r io.Reader) (*WorkbookResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, sheetName, err := findActualsSheet(f)
	if err != nil {
		return nil, err
	}

	headerRow := -1
	columnMap := make(map[string]int)
	for i, row := range rows {
		if !isActualsHeader(row) {
			continue
		}
		headerRow = i

		assign := func(key string, idx int) {
			if _, seen := columnMap[key]; !seen {
				columnMap[key] = idx
			}
		}
		for j, header := range row {
			h := strings.ToLower(strings.TrimSpace(header))
			switch {
			case strings.Contains(h, "venue") || strings.Contains(h, "location") || strings.Contains(h, "site"):
				assign("venue", j)
			case strings.Contains(h, "date"):
				assign("date", j)
			case strings.Contains(h, "covers") || strings.Contains(h, "guests"):
				assign("covers", j)
			case strings.Contains(h, "revenue") || strings.Contains(h, "sales"):
				assign("revenue", j)
			}
		}
		break
	}
	if headerRow == -1 {
		return nil, fmt.Errorf("could not find a header row in sheet %q", sheetName)
	}
	for _, col := range []string{"venue", "date", "covers"} {
		if _, ok := columnMap[col]; !ok {
			return nil, fmt.Errorf("sheet %q is missing a %s column", sheetName, col)
		}
	}

	result := &WorkbookResult{}
	recordedAt := time.Now().UTC()

	getString := func(row []string, key string) string {
		if idx, ok := columnMap[key]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]

		venueID := getString(row, "venue")
		if venueID == "" || strings.Contains(strings.ToLower(venueID), "total") {
			result.Skipped++
			continue
		}

		date, err := parseWorkbookDate(getString(row, "date"))
		if err != nil {
			slog.Debug("skipping workbook row", slog.Int("row", i+1), slog.String("error", err.Error()))
			result.Skipped++
			continue
		}

		covers, err := parseWorkbookNumber(getString(row, "covers"))
		if err != nil || covers < 0 {
			slog.Debug("skipping workbook row", slog.Int("row", i+1), slog.String("reason", "unusable covers value"))
			result.Skipped++
			continue
		}

		record := domain.ActualRecord{
			VenueID:      venueID,
			BusinessDate: date,
			CoversActual: covers,
			RecordedAt:   recordedAt,
		}
		if raw := getString(row, "revenue"); raw != "" {
			if revenue, err := parseWorkbookNumber(raw); err == nil && revenue >= 0 {
				record.RevenueActual = &revenue
			}
		}
		result.Rows = append(result.Rows, record)
	}

	return result, nil
}

func findActualsSheet(f *excelize.File) ([][]string, string, error) {
	for _, name := range actualsSheetNames {
		if rows, err := f.GetRows(name); err == nil && sheetLooksLikeActuals(rows) {
			return rows, name, nil
		}
	}
	for _, name := range f.GetSheetList() {
		if rows, err := f.GetRows(name); err == nil && sheetLooksLikeActuals(rows) {
			return rows, name, nil
		}
	}
	return nil, "", fmt.Errorf("could not find a covers sheet in workbook")
}

func sheetLooksLikeActuals(rows [][]string) bool {
	for i, row := range rows {
		if i >= 8 {
			break
		}
		if isActualsHeader(row) {
			return true
		}
	}
	return false
}

func isActualsHeader(row []string) bool {
	if len(row) < 3 {
		return false
	}
	text := strings.ToLower(strings.Join(row, " "))
	return strings.Contains(text, "date") &&
		(strings.Contains(text, "covers") || strings.Contains(text, "guests")) &&
		(strings.Contains(text, "venue") || strings.Contains(text, "location") || strings.Contains(text, "site"))
}

func parseWorkbookDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}
	for _, layout := range workbookDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOnly(t), nil
		}
	}
	// Unformatted date cells surface as raw Excel serial numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return domain.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseWorkbookNumber(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(s, 64)
}
