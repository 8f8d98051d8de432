package correction

import (
	"sort"

	"shiftcast/pkg/contracts/domain"
)

// DedupLatestRun reduces append-only forecast rows to the authoritative row
// per (venue, business date, shift): the one with the maximum forecast run
// timestamp. Ties keep the first row seen, so callers feeding rows in store
// order get a deterministic result. Output is sorted by date then shift.
func DedupLatestRun(rows []domain.RawForecast) []domain.RawForecast {
	if len(rows) == 0 {
		return nil
	}

	latest := make(map[domain.ForecastKey]domain.RawForecast, len(rows))
	for _, row := range rows {
		key := row.Key()
		current, ok := latest[key]
		if !ok || row.ForecastRunAt.After(current.ForecastRunAt) {
			latest[key] = row
		}
	}

	out := make([]domain.RawForecast, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BusinessDate.Equal(out[j].BusinessDate) {
			return out[i].BusinessDate.Before(out[j].BusinessDate)
		}
		return shiftOrder(out[i].Shift) < shiftOrder(out[j].Shift)
	})
	return out
}
