package exporter

import (
	"fmt"
)

// formatFloat renders a float with exactly 2 decimal places, so values like
// 13.4 appear as 13.40 in every row.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatFloat3 renders multipliers and ratios, which carry 3 decimals.
func formatFloat3(f float64) string {
	return fmt.Sprintf("%.3f", f)
}

func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatOptFloat renders an optional float, empty when absent.
func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// formatOptInt renders an optional int, empty when absent.
func formatOptInt(i *int) string {
	if i == nil {
		return ""
	}
	return formatInt(int64(*i))
}
