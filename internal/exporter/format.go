package exporter

import "strconv"

// formatValue formats an index value for CSV output. Masked values come
// through as NaN and render as an empty cell; everything else keeps full
// precision so exported thresholds survive a round trip.
func formatValue(v float64) string {
	if v != v {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
