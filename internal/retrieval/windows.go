// Package retrieval implements the chunked-query strategy that keeps each
// feed request under the server-side record cap, and the dedup merge of the
// resulting chunks.
package retrieval

import "time"

// Window is one bounded chunk of the requested time span.
type Window struct {
	Start time.Time
	End   time.Time
}

// chunkMonths picks the chunk size for a total span: no chunking up to a
// year, 12-month chunks up to two years, 6-month chunks beyond that.
func chunkMonths(monthsBack int) int {
	switch {
	case monthsBack <= 12:
		return monthsBack
	case monthsBack <= 24:
		return 12
	default:
		return 6
	}
}

// PlanWindows splits the span ending at now into chunk windows, ordered most
// recent first. Adjacent windows meet at their shared boundary instant, so a
// record stamped exactly on a boundary can appear in two chunks; the caller
// dedups by case identifier.
func PlanWindows(now time.Time, monthsBack int) []Window {
	if monthsBack <= 0 {
		return nil
	}

	earliest := now.AddDate(0, -monthsBack, 0)
	chunk := chunkMonths(monthsBack)

	var windows []Window
	end := now
	for end.After(earliest) {
		start := end.AddDate(0, -chunk, 0)
		if start.Before(earliest) {
			start = earliest
		}
		windows = append(windows, Window{Start: start, End: end})
		end = start
	}
	return windows
}
