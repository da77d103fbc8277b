package baseline

import (
	"fmt"
	"math"

	"github.com/homescout/crimescope/internal/model"
)

// Compare measures an area's incident count against the region baseline. The
// baseline's reference circle count is scaled by the area ratio so circles of
// any radius compare against a like-sized expectation.
func Compare(areaCount int, radiusMiles float64, entry *model.BaselineEntry) *model.Comparison {
	scale := (radiusMiles / sampleRadiusMiles) * (radiusMiles / sampleRadiusMiles)
	expected := entry.ReferenceCircleCount * scale

	diff := float64(areaCount) - expected
	var pct float64
	switch {
	case expected > 0:
		pct = diff / expected * 100
	case areaCount > 0:
		pct = 100
	}

	return &model.Comparison{
		AreaCount:     areaCount,
		BaselineCount: round1(expected),
		Difference:    round1(diff),
		DifferencePct: round1(pct),
		Ranking:       ranking(pct),
		Description: fmt.Sprintf(
			"This area recorded %d incidents versus roughly %.1f expected for a comparable area citywide (%+.0f%%).",
			areaCount, expected, pct),
	}
}

func ranking(pct float64) string {
	switch {
	case pct >= 150:
		return "Very high activity area"
	case pct >= 75:
		return "High activity area"
	case pct >= 25:
		return "Above average activity"
	case pct > -40:
		return "Average activity area"
	default:
		return "Low activity area"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
