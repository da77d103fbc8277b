package stats

import (
	"time"

	"github.com/homescout/crimescope/internal/model"
)

const (
	trendWindow = 180 * 24 * time.Hour

	// stableBandPct is the |change| band classified as stable.
	stableBandPct = 10.0
)

// AnalyzeTrend compares incidents in the last 180 days against the 180 days
// before that. The windows are fixed relative to now regardless of how far
// back the incident list reaches, so even a 24-month query only ever compares
// the most recent 12 months.
func AnalyzeTrend(incidents []model.Incident, now time.Time) model.Trend {
	recentStart := now.Add(-trendWindow)
	previousStart := now.Add(-2 * trendWindow)

	var trend model.Trend
	for _, inc := range incidents {
		switch {
		case inc.OccurredAt.After(recentStart):
			trend.RecentCount++
		case inc.OccurredAt.After(previousStart):
			trend.PreviousCount++
		}
	}

	trend.ChangeCount = trend.RecentCount - trend.PreviousCount

	switch {
	case trend.PreviousCount == 0 && trend.RecentCount == 0:
		trend.ChangePct = 0
	case trend.PreviousCount == 0:
		// Sentinel: any increase from a zero baseline reports as 100%.
		trend.ChangePct = 100.0
	default:
		trend.ChangePct = round1(float64(trend.ChangeCount) / float64(trend.PreviousCount) * 100)
	}

	switch {
	case trend.ChangePct >= stableBandPct:
		trend.Direction = model.TrendIncreasing
	case trend.ChangePct <= -stableBandPct:
		trend.Direction = model.TrendDecreasing
	default:
		trend.Direction = model.TrendStable
	}

	return trend
}
