// Package stats aggregates classified incidents into the per-analysis
// statistics and the 6-month trend comparison.
package stats

import (
	"math"

	"github.com/homescout/crimescope/internal/model"
	"github.com/homescout/crimescope/internal/taxonomy"
)

// Compute aggregates the distance-filtered incident list. An empty list
// yields all-zero counts and MostCommonCrime "None".
func Compute(incidents []model.Incident, monthsBack int, table *taxonomy.Table) model.Statistics {
	s := model.Statistics{
		ByCategory:      make(map[model.Category]int, len(model.Categories)),
		Percentages:     make(map[model.Category]float64, len(model.Categories)),
		MostCommonCrime: "None",
	}
	for _, cat := range model.Categories {
		s.ByCategory[cat] = 0
		s.Percentages[cat] = 0
	}

	s.TotalCrimes = len(incidents)
	if monthsBack > 0 {
		s.CrimesPerMonth = round1(float64(s.TotalCrimes) / float64(monthsBack))
	}
	if s.TotalCrimes == 0 {
		return s
	}

	typeCounts := make(map[string]int)
	for _, inc := range incidents {
		s.ByCategory[table.Classify(inc.Type)]++
		typeCounts[inc.Type]++
	}

	for cat, count := range s.ByCategory {
		s.Percentages[cat] = round1(float64(count) / float64(s.TotalCrimes) * 100)
	}

	for typ, count := range typeCounts {
		if count > s.MostCommonCount || (count == s.MostCommonCount && typ < s.MostCommonCrime) {
			s.MostCommonCrime = typ
			s.MostCommonCount = count
		}
	}

	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
