package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/crimescope/internal/model"
	"github.com/homescout/crimescope/internal/taxonomy"
)

func makeIncidents(types ...string) []model.Incident {
	incidents := make([]model.Incident, len(types))
	for i, typ := range types {
		incidents[i] = model.Incident{
			CaseID:     fmt.Sprintf("2025-%05d", i),
			Type:       typ,
			OccurredAt: time.Now().AddDate(0, -1, 0),
		}
	}
	return incidents
}

func TestCompute_Empty(t *testing.T) {
	t.Parallel()

	s := Compute(nil, 12, taxonomy.Default())

	assert.Equal(t, 0, s.TotalCrimes)
	assert.Equal(t, "None", s.MostCommonCrime)
	assert.Equal(t, 0, s.MostCommonCount)
	assert.Zero(t, s.CrimesPerMonth)
	for _, cat := range model.Categories {
		assert.Zero(t, s.ByCategory[cat])
		assert.Zero(t, s.Percentages[cat])
	}
}

func TestCompute_CountsAndPercentages(t *testing.T) {
	t.Parallel()

	incidents := makeIncidents(
		"ROBBERY", "ROBBERY", "ASSAULT",
		"THEFT", "THEFT", "THEFT", "BURGLARY",
		"HIT AND RUN",
		"NOISE COMPLAINT", "NOISE COMPLAINT",
	)

	s := Compute(incidents, 12, taxonomy.Default())

	assert.Equal(t, 10, s.TotalCrimes)
	assert.Equal(t, 3, s.ByCategory[model.CategoryViolent])
	assert.Equal(t, 4, s.ByCategory[model.CategoryProperty])
	assert.Equal(t, 1, s.ByCategory[model.CategoryTraffic])
	assert.Equal(t, 2, s.ByCategory[model.CategoryOther])

	// Category counts sum exactly to the total.
	sum := 0
	for _, cat := range model.Categories {
		sum += s.ByCategory[cat]
	}
	assert.Equal(t, s.TotalCrimes, sum)

	// Percentages sum to 100 within rounding tolerance.
	var pctSum float64
	for _, cat := range model.Categories {
		pctSum += s.Percentages[cat]
	}
	assert.InDelta(t, 100.0, pctSum, 0.2)

	assert.Equal(t, "THEFT", s.MostCommonCrime)
	assert.Equal(t, 3, s.MostCommonCount)
	assert.InDelta(t, 10.0/12.0, s.CrimesPerMonth, 0.05)
}

func TestCompute_PercentageSumInvariant(t *testing.T) {
	t.Parallel()

	// Three-way split that does not divide evenly.
	incidents := makeIncidents("ROBBERY", "THEFT", "NOISE COMPLAINT")

	s := Compute(incidents, 6, taxonomy.Default())

	var pctSum float64
	for _, cat := range model.Categories {
		pctSum += s.Percentages[cat]
	}
	assert.InDelta(t, 100.0, pctSum, 0.2)
}

func TestCompute_CrimesPerMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total  int
		months int
		want   float64
	}{
		{40, 12, 3.3},
		{12, 12, 1.0},
		{5, 24, 0.2},
		{0, 12, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_over_%d", tt.total, tt.months), func(t *testing.T) {
			t.Parallel()
			types := make([]string, tt.total)
			for i := range types {
				types[i] = "THEFT"
			}
			s := Compute(makeIncidents(types...), tt.months, taxonomy.Default())
			require.InDelta(t, tt.want, s.CrimesPerMonth, 0.05)
		})
	}
}
