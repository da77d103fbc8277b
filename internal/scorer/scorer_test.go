package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/crimescope/internal/model"
)

func statsWith(total int, crimesPerMonth, violentPct float64) model.Statistics {
	return model.Statistics{
		TotalCrimes:    total,
		CrimesPerMonth: crimesPerMonth,
		Percentages: map[model.Category]float64{
			model.CategoryViolent: violentPct,
		},
	}
}

func TestNewDefault(t *testing.T) {
	t.Parallel()
	require.NotPanics(t, func() { NewDefault() })
}

func TestScore_ZeroIncidents(t *testing.T) {
	t.Parallel()

	score := NewDefault().Score(
		statsWith(0, 0, 0),
		model.Trend{Direction: model.TrendStable},
		0.5,
	)

	assert.GreaterOrEqual(t, score.Score, 90)
	assert.Equal(t, "Very Safe", score.Level)
	assert.Len(t, score.Explanations, 3, "every factor explains itself")
	assert.Zero(t, score.Factors[FactorDensity])
	assert.Zero(t, score.Factors[FactorViolentShare])
	assert.Zero(t, score.Factors[FactorTrend])
}

func TestScore_AdversarialWorstCase(t *testing.T) {
	t.Parallel()

	score := NewDefault().Score(
		statsWith(5000, 400.0, 100.0),
		model.Trend{Direction: model.TrendIncreasing, ChangePct: 300.0},
		0.5,
	)

	assert.Equal(t, 1, score.Score, "worst case pins to the clamp floor")
	assert.Equal(t, "High Risk", score.Level)
}

func TestScore_AlwaysInBounds(t *testing.T) {
	t.Parallel()

	s := NewDefault()
	trends := []model.Trend{
		{Direction: model.TrendStable},
		{Direction: model.TrendIncreasing, ChangePct: 999},
		{Direction: model.TrendDecreasing, ChangePct: -999},
	}

	for _, cpm := range []float64{0, 0.4, 1, 3, 7, 15, 30, 100, 1e6} {
		for _, violent := range []float64{0, 4.9, 10, 33, 55, 80, 100} {
			for _, trend := range trends {
				score := s.Score(statsWith(100, cpm, violent), trend, 0.5)
				assert.GreaterOrEqual(t, score.Score, 1)
				assert.LessOrEqual(t, score.Score, 100)
			}
		}
	}
}

func TestScore_DensityNormalizedByArea(t *testing.T) {
	t.Parallel()

	s := NewDefault()

	// Same monthly rate over a 1-mile circle covers 4x the reference area,
	// so the normalized density (and deduction) drops.
	narrow := s.Score(statsWith(48, 4.0, 0), model.Trend{Direction: model.TrendStable}, 0.5)
	wide := s.Score(statsWith(48, 4.0, 0), model.Trend{Direction: model.TrendStable}, 1.0)

	assert.Less(t, narrow.Score, wide.Score)
	assert.Less(t, narrow.Factors[FactorDensity], wide.Factors[FactorDensity])
}

func TestScore_RelativeOrdering(t *testing.T) {
	t.Parallel()

	s := NewDefault()

	// 40 incidents / 12mo, 30% violent, rising fast.
	busy := s.Score(
		statsWith(40, 3.3, 30.0),
		model.Trend{Direction: model.TrendIncreasing, ChangePct: 133.3},
		0.5,
	)

	// 5 incidents / 12mo, no violent crime, stable.
	quiet := s.Score(
		statsWith(5, 0.4, 0),
		model.Trend{Direction: model.TrendStable},
		0.5,
	)

	assert.Less(t, busy.Score, quiet.Score)
	assert.Equal(t, -20, busy.Factors[FactorDensity])
	assert.Equal(t, -15, busy.Factors[FactorViolentShare])
	assert.Equal(t, -15, busy.Factors[FactorTrend])
	assert.Equal(t, 50, busy.Score)
}

func TestScore_TrendBonus(t *testing.T) {
	t.Parallel()

	s := NewDefault()

	improving := s.Score(
		statsWith(12, 1.0, 0),
		model.Trend{Direction: model.TrendDecreasing, ChangePct: -60},
		0.5,
	)

	assert.Equal(t, 5, improving.Factors[FactorTrend])
	// The bonus cannot push the score above 100.
	assert.LessOrEqual(t, improving.Score, 100)
}

func TestScore_Levels(t *testing.T) {
	t.Parallel()

	s := NewDefault()

	tests := []struct {
		name  string
		stats model.Statistics
		want  string
	}{
		{"very safe", statsWith(0, 0, 0), "Very Safe"},
		{"safe", statsWith(40, 3.3, 30.0), "Safe"},
		{"moderate", statsWith(84, 7.0, 30.0), "Moderate"},
		{"high risk", statsWith(800, 60.0, 70.0), "High Risk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Score(tt.stats, model.Trend{Direction: model.TrendStable}, 0.5)
			assert.Equal(t, tt.want, got.Level)
		})
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := New([]byte("density_tiers: []"))
	assert.Error(t, err)

	_, err = New([]byte("not yaml: ["))
	assert.Error(t, err)
}
