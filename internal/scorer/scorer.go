// Package scorer converts statistics and trend into the bounded, explainable
// safety score. Scoring is a pure function of its inputs; the tier thresholds
// live in ladders.yaml so the deduction schedule is auditable as data.
package scorer

import (
	_ "embed"
	"fmt"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/homescout/crimescope/internal/model"
)

//go:embed ladders.yaml
var rawLadders []byte

// referenceRadiusMiles is the radius of the reference circle that density and
// baseline comparisons are normalized to.
const referenceRadiusMiles = 0.5

const (
	maxScore = 100
	minScore = 1
)

// Factor names used as keys in SafetyScore.Factors.
const (
	FactorDensity      = "density"
	FactorViolentShare = "violent_share"
	FactorTrend        = "trend"
)

// Tier is one rung of a deduction ladder. Min applies to density, violent
// share, and trend increases; Max applies to trend decreases.
type Tier struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Points int     `yaml:"points"`
	Label  string  `yaml:"label"`
}

// Band maps a minimum score to a textual level.
type Band struct {
	Min   int    `yaml:"min"`
	Level string `yaml:"level"`
}

// Ladders holds the full deduction schedule.
type Ladders struct {
	DensityTiers       []Tier `yaml:"density_tiers"`
	ViolentTiers       []Tier `yaml:"violent_tiers"`
	TrendIncreaseTiers []Tier `yaml:"trend_increase_tiers"`
	TrendDecreaseTiers []Tier `yaml:"trend_decrease_tiers"`
	ScoreBands         []Band `yaml:"score_bands"`
}

// Scorer computes safety scores with a fixed ladder schedule.
type Scorer struct {
	ladders Ladders
}

// NewDefault returns a Scorer using the embedded ladder schedule.
func NewDefault() *Scorer {
	s, err := New(rawLadders)
	if err != nil {
		// The embedded schedule is validated by tests.
		panic(err)
	}
	return s
}

// New parses a ladder schedule from YAML.
func New(data []byte) (*Scorer, error) {
	var ladders Ladders
	if err := yaml.Unmarshal(data, &ladders); err != nil {
		return nil, eris.Wrap(err, "scorer: parse ladders")
	}
	if len(ladders.DensityTiers) == 0 || len(ladders.ViolentTiers) == 0 || len(ladders.ScoreBands) == 0 {
		return nil, eris.New("scorer: ladder schedule is incomplete")
	}
	return &Scorer{ladders: ladders}, nil
}

// Score computes the safety score for one analysis. Deterministic given
// (stats, trend, radiusMiles).
func (s *Scorer) Score(stats model.Statistics, trend model.Trend, radiusMiles float64) model.SafetyScore {
	result := model.SafetyScore{
		Factors: map[string]int{
			FactorDensity:      0,
			FactorViolentShare: 0,
			FactorTrend:        0,
		},
	}

	// Density, normalized to the reference circle so a 1-mile query is not
	// penalized for covering four times the area.
	if radiusMiles <= 0 {
		radiusMiles = referenceRadiusMiles
	}
	areaScale := (radiusMiles / referenceRadiusMiles) * (radiusMiles / referenceRadiusMiles)
	density := stats.CrimesPerMonth / areaScale

	points, label := matchMin(s.ladders.DensityTiers, density)
	result.Factors[FactorDensity] = points
	if label == "" {
		result.Explanations = append(result.Explanations,
			fmt.Sprintf("Minimal crime density (%.1f crimes/month in reference area): no deduction", density))
	} else {
		result.Explanations = append(result.Explanations,
			fmt.Sprintf("%s (%.1f crimes/month in reference area): %d points", label, density, points))
	}

	// Violent share.
	violentPct := stats.Percentages[model.CategoryViolent]
	points, label = matchMin(s.ladders.ViolentTiers, violentPct)
	result.Factors[FactorViolentShare] = points
	if label == "" {
		result.Explanations = append(result.Explanations,
			fmt.Sprintf("Low violent crime share (%.1f%%): no deduction", violentPct))
	} else {
		result.Explanations = append(result.Explanations,
			fmt.Sprintf("%s (%.1f%%): %d points", label, violentPct, points))
	}

	// Trend.
	points, label = s.trendFactor(trend)
	result.Factors[FactorTrend] = points
	if label == "" {
		result.Explanations = append(result.Explanations,
			fmt.Sprintf("Stable crime trend (%.1f%% change): no adjustment", trend.ChangePct))
	} else {
		result.Explanations = append(result.Explanations,
			fmt.Sprintf("%s (%+.1f%% over 6 months): %+d points", label, trend.ChangePct, points))
	}

	total := maxScore
	for _, delta := range result.Factors {
		total += delta
	}
	result.Score = clamp(total, minScore, maxScore)
	result.Level = s.level(result.Score)

	return result
}

func (s *Scorer) trendFactor(trend model.Trend) (int, string) {
	switch trend.Direction {
	case model.TrendIncreasing:
		return matchMin(s.ladders.TrendIncreaseTiers, trend.ChangePct)
	case model.TrendDecreasing:
		for _, tier := range s.ladders.TrendDecreaseTiers {
			if trend.ChangePct <= tier.Max {
				return tier.Points, tier.Label
			}
		}
	}
	return 0, ""
}

func (s *Scorer) level(score int) string {
	for _, band := range s.ladders.ScoreBands {
		if score >= band.Min {
			return band.Level
		}
	}
	return s.ladders.ScoreBands[len(s.ladders.ScoreBands)-1].Level
}

// matchMin returns the first tier whose Min threshold the value meets.
func matchMin(tiers []Tier, value float64) (int, string) {
	for _, tier := range tiers {
		if value >= tier.Min {
			return tier.Points, tier.Label
		}
	}
	return 0, ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
