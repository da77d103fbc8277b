package model

import "time"

// Statistics aggregates classified incidents for one analysis.
type Statistics struct {
	TotalCrimes     int                  `json:"total_crimes"`
	ByCategory      map[Category]int     `json:"by_category"`
	Percentages     map[Category]float64 `json:"percentages"`
	CrimesPerMonth  float64              `json:"crimes_per_month"`
	MostCommonCrime string               `json:"most_common_crime"`
	MostCommonCount int                  `json:"most_common_count"`
}

// TrendDirection is the three-way trend label.
type TrendDirection string

const (
	TrendStable     TrendDirection = "stable"
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
)

// Trend compares the most recent 6 months against the 6 months before that.
// Both windows are measured back from analysis time, independent of the
// requested months-back span.
type Trend struct {
	RecentCount   int            `json:"recent_count"`
	PreviousCount int            `json:"previous_count"`
	ChangeCount   int            `json:"change_count"`
	ChangePct     float64        `json:"change_pct"`
	Direction     TrendDirection `json:"direction"`
}

// SafetyScore is the bounded composite metric with its audit trail. Factors
// maps factor name to signed point delta; Explanations holds one line per
// tier decision so the score is reproducible from its inputs.
type SafetyScore struct {
	Score        int            `json:"score"`
	Level        string         `json:"level"`
	Factors      map[string]int `json:"factors"`
	Explanations []string       `json:"explanations"`
}

// Comparison contrasts the queried area against the region baseline. It is
// omitted from an Analysis when the baseline cannot be produced.
type Comparison struct {
	AreaCount     int     `json:"area_count"`
	BaselineCount float64 `json:"baseline_count"`
	Difference    float64 `json:"difference"`
	DifferencePct float64 `json:"difference_pct"`
	Ranking       string  `json:"ranking"`
	Description   string  `json:"description"`
}

// BaselineEntry holds region-wide aggregate statistics used for relative
// comparison. ReferenceCircleCount is the expected incident count inside a
// 0.5-mile reference circle over TimePeriodMonths.
type BaselineEntry struct {
	TotalIncidents       float64              `json:"total_incidents"`
	IncidentsPerSqMile   float64              `json:"incidents_per_sq_mile"`
	ReferenceCircleCount float64              `json:"reference_circle_count"`
	CategoryPct          map[Category]float64 `json:"category_pct"`
	TimePeriodMonths     int                  `json:"time_period_months"`
	DataDate             time.Time            `json:"data_date"`
}

// Analysis is the immutable composite result of one pipeline invocation.
type Analysis struct {
	ID                 string      `json:"id"`
	Address            string      `json:"address"`
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	RadiusMiles        float64     `json:"radius_miles"`
	MonthsBack         int         `json:"months_back"`
	Incidents          []Incident  `json:"incidents"`
	Stats              Statistics  `json:"stats"`
	Trend              Trend       `json:"trend"`
	Score              SafetyScore `json:"score"`
	Comparison         *Comparison `json:"comparison,omitempty"`
	PossiblyIncomplete bool        `json:"possibly_incomplete"`
	GeneratedAt        time.Time   `json:"generated_at"`
}
