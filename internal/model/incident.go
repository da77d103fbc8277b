// Package model defines the value objects produced by the analysis pipeline.
// Everything here is immutable by convention: components never modify another
// component's output after construction.
package model

import "time"

// Category is one of the fixed crime taxonomy buckets.
type Category string

const (
	CategoryViolent  Category = "violent"
	CategoryProperty Category = "property"
	CategoryTraffic  Category = "traffic"
	CategoryOther    Category = "other"
)

// Categories lists all taxonomy buckets in presentation order.
var Categories = []Category{CategoryViolent, CategoryProperty, CategoryTraffic, CategoryOther}

// Incident is one reported offense from the public safety feed. The case
// identifier is the dedup key across chunked queries. DistanceMiles is the
// only derived field and is computed once at ingestion.
type Incident struct {
	CaseID        string    `json:"case_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Type          string    `json:"type"`
	Location      string    `json:"location"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	DistanceMiles float64   `json:"distance_miles"`
	// Administrative tags passed through from the feed unmodified.
	District string `json:"district,omitempty"`
	Beat     string `json:"beat,omitempty"`
}
