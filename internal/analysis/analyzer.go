// Package analysis composes geocoding, retrieval, classification, statistics,
// scoring, and baseline comparison into the one-call pipeline behind the CLI.
package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/homescout/crimescope/internal/baseline"
	"github.com/homescout/crimescope/internal/cache"
	"github.com/homescout/crimescope/internal/geo"
	"github.com/homescout/crimescope/internal/model"
	"github.com/homescout/crimescope/internal/retrieval"
	"github.com/homescout/crimescope/internal/scorer"
	"github.com/homescout/crimescope/internal/stats"
	"github.com/homescout/crimescope/internal/taxonomy"
	"github.com/homescout/crimescope/pkg/arcgis"
	"github.com/homescout/crimescope/pkg/geocode"
)

// Defaults applied when the caller passes zero values.
const (
	DefaultRadiusMiles = 0.5
	DefaultMonthsBack  = 12

	maxRadiusMiles = 5.0
	maxMonthsBack  = 60
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// IncidentSource fetches raw incident records around a point.
type IncidentSource interface {
	Retrieve(ctx context.Context, lat, lon, radiusMiles float64, monthsBack int) (*retrieval.Result, error)
}

// BaselineSource supplies the region baseline for comparison.
type BaselineSource interface {
	Get(ctx context.Context, monthsBack int) (*model.BaselineEntry, error)
}

// Analyzer runs the full pipeline for one address.
type Analyzer struct {
	geocoder Geocoder
	source   IncidentSource
	queries  *cache.Cache
	baseline BaselineSource
	table    *taxonomy.Table
	scorer   *scorer.Scorer
	now      func() time.Time
}

// New wires up an Analyzer. baseline may be nil, in which case analyses carry
// no citywide comparison.
func New(g Geocoder, source IncidentSource, queries *cache.Cache, b BaselineSource, table *taxonomy.Table, sc *scorer.Scorer) *Analyzer {
	return &Analyzer{
		geocoder: g,
		source:   source,
		queries:  queries,
		baseline: b,
		table:    table,
		scorer:   sc,
		now:      time.Now,
	}
}

// cachedQuery is the persisted form of one resolved-and-fetched query. The
// geocode result rides along so a cache hit skips the geocoder entirely.
type cachedQuery struct {
	Address            string          `json:"address"`
	DisplayName        string          `json:"display_name"`
	Latitude           float64         `json:"latitude"`
	Longitude          float64         `json:"longitude"`
	Records            []arcgis.Record `json:"records"`
	Chunks             int             `json:"chunks"`
	PossiblyIncomplete bool            `json:"possibly_incomplete"`
}

// Analyze runs the pipeline for one address. Zero radius or months select the
// defaults. A baseline failure degrades to an analysis without a comparison
// rather than failing the whole run.
func (a *Analyzer) Analyze(ctx context.Context, address string, radiusMiles float64, monthsBack int) (*model.Analysis, error) {
	radiusMiles, monthsBack, err := normalizeParams(radiusMiles, monthsBack)
	if err != nil {
		return nil, err
	}

	cq, err := a.fetch(ctx, address, radiusMiles, monthsBack)
	if err != nil {
		return nil, err
	}

	incidents := a.toIncidents(cq, radiusMiles)
	st := stats.Compute(incidents, monthsBack, a.table)
	trend := stats.AnalyzeTrend(incidents, a.now())
	score := a.scorer.Score(st, trend, radiusMiles)

	var comparison *model.Comparison
	if a.baseline != nil {
		entry, err := a.baseline.Get(ctx, monthsBack)
		if err != nil {
			zap.L().Warn("baseline unavailable, skipping comparison", zap.Error(err))
		} else {
			comparison = baseline.Compare(len(incidents), radiusMiles, entry)
		}
	}

	return &model.Analysis{
		ID:                 uuid.NewString(),
		Address:            cq.Address,
		Latitude:           cq.Latitude,
		Longitude:          cq.Longitude,
		RadiusMiles:        radiusMiles,
		MonthsBack:         monthsBack,
		Incidents:          incidents,
		Stats:              st,
		Trend:              trend,
		Score:              score,
		Comparison:         comparison,
		PossiblyIncomplete: cq.PossiblyIncomplete,
		GeneratedAt:        a.now(),
	}, nil
}

// Incidents returns just the incident list for an address, sharing the query
// cache with Analyze. The bool reports possible truncation.
func (a *Analyzer) Incidents(ctx context.Context, address string, radiusMiles float64, monthsBack int) ([]model.Incident, bool, error) {
	radiusMiles, monthsBack, err := normalizeParams(radiusMiles, monthsBack)
	if err != nil {
		return nil, false, err
	}
	cq, err := a.fetch(ctx, address, radiusMiles, monthsBack)
	if err != nil {
		return nil, false, err
	}
	return a.toIncidents(cq, radiusMiles), cq.PossiblyIncomplete, nil
}

// Geocode resolves an address without running the rest of the pipeline.
func (a *Analyzer) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	return a.geocoder.Geocode(ctx, address)
}

// fetch resolves the address and pulls its incident records, serving from the
// query cache when possible.
func (a *Analyzer) fetch(ctx context.Context, address string, radiusMiles float64, monthsBack int) (*cachedQuery, error) {
	key := queryKey(address, radiusMiles, monthsBack)

	if payload, ok := a.queries.Get(ctx, key); ok {
		var cq cachedQuery
		if err := json.Unmarshal(payload, &cq); err == nil {
			zap.L().Debug("query served from cache", zap.String("address", cq.Address))
			return &cq, nil
		}
		zap.L().Warn("discarding unreadable cached query", zap.String("key", key))
	}

	loc, err := a.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	res, err := a.source.Retrieve(ctx, loc.Latitude, loc.Longitude, radiusMiles, monthsBack)
	if err != nil {
		return nil, err
	}

	cq := &cachedQuery{
		Address:            loc.Query,
		DisplayName:        loc.DisplayName,
		Latitude:           loc.Latitude,
		Longitude:          loc.Longitude,
		Records:            res.Records,
		Chunks:             res.Chunks,
		PossiblyIncomplete: res.PossiblyIncomplete,
	}
	if payload, err := json.Marshal(cq); err == nil {
		a.queries.Put(ctx, key, payload)
	}

	zap.L().Info("incidents retrieved",
		zap.String("address", cq.Address),
		zap.Int("records", len(cq.Records)),
		zap.Int("chunks", cq.Chunks),
		zap.Bool("possibly_incomplete", cq.PossiblyIncomplete))
	return cq, nil
}

// toIncidents converts raw records to incidents, dropping any outside the
// true circle. The feed's spatial filter is a server-side approximation, so
// the great-circle distance is rechecked here.
func (a *Analyzer) toIncidents(cq *cachedQuery, radiusMiles float64) []model.Incident {
	incidents := make([]model.Incident, 0, len(cq.Records))
	for _, rec := range cq.Records {
		d := geo.HaversineMiles(cq.Latitude, cq.Longitude, rec.Latitude, rec.Longitude)
		if d > radiusMiles {
			continue
		}
		incidents = append(incidents, model.Incident{
			CaseID:        rec.CaseID,
			OccurredAt:    rec.OccurredAt,
			Type:          rec.Type,
			Location:      rec.Address,
			Latitude:      rec.Latitude,
			Longitude:     rec.Longitude,
			DistanceMiles: d,
			District:      rec.District,
			Beat:          rec.Beat,
		})
	}
	return incidents
}

func normalizeParams(radiusMiles float64, monthsBack int) (float64, int, error) {
	if radiusMiles == 0 {
		radiusMiles = DefaultRadiusMiles
	}
	if monthsBack == 0 {
		monthsBack = DefaultMonthsBack
	}
	if radiusMiles < 0 || radiusMiles > maxRadiusMiles {
		return 0, 0, eris.Errorf("radius must be between 0 and %.1f miles, got %.2f", maxRadiusMiles, radiusMiles)
	}
	if monthsBack < 0 || monthsBack > maxMonthsBack {
		return 0, 0, eris.Errorf("months back must be between 1 and %d, got %d", maxMonthsBack, monthsBack)
	}
	return radiusMiles, monthsBack, nil
}
