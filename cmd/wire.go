package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/homescout/crimescope/internal/analysis"
	"github.com/homescout/crimescope/internal/baseline"
	"github.com/homescout/crimescope/internal/cache"
	"github.com/homescout/crimescope/internal/geo"
	"github.com/homescout/crimescope/internal/retrieval"
	"github.com/homescout/crimescope/internal/scorer"
	"github.com/homescout/crimescope/internal/taxonomy"
	"github.com/homescout/crimescope/pkg/arcgis"
	"github.com/homescout/crimescope/pkg/geocode"
)

// buildStore opens the configured cache backend.
func buildStore(ctx context.Context) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemory(), nil
	case "file":
		return cache.NewFile(cfg.Cache.Dir)
	case "sqlite":
		return cache.NewSQLite(cfg.Cache.Path)
	case "postgres":
		return cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

// buildRegion constructs the service area, loading the boundary polygon when
// a shapefile is configured. A missing or unreadable shapefile degrades to
// bounding-box validation.
func buildRegion() *geo.Region {
	r := cfg.Region
	region := geo.NewRegion(r.Name, r.State,
		r.MinLat, r.MinLon, r.MaxLat, r.MaxLon,
		r.CenterLat, r.CenterLon, r.AreaSqMiles)

	if r.ShapefilePath != "" {
		boundary, err := geo.LoadBoundary(r.ShapefilePath, r.ShapefileField, r.Name)
		if err != nil {
			zap.L().Warn("boundary shapefile unavailable, using bounding box",
				zap.String("path", r.ShapefilePath), zap.Error(err))
		} else {
			region.SetBoundary(boundary)
		}
	}
	return region
}

// fieldMap applies configured attribute-name overrides to the defaults.
func fieldMap() arcgis.FieldMap {
	fm := arcgis.DefaultFieldMap()
	overrides := map[string]*string{
		"timestamp": &fm.Timestamp,
		"type":      &fm.Type,
		"case_id":   &fm.CaseID,
		"latitude":  &fm.Latitude,
		"longitude": &fm.Longitude,
		"address":   &fm.Address,
		"district":  &fm.District,
		"beat":      &fm.Beat,
	}
	for name, value := range cfg.Feed.Fields {
		if dst, ok := overrides[name]; ok && value != "" {
			*dst = value
		}
	}
	return fm
}

// buildScorer loads scoring tiers from the configured override file, or the
// built-in ladders.
func buildScorer() (*scorer.Scorer, error) {
	if cfg.Scorer.LaddersPath == "" {
		return scorer.NewDefault(), nil
	}
	data, err := os.ReadFile(cfg.Scorer.LaddersPath)
	if err != nil {
		return nil, eris.Wrapf(err, "read scoring ladders %s", cfg.Scorer.LaddersPath)
	}
	return scorer.New(data)
}

// app holds the wired pipeline for one command invocation.
type app struct {
	analyzer  *analysis.Analyzer
	baselines *baseline.Service
	cleanup   func()
}

// buildApp wires the full pipeline. app.cleanup closes the cache backend.
func buildApp(ctx context.Context) (*app, error) {
	store, err := buildStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}

	region := buildRegion()

	geocoder := geocode.NewClient(region,
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithRateLimit(cfg.Geocoder.RatePerSecond))

	feed := arcgis.NewClient(cfg.Feed.URL,
		arcgis.WithRateLimit(cfg.Feed.RatePerSecond),
		arcgis.WithRecordCap(cfg.Feed.RecordCap),
		arcgis.WithFieldMap(fieldMap()))

	retriever := retrieval.New(feed)
	table := taxonomy.Default()

	baselines := baseline.NewService(retriever,
		cache.New(store, "baseline", cfg.Cache.BaselineTTL()),
		region, table)

	sc, err := buildScorer()
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	analyzer := analysis.New(geocoder, retriever,
		cache.New(store, "queries", cfg.Cache.QueryTTL()),
		baselines, table, sc)

	return &app{
		analyzer:  analyzer,
		baselines: baselines,
		cleanup: func() {
			if err := store.Close(); err != nil {
				zap.L().Warn("closing cache", zap.Error(err))
			}
		},
	}, nil
}
