// Package baseline maintains region-wide aggregate crime statistics used to
// put a single address's numbers in context.
package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/homescout/crimescope/internal/cache"
	"github.com/homescout/crimescope/internal/geo"
	"github.com/homescout/crimescope/internal/model"
	"github.com/homescout/crimescope/internal/retrieval"
)

// ErrUnavailable is returned when no baseline can be produced: the fresh
// sample failed and no cached entry, even a stale one, exists.
var ErrUnavailable = eris.New("baseline unavailable")

const (
	// sampleRadiusMiles is the reference circle drawn at the region centroid
	// to estimate region-wide incident density.
	sampleRadiusMiles = 0.5

	// maxAge is how long a cached baseline is considered current.
	maxAge = 7 * 24 * time.Hour
)

// Sampler fetches incidents for the reference circle.
type Sampler interface {
	Retrieve(ctx context.Context, lat, lon, radiusMiles float64, monthsBack int) (*retrieval.Result, error)
}

// Service computes and caches the region baseline. Concurrent callers asking
// for the same period share a single recomputation.
type Service struct {
	sampler Sampler
	cache   *cache.Cache
	region  *geo.Region
	table   Classifier
	group   singleflight.Group
	now     func() time.Time
}

// Classifier is the taxonomy surface the service needs.
type Classifier interface {
	Classify(rawType string) model.Category
}

// NewService returns a baseline service. The cache should carry a TTL longer
// than maxAge; staleness is additionally enforced here so an aging entry can
// still serve as a fallback when a refresh fails.
func NewService(sampler Sampler, c *cache.Cache, region *geo.Region, table Classifier) *Service {
	return &Service{sampler: sampler, cache: c, region: region, table: table, now: time.Now}
}

// Get returns the baseline for the trailing monthsBack months, recomputing
// when the cached entry is absent, stale, or covers a different period.
func (s *Service) Get(ctx context.Context, monthsBack int) (*model.BaselineEntry, error) {
	cached := s.load(ctx, monthsBack)
	if cached != nil && s.now().Sub(cached.DataDate) <= maxAge {
		return cached, nil
	}

	entry, err := s.recompute(ctx, monthsBack)
	if err != nil {
		if cached != nil {
			zap.L().Warn("baseline refresh failed, serving stale entry",
				zap.Time("data_date", cached.DataDate), zap.Error(err))
			return cached, nil
		}
		return nil, err
	}
	return entry, nil
}

// ForceRefresh discards any cached entry and recomputes.
func (s *Service) ForceRefresh(ctx context.Context, monthsBack int) (*model.BaselineEntry, error) {
	s.cache.Invalidate(ctx, entryKey(monthsBack))
	return s.recompute(ctx, monthsBack)
}

func (s *Service) recompute(ctx context.Context, monthsBack int) (*model.BaselineEntry, error) {
	v, err, _ := s.group.Do(entryKey(monthsBack), func() (any, error) {
		return s.sample(ctx, monthsBack)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.BaselineEntry), nil
}

func (s *Service) sample(ctx context.Context, monthsBack int) (*model.BaselineEntry, error) {
	lat, lon := s.region.Center()
	res, err := s.sampler.Retrieve(ctx, lat, lon, sampleRadiusMiles, monthsBack)
	if err != nil {
		return nil, eris.Wrap(ErrUnavailable, "region sample failed: "+err.Error())
	}

	circleCount := float64(len(res.Records))
	perSqMile := circleCount / geo.CircleAreaSqMiles(sampleRadiusMiles)

	pct := make(map[model.Category]float64, len(model.Categories))
	if circleCount > 0 {
		byCat := make(map[model.Category]int)
		for _, rec := range res.Records {
			byCat[s.table.Classify(rec.Type)]++
		}
		for _, cat := range model.Categories {
			pct[cat] = round1(float64(byCat[cat]) / circleCount * 100)
		}
	} else {
		for _, cat := range model.Categories {
			pct[cat] = 0
		}
	}

	entry := &model.BaselineEntry{
		TotalIncidents:       round1(perSqMile * s.region.AreaSqMiles),
		IncidentsPerSqMile:   round1(perSqMile),
		ReferenceCircleCount: circleCount,
		CategoryPct:          pct,
		TimePeriodMonths:     monthsBack,
		DataDate:             s.now(),
	}

	if payload, err := json.Marshal(entry); err == nil {
		s.cache.Put(ctx, entryKey(monthsBack), payload)
	}

	zap.L().Info("baseline recomputed",
		zap.Float64("reference_circle_count", circleCount),
		zap.Float64("incidents_per_sq_mile", entry.IncidentsPerSqMile),
		zap.Int("months", monthsBack))
	return entry, nil
}

// load returns the cached entry for the period, regardless of age, or nil.
func (s *Service) load(ctx context.Context, monthsBack int) *model.BaselineEntry {
	payload, ok := s.cache.Get(ctx, entryKey(monthsBack))
	if !ok {
		return nil
	}
	var entry model.BaselineEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		zap.L().Warn("discarding unreadable baseline entry", zap.Error(err))
		return nil
	}
	if entry.TimePeriodMonths != monthsBack {
		return nil
	}
	return &entry
}

func entryKey(monthsBack int) string {
	return fmt.Sprintf("baseline-%dm", monthsBack)
}
