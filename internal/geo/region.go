package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Region is the service area. Points outside it are rejected at geocode time.
// Containment uses the precise boundary polygon when one has been loaded,
// otherwise the configured bounding box.
type Region struct {
	Name        string
	State       string
	AreaSqMiles float64

	centerLat, centerLon float64
	bounds               *geom.Bounds
	boundary             *geom.Polygon
}

// NewRegion builds a Region from its bounding box, centroid, and area.
func NewRegion(name, state string, minLat, minLon, maxLat, maxLon, centerLat, centerLon, areaSqMiles float64) *Region {
	b := geom.NewBounds(geom.XY)
	b.Set(minLon, minLat, maxLon, maxLat)
	return &Region{
		Name:        name,
		State:       state,
		AreaSqMiles: areaSqMiles,
		centerLat:   centerLat,
		centerLon:   centerLon,
		bounds:      b,
	}
}

// SetBoundary installs a precise boundary polygon, typically loaded from a
// TIGER place shapefile. Subsequent Contains calls test against the polygon's
// outer ring instead of the bounding box.
func (r *Region) SetBoundary(p *geom.Polygon) {
	r.boundary = p
}

// Contains reports whether the point lies inside the service region.
func (r *Region) Contains(lat, lon float64) bool {
	if r.boundary != nil {
		ring := r.boundary.LinearRing(0)
		return xy.IsPointInRing(r.boundary.Layout(), geom.Coord{lon, lat}, ring.FlatCoords())
	}
	return r.bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Center returns the region centroid used for baseline sampling.
func (r *Region) Center() (lat, lon float64) {
	return r.centerLat, r.centerLon
}
