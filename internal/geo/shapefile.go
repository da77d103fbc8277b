package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadBoundary reads a place shapefile and returns the boundary polygon of
// the record whose nameField attribute equals name (case-insensitive). Only
// the first part of the matched shape is used; place boundaries are stored
// as a single outer ring in TIGER files.
func LoadBoundary(path, nameField, name string) (*geom.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("geo: shapefile field %q not found", nameField)
	}

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			continue
		}
		attr := strings.TrimSpace(reader.Attribute(nameIdx))
		if !strings.EqualFold(attr, name) {
			continue
		}

		g := polygonOuterRing(poly)
		if g == nil {
			continue
		}
		zap.L().Info("region boundary loaded",
			zap.String("shapefile", path),
			zap.String("place", attr),
			zap.Int("vertices", g.LinearRing(0).NumCoords()),
		)
		return g, nil
	}

	return nil, eris.Errorf("geo: place %q not found in %s", name, path)
}

// polygonOuterRing converts the first part of a shapefile polygon to a
// geom.Polygon with one linear ring.
func polygonOuterRing(p *shp.Polygon) *geom.Polygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	end := len(p.Points)
	if p.NumParts > 1 {
		end = int(p.Parts[1])
	}

	flat := make([]float64, 0, end*2)
	for _, pt := range p.Points[:end] {
		flat = append(flat, pt.X, pt.Y)
	}

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
