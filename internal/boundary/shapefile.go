package boundary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ShapefileSource reads boundaries from per-level shapefiles in a
// directory, e.g. adm0.shp for countries and adm1.shp for first
// subdivisions.
type ShapefileSource struct {
	dir       string
	idField   string
	nameField string
}

// ShapefileOption configures a ShapefileSource.
type ShapefileOption func(*ShapefileSource)

// WithIDField sets the attribute holding the region identifier (default
// "GID").
func WithIDField(name string) ShapefileOption {
	return func(s *ShapefileSource) { s.idField = name }
}

// WithNameField sets the attribute holding the display name (default
// "NAME").
func WithNameField(name string) ShapefileOption {
	return func(s *ShapefileSource) { s.nameField = name }
}

// NewShapefileSource creates a Source over a directory of admN.shp files.
func NewShapefileSource(dir string, opts ...ShapefileOption) *ShapefileSource {
	s := &ShapefileSource{dir: dir, idField: "GID", nameField: "NAME"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Boundary implements Source. Matching on the region identifier is
// case-insensitive.
func (s *ShapefileSource) Boundary(ctx context.Context, regionID string, level int) (*Geometry, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("adm%d.shp", level))
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(ErrNotFound, "no shapefile for admin level %d", level)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, s.idField)
	nameIdx := fieldIndex(reader, s.nameField)
	if idIdx < 0 {
		return nil, eris.Errorf("boundary: id field %q not found in %s", s.idField, path)
	}

	for reader.Next() {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "boundary: scan cancelled")
		}

		id := strings.TrimSpace(reader.Attribute(idIdx))
		if !strings.EqualFold(id, regionID) {
			continue
		}

		_, shape := reader.Shape()
		polygon, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		mp := polygonToMultiPolygon(polygon)
		if mp == nil {
			continue
		}

		name := id
		if nameIdx >= 0 {
			if n := strings.TrimSpace(reader.Attribute(nameIdx)); n != "" {
				name = n
			}
		}

		zap.L().Debug("boundary: matched region",
			zap.String("region", id),
			zap.Int("level", level),
			zap.Int("polygons", mp.NumPolygons()),
		)
		return &Geometry{
			RegionID:     id,
			Name:         name,
			Level:        level,
			MultiPolygon: mp,
		}, nil
	}

	return nil, eris.Wrapf(ErrNotFound, "region %q at level %d", regionID, level)
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if
// not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile Polygon to a go-geom
// MultiPolygon in WGS84.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	mp.SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		ring := geom.NewLinearRing(geom.XY)
		if _, err := ring.SetCoords(coords); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping polygon push", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
