// Package boundary supplies administrative boundary polygons from
// shapefile data for use as map polygon layers.
package boundary

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ErrNotFound is returned when no boundary matches a region identifier at
// the requested administrative level.
var ErrNotFound = eris.New("boundary: region not found")

// Geometry is one administrative boundary: a multipolygon plus the
// attributes identifying it.
type Geometry struct {
	RegionID string
	Name     string
	// Level is the administrative level: 0 = country, 1 = first
	// subdivision, and so on.
	Level        int
	MultiPolygon *geom.MultiPolygon
}

// Source resolves region identifiers to boundary geometry.
type Source interface {
	Boundary(ctx context.Context, regionID string, level int) (*Geometry, error)
}

// GeoJSON encodes the boundary as a GeoJSON Feature.
func (g *Geometry) GeoJSON() ([]byte, error) {
	f := geojson.Feature{
		ID:       g.RegionID,
		Geometry: g.MultiPolygon,
		Properties: map[string]any{
			"name":  g.Name,
			"level": g.Level,
		},
	}
	data, err := f.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "boundary: encode geojson")
	}
	return data, nil
}
