// Package compose builds ordered map layer lists (MapSpecs) from resolved
// record sets and boundary geometry.
package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/model"
)

// Kind tags the layer variants.
type Kind string

// Layer kinds.
const (
	KindPoint   Kind = "point"
	KindDensity Kind = "density"
	KindPolygon Kind = "polygon"
)

// Style maps style keys (color, radius, opacity, fill, ...) to values.
type Style map[string]any

// Clone returns a copy so callers can reuse a base style without aliasing.
func (s Style) Clone() Style {
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// PopupFunc formats a record into popup display text. Implementations must
// be pure: no side effects, no errors.
type PopupFunc func(model.Record) string

// Point is one renderable marker or density sample.
type Point struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup,omitempty"`
}

// Layer is one renderable layer. Order within a MapSpec is the draw order:
// later layers draw on top of earlier ones.
type Layer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Group string `json:"group,omitempty"`
	Style Style  `json:"style,omitempty"`

	// Points carries the usable records of point and density layers.
	Points []Point `json:"points,omitempty"`
	// GeoJSON carries polygon layer geometry as a GeoJSON feature.
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
}

// MapSpec fully describes one renderable map. It is owned by the caller
// and passed by value to renderers.
type MapSpec struct {
	Basemap basemap.Descriptor `json:"basemap"`
	Layers  []Layer            `json:"layers"`
}

// layerID derives a deterministic identifier so identical inputs always
// produce identical MapSpecs.
func layerID(position int, name string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(name)), "-")
	return fmt.Sprintf("layer-%02d-%s", position, slug)
}
