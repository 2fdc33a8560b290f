package compose

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/boundary"
	"github.com/geoforge/mapcli/internal/model"
)

// DefaultMinDensityPoints is the point count below which a density layer
// degrades to an empty layer: a density estimate is undefined for fewer
// than 2 points.
const DefaultMinDensityPoints = 2

// Exclusion reports how many records a layer dropped for null or invalid
// coordinates. Exclusions are policy, not errors, but are always surfaced.
type Exclusion struct {
	Layer    string `json:"layer"`
	Excluded int    `json:"excluded"`
}

// Warnings is the non-fatal composition outcome: per-layer exclusion
// counts plus density layers that degraded to empty.
type Warnings struct {
	Exclusions []Exclusion `json:"exclusions,omitempty"`
	// EmptyDensityLayers lists density layers below the minimum point count.
	EmptyDensityLayers []string `json:"empty_density_layers,omitempty"`
}

// Empty reports whether composition completed without exclusions.
func (w *Warnings) Empty() bool {
	return w == nil || (len(w.Exclusions) == 0 && len(w.EmptyDensityLayers) == 0)
}

// ErrNoUsableRecords is the fatal composition error: every record of every
// point and density layer was excluded.
var ErrNoUsableRecords = eris.New("compose: zero usable records remain after exclusions")

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithMinDensityPoints overrides the density layer minimum point count.
func WithMinDensityPoints(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.minDensityPoints = n
		}
	}
}

// LayerOption configures one layer.
type LayerOption func(*layerParams)

type layerParams struct {
	group string
	popup PopupFunc
}

// WithGroup assigns the layer to an interactive show/hide group.
func WithGroup(group string) LayerOption {
	return func(p *layerParams) { p.group = group }
}

// WithPopup attaches a popup template applied to each usable record.
func WithPopup(f PopupFunc) LayerOption {
	return func(p *layerParams) { p.popup = f }
}

// Builder accumulates layers in draw order and produces a MapSpec in one
// Build call. All configuration is explicit; there is no shared or global
// map state.
type Builder struct {
	descriptor       basemap.Descriptor
	minDensityPoints int

	layers      []Layer
	warnings    Warnings
	usable      int
	pointLayers int
}

// NewBuilder creates a Builder over a validated basemap descriptor.
func NewBuilder(desc basemap.Descriptor, opts ...BuilderOption) (*Builder, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		descriptor:       desc,
		minDensityPoints: DefaultMinDensityPoints,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// AddPointLayer appends a marker layer. Records with null or out-of-range
// coordinates are excluded and counted.
func (b *Builder) AddPointLayer(name string, rs *model.RecordSet, style Style, opts ...LayerOption) {
	params := applyOptions(opts)
	points, excluded := collectPoints(rs, params.popup)

	b.track(name, excluded, len(points))
	b.pointLayers++
	b.layers = append(b.layers, Layer{
		ID:     layerID(len(b.layers), name),
		Name:   name,
		Kind:   KindPoint,
		Group:  params.group,
		Style:  style,
		Points: points,
	})
}

// AddDensityLayer appends a heat-map layer. Below the minimum point count
// the layer is kept but empty, so draw order and group toggles stay
// stable.
func (b *Builder) AddDensityLayer(name string, rs *model.RecordSet, style Style, opts ...LayerOption) {
	params := applyOptions(opts)
	points, excluded := collectPoints(rs, nil)

	b.track(name, excluded, len(points))
	b.pointLayers++

	if len(points) < b.minDensityPoints {
		zap.L().Warn("compose: density layer below minimum point count, emitting empty layer",
			zap.String("layer", name),
			zap.Int("points", len(points)),
			zap.Int("min", b.minDensityPoints),
		)
		b.warnings.EmptyDensityLayers = append(b.warnings.EmptyDensityLayers, name)
		points = nil
	}

	b.layers = append(b.layers, Layer{
		ID:     layerID(len(b.layers), name),
		Name:   name,
		Kind:   KindDensity,
		Group:  params.group,
		Style:  style,
		Points: points,
	})
}

// AddPolygonLayer appends a boundary geometry layer.
func (b *Builder) AddPolygonLayer(name string, g *boundary.Geometry, style Style, opts ...LayerOption) error {
	params := applyOptions(opts)

	geojson, err := g.GeoJSON()
	if err != nil {
		return eris.Wrapf(err, "compose: polygon layer %s", name)
	}

	b.layers = append(b.layers, Layer{
		ID:      layerID(len(b.layers), name),
		Name:    name,
		Kind:    KindPolygon,
		Group:   params.group,
		Style:   style,
		GeoJSON: geojson,
	})
	return nil
}

// Build finalizes the MapSpec. It fails only when point/density layers
// were requested and every one of their records was excluded; any lesser
// exclusion is reported through the warning batch accompanying the spec.
func (b *Builder) Build() (*MapSpec, *Warnings, error) {
	if b.pointLayers > 0 && b.usable == 0 {
		return nil, nil, ErrNoUsableRecords
	}

	spec := &MapSpec{
		Basemap: b.descriptor,
		Layers:  b.layers,
	}

	warnings := b.warnings
	zap.L().Info("composition complete",
		zap.Int("layers", len(spec.Layers)),
		zap.Int("usable_points", b.usable),
		zap.Int("excluded_layers", len(warnings.Exclusions)),
	)
	return spec, &warnings, nil
}

// track records a layer's exclusion count and usable contribution.
func (b *Builder) track(name string, excluded, usable int) {
	b.usable += usable
	if excluded > 0 {
		b.warnings.Exclusions = append(b.warnings.Exclusions, Exclusion{Layer: name, Excluded: excluded})
	}
}

// applyOptions folds layer options.
func applyOptions(opts []LayerOption) layerParams {
	var p layerParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// collectPoints extracts usable coordinates from a record set, applying
// the popup template to each included record.
func collectPoints(rs *model.RecordSet, popup PopupFunc) (points []Point, excluded int) {
	for _, rec := range rs.Records {
		lat, lon, ok := rec.Coordinates()
		if !ok {
			excluded++
			continue
		}
		if err := model.ValidateCoordinate(lat, lon); err != nil {
			excluded++
			continue
		}

		p := Point{Lat: lat, Lon: lon}
		if popup != nil {
			p.Popup = popup(rec)
		}
		points = append(points, p)
	}
	return points, excluded
}

// FieldPopup returns a popup template joining the named fields as
// "field: value" lines, skipping nulls.
func FieldPopup(fields ...string) PopupFunc {
	return func(r model.Record) string {
		out := ""
		for _, f := range fields {
			v := r.Get(f)
			if v == nil {
				continue
			}
			if out != "" {
				out += "\n"
			}
			out += fmt.Sprintf("%s: %v", f, v)
		}
		return out
	}
}
