package compose

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testDescriptor() basemap.Descriptor {
	return basemap.Descriptor{Provider: "osm", CenterLat: 39.8, CenterLon: -89.6, Zoom: 6}
}

func coordSet(coords [][2]any) *model.RecordSet {
	rs := model.NewRecordSet([]string{"id", "latitude", "longitude", "name"})
	for i, c := range coords {
		rs.Append(model.Record{Index: i, Fields: map[string]any{
			"id":        float64(i),
			"latitude":  c[0],
			"longitude": c[1],
			"name":      "rec",
		}})
	}
	return rs
}

func TestNewBuilderValidatesDescriptor(t *testing.T) {
	_, err := NewBuilder(basemap.Descriptor{Provider: "bogus"})
	assert.Error(t, err)

	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestPointLayerExcludesNullCoordinates(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	rs := coordSet([][2]any{
		{10.0, 20.0},
		{nil, nil},
		{30.0, 40.0},
	})
	b.AddPointLayer("events", rs, Style{"color": "red"})

	spec, warnings, err := b.Build()
	require.NoError(t, err)

	require.Len(t, spec.Layers, 1)
	assert.Len(t, spec.Layers[0].Points, 2)

	require.Len(t, warnings.Exclusions, 1)
	assert.Equal(t, "events", warnings.Exclusions[0].Layer)
	assert.Equal(t, 1, warnings.Exclusions[0].Excluded)
}

func TestPointLayerExcludesOutOfRange(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	rs := coordSet([][2]any{
		{95.0, 20.0}, // invalid latitude
		{30.0, 40.0},
	})
	b.AddPointLayer("events", rs, nil)

	spec, warnings, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, spec.Layers[0].Points, 1)
	require.Len(t, warnings.Exclusions, 1)
	assert.Equal(t, 1, warnings.Exclusions[0].Excluded)
}

func TestDensityLayerBelowMinimumIsEmptyNotError(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	rs := coordSet([][2]any{{10.0, 20.0}})
	b.AddDensityLayer("heat", rs, nil)

	spec, warnings, err := b.Build()
	require.NoError(t, err)

	require.Len(t, spec.Layers, 1)
	assert.Equal(t, KindDensity, spec.Layers[0].Kind)
	assert.Empty(t, spec.Layers[0].Points)
	assert.Equal(t, []string{"heat"}, warnings.EmptyDensityLayers)
}

func TestDensityLayerMinimumConfigurable(t *testing.T) {
	b, err := NewBuilder(testDescriptor(), WithMinDensityPoints(3))
	require.NoError(t, err)

	rs := coordSet([][2]any{{1.0, 1.0}, {2.0, 2.0}})
	b.AddDensityLayer("heat", rs, nil)

	spec, warnings, err := b.Build()
	require.NoError(t, err)
	assert.Empty(t, spec.Layers[0].Points)
	assert.Equal(t, []string{"heat"}, warnings.EmptyDensityLayers)
}

func TestBuildFailsWhenZeroUsableRecords(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	rs := coordSet([][2]any{{nil, nil}, {nil, nil}})
	b.AddPointLayer("events", rs, nil)

	_, _, err = b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUsableRecords)
}

func TestBuildPolygonOnlySpecNeedsNoRecords(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	spec, warnings, err := b.Build()
	require.NoError(t, err)
	assert.Empty(t, spec.Layers)
	assert.True(t, warnings.Empty())
}

func TestLayerOrderIsDrawOrder(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	rs := coordSet([][2]any{{1.0, 1.0}, {2.0, 2.0}})
	b.AddDensityLayer("base heat", rs, nil)
	b.AddPointLayer("markers", rs, nil, WithGroup("toggles"))

	spec, _, err := b.Build()
	require.NoError(t, err)

	require.Len(t, spec.Layers, 2)
	assert.Equal(t, "base heat", spec.Layers[0].Name)
	assert.Equal(t, "markers", spec.Layers[1].Name)
	assert.Equal(t, "toggles", spec.Layers[1].Group)
	assert.Equal(t, "layer-00-base-heat", spec.Layers[0].ID)
	assert.Equal(t, "layer-01-markers", spec.Layers[1].ID)
}

func TestPopupTemplateApplied(t *testing.T) {
	b, err := NewBuilder(testDescriptor())
	require.NoError(t, err)

	rs := model.NewRecordSet([]string{"name", "latitude", "longitude"})
	rs.Append(model.Record{Index: 0, Fields: map[string]any{
		"name": "Springfield", "latitude": 39.8, "longitude": -89.6,
	}})

	b.AddPointLayer("events", rs, nil, WithPopup(func(r model.Record) string {
		return r.GetString("name")
	}))

	spec, _, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "Springfield", spec.Layers[0].Points[0].Popup)
}

func TestFieldPopupSkipsNulls(t *testing.T) {
	popup := FieldPopup("name", "category", "magnitude")
	r := model.Record{Fields: map[string]any{
		"name":      "Springfield",
		"category":  nil,
		"magnitude": 3.0,
	}}
	assert.Equal(t, "name: Springfield\nmagnitude: 3", popup(r))
}

func TestMapSpecDeterministic(t *testing.T) {
	build := func() []byte {
		b, err := NewBuilder(testDescriptor())
		require.NoError(t, err)
		rs := coordSet([][2]any{{1.0, 2.0}, {3.0, 4.0}, {nil, nil}})
		b.AddPointLayer("events", rs, Style{"color": "red", "radius": 4})
		b.AddDensityLayer("heat", rs, Style{"radius": 20})
		spec, _, err := b.Build()
		require.NoError(t, err)
		data, err := json.Marshal(spec)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, build(), build(), "identical input must produce byte-identical MapSpecs")
}

func TestStyleClone(t *testing.T) {
	base := Style{"color": "red"}
	c := base.Clone()
	c["color"] = "blue"
	assert.Equal(t, "red", base["color"])
}
