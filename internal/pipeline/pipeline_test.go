package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/compose"
	"github.com/geoforge/mapcli/internal/filter"
	"github.com/geoforge/mapcli/internal/loader"
	"github.com/geoforge/mapcli/internal/render"
	"github.com/geoforge/mapcli/internal/resolve"
	"github.com/geoforge/mapcli/pkg/geocode"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubGeocoder struct {
	calls int
}

func (s *stubGeocoder) Geocode(_ context.Context, place string) (*geocode.Result, error) {
	s.calls++
	return &geocode.Result{
		Latitude:  41.9,
		Longitude: -87.6,
		Source:    "stub",
		Matched:   true,
	}, nil
}

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func testDescriptor() basemap.Descriptor {
	return basemap.Descriptor{Provider: "osm", CenterLat: 40.0, CenterLon: -89.0, Zoom: 6}
}

func TestRun(t *testing.T) {
	csv := writeCSV(t, "place,latitude,longitude,severity\na,41.0,-87.0,high\nb,42.0,-88.0,low\nc,43.0,-89.0,high\n")
	out := filepath.Join(t.TempDir(), "map.json")

	geocoder := &stubGeocoder{}
	p := New(
		resolve.New(geocoder, resolve.Options{}),
		render.NewJSON(),
	)

	result, err := p.Run(context.Background(), Request{
		Source:  loader.Source{Path: csv},
		Basemap: testDescriptor(),
		Layers: []LayerDef{
			{
				Name:   "severe events",
				Kind:   "point",
				Filter: &filter.Def{Field: "severity", Op: "eq", Value: "high"},
			},
			{Name: "all events", Kind: "density"},
		},
		OutputPath: out,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Records)
	require.Len(t, result.Stages, 4)
	for _, stage := range result.Stages {
		assert.Equal(t, "ok", stage.Status, stage.Name)
	}
	// explicit coordinates on every row, so the geocoder is never consulted
	assert.Zero(t, geocoder.calls)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var spec compose.MapSpec
	require.NoError(t, json.Unmarshal(data, &spec))
	require.Len(t, spec.Layers, 2)
	assert.Len(t, spec.Layers[0].Points, 2)
	assert.Len(t, spec.Layers[1].Points, 3)
}

func TestRunLoadFailure(t *testing.T) {
	p := New(resolve.New(&stubGeocoder{}, resolve.Options{}), render.NewJSON())

	result, err := p.Run(context.Background(), Request{
		Source:     loader.Source{Path: filepath.Join(t.TempDir(), "missing.csv")},
		Basemap:    testDescriptor(),
		OutputPath: filepath.Join(t.TempDir(), "map.json"),
	})
	require.Error(t, err)
	require.Len(t, result.Stages, 1)
	assert.Equal(t, "load", result.Stages[0].Name)
	assert.Equal(t, "failed", result.Stages[0].Status)
}

func TestRunPolygonWithoutBoundarySource(t *testing.T) {
	csv := writeCSV(t, "place,latitude,longitude\na,41.0,-87.0\n")

	p := New(resolve.New(&stubGeocoder{}, resolve.Options{}), render.NewJSON())

	_, err := p.Run(context.Background(), Request{
		Source:  loader.Source{Path: csv},
		Basemap: testDescriptor(),
		Layers: []LayerDef{
			{Name: "state", Kind: "polygon", Region: "USA-IL", Level: 1},
		},
		OutputPath: filepath.Join(t.TempDir(), "map.json"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boundary source")
}

func TestRunGeocodesMissingCoordinates(t *testing.T) {
	csv := writeCSV(t, "place,latitude,longitude\nChicago,,\nChicago,,\n")
	out := filepath.Join(t.TempDir(), "map.json")

	geocoder := &stubGeocoder{}
	p := New(resolve.New(geocoder, resolve.Options{}), render.NewJSON())

	result, err := p.Run(context.Background(), Request{
		Source:     loader.Source{Path: csv},
		Basemap:    testDescriptor(),
		Layers:     []LayerDef{{Name: "events", Kind: "point"}},
		OutputPath: out,
	})
	require.NoError(t, err)

	// duplicate place names collapse to a single lookup
	assert.Equal(t, 1, geocoder.calls)
	assert.True(t, result.Resolve.Empty())
}
