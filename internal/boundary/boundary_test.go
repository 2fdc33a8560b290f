package boundary

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// writeBoundaryShapefile creates an admN shapefile with two square regions.
func writeBoundaryShapefile(t *testing.T, dir string, level int) {
	t.Helper()

	path := filepath.Join(dir, "adm"+string(rune('0'+level))+".shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("GID", 16),
		shp.StringField("NAME", 32),
	}
	w.SetFields(fields)

	regions := []struct {
		gid, name string
		ring      []shp.Point
	}{
		{"USA", "United States", []shp.Point{{X: -100, Y: 30}, {X: -100, Y: 45}, {X: -80, Y: 45}, {X: -80, Y: 30}, {X: -100, Y: 30}}},
		{"CAN", "Canada", []shp.Point{{X: -110, Y: 50}, {X: -110, Y: 60}, {X: -90, Y: 60}, {X: -90, Y: 50}, {X: -110, Y: 50}}},
	}
	for i, region := range regions {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{region.ring}))
		w.Write(&poly)
		// Space-pad values to the field width: go-shp v0.1.1 leaves
		// unwritten record bytes as NULs, which a DBF reader does not trim.
		w.WriteAttribute(i, 0, fmt.Sprintf("%-16s", region.gid))
		w.WriteAttribute(i, 1, fmt.Sprintf("%-32s", region.name))
	}
	w.Close()

	// go-shp v0.1.1 writes the attribute table to "admNdbf" (no dot) while
	// the reader opens "admN.dbf"; rename so the fixture is readable.
	base := path[:len(path)-len(".shp")]
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

func TestShapefileSourceBoundary(t *testing.T) {
	dir := t.TempDir()
	writeBoundaryShapefile(t, dir, 0)

	src := NewShapefileSource(dir)
	g, err := src.Boundary(context.Background(), "CAN", 0)
	require.NoError(t, err)

	assert.Equal(t, "CAN", g.RegionID)
	assert.Equal(t, "Canada", g.Name)
	assert.Equal(t, 0, g.Level)
	require.NotNil(t, g.MultiPolygon)
	assert.Equal(t, 1, g.MultiPolygon.NumPolygons())
	assert.Equal(t, 4326, g.MultiPolygon.SRID())
}

func TestShapefileSourceCaseInsensitiveID(t *testing.T) {
	dir := t.TempDir()
	writeBoundaryShapefile(t, dir, 0)

	src := NewShapefileSource(dir)
	g, err := src.Boundary(context.Background(), "usa", 0)
	require.NoError(t, err)
	assert.Equal(t, "USA", g.RegionID)
}

func TestShapefileSourceNotFound(t *testing.T) {
	dir := t.TempDir()
	writeBoundaryShapefile(t, dir, 0)

	src := NewShapefileSource(dir)
	_, err := src.Boundary(context.Background(), "MEX", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShapefileSourceMissingLevel(t *testing.T) {
	src := NewShapefileSource(t.TempDir())
	_, err := src.Boundary(context.Background(), "USA", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeometryGeoJSON(t *testing.T) {
	dir := t.TempDir()
	writeBoundaryShapefile(t, dir, 0)

	src := NewShapefileSource(dir)
	g, err := src.Boundary(context.Background(), "USA", 0)
	require.NoError(t, err)

	data, err := g.GeoJSON()
	require.NoError(t, err)

	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type string `json:"type"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &feature))
	assert.Equal(t, "Feature", feature.Type)
	assert.Equal(t, "MultiPolygon", feature.Geometry.Type)
	assert.Equal(t, "United States", feature.Properties["name"])
}

func TestDownloadExtractsPack(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("pack/adm0.shp")
	require.NoError(t, err)
	_, err = f.Write([]byte("not-a-real-shapefile"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	dest := t.TempDir()
	dir, err := Download(context.Background(), nil, srv.URL+"/pack.zip", dest)
	require.NoError(t, err)

	// Internal paths are flattened.
	data, err := os.ReadFile(filepath.Join(dir, "adm0.shp"))
	require.NoError(t, err)
	assert.Equal(t, []byte("not-a-real-shapefile"), data)
}

func TestDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), nil, srv.URL+"/pack.zip", t.TempDir())
	assert.Error(t, err)
}
