package basemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestLookup(t *testing.T) {
	p, err := Lookup("osm")
	require.NoError(t, err)
	assert.Equal(t, "osm", p.Name)
	assert.Contains(t, p.URLTemplate, "{z}")

	p, err = Lookup("OSM")
	require.NoError(t, err)
	assert.Equal(t, "osm", p.Name)

	_, err = Lookup("mystery-tiles")
	assert.Error(t, err)
}

func TestNamesStable(t *testing.T) {
	names := Names()
	assert.Equal(t, names, Names())
	assert.Contains(t, names, "osm")
	assert.Contains(t, names, "carto-dark")
}

func TestDescriptorValidate(t *testing.T) {
	valid := Descriptor{Provider: "osm", CenterLat: 39.8, CenterLon: -89.6, Zoom: 6}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Provider = "nope"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.CenterLat = 91
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Zoom = 25
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Zoom = -1
	assert.Error(t, bad.Validate())
}

func TestTileCacheLRUEviction(t *testing.T) {
	c := NewTileCache(2, time.Minute)
	c.Put("osm", 1, 0, 0, []byte("a"))
	c.Put("osm", 1, 0, 1, []byte("b"))

	// Touch the first entry so the second becomes eviction candidate.
	assert.Equal(t, []byte("a"), c.Get("osm", 1, 0, 0))

	c.Put("osm", 1, 1, 1, []byte("c"))

	assert.Equal(t, []byte("a"), c.Get("osm", 1, 0, 0))
	assert.Nil(t, c.Get("osm", 1, 0, 1), "least recently used entry should be evicted")
	assert.Equal(t, []byte("c"), c.Get("osm", 1, 1, 1))
}

func TestTileCacheTTL(t *testing.T) {
	c := NewTileCache(10, time.Nanosecond)
	c.Put("osm", 1, 0, 0, []byte("a"))
	time.Sleep(time.Millisecond)
	assert.Nil(t, c.Get("osm", 1, 0, 0))
}

func TestTileCacheKeyedByProvider(t *testing.T) {
	c := NewTileCache(10, time.Minute)
	c.Put("osm", 1, 0, 0, []byte("osm-tile"))
	c.Put("carto-light", 1, 0, 0, []byte("carto-tile"))

	assert.Equal(t, []byte("osm-tile"), c.Get("osm", 1, 0, 0))
	assert.Equal(t, []byte("carto-tile"), c.Get("carto-light", 1, 0, 0))
}

func TestTileCacheStats(t *testing.T) {
	c := NewTileCache(10, time.Minute)
	c.Put("osm", 1, 0, 0, []byte("a"))
	c.Get("osm", 1, 0, 0)
	c.Get("osm", 2, 0, 0)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestTileProxyFetchAndCache(t *testing.T) {
	var upstream atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstream.Add(1)
		assert.Equal(t, "/6/32/24.png", r.URL.Path)
		_, _ = w.Write([]byte("tile-bytes"))
	}))
	defer srv.Close()

	provider := Provider{Name: "test", URLTemplate: srv.URL + "/{z}/{x}/{y}.png", Format: "png"}
	proxy := NewTileProxy(provider, NewTileCache(10, time.Minute))

	data, ct, err := proxy.Fetch(context.Background(), 6, 32, 24)
	require.NoError(t, err)
	assert.Equal(t, []byte("tile-bytes"), data)
	assert.Equal(t, "image/png", ct)

	_, _, err = proxy.Fetch(context.Background(), 6, 32, 24)
	require.NoError(t, err)
	assert.Equal(t, int64(1), upstream.Load(), "second fetch must hit the cache")
}

func TestTileProxyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	provider := Provider{Name: "test", URLTemplate: srv.URL + "/{z}/{x}/{y}.png", Format: "png"}
	proxy := NewTileProxy(provider, nil)

	_, _, err := proxy.Fetch(context.Background(), 1, 0, 0)
	assert.Error(t, err)
}

func TestExpandTemplate(t *testing.T) {
	assert.Equal(t, "https://t.example/3/2/1.png",
		expandTemplate("https://t.example/{z}/{x}/{y}.png", 3, 2, 1))
}
