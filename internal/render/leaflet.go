package render

import (
	"context"
	"encoding/json"
	"html/template"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoforge/mapcli/internal/basemap"
	"github.com/geoforge/mapcli/internal/compose"
)

// LeafletRenderer writes a standalone interactive HTML document. Point
// layers become circle markers, density layers become heat surfaces, and
// polygon layers become GeoJSON overlays; layers sharing a group get a
// show/hide toggle.
type LeafletRenderer struct {
	title string
}

// LeafletOption configures the renderer.
type LeafletOption func(*LeafletRenderer)

// WithTitle sets the document title.
func WithTitle(title string) LeafletOption {
	return func(r *LeafletRenderer) { r.title = title }
}

// NewLeaflet creates a LeafletRenderer.
func NewLeaflet(opts ...LeafletOption) *LeafletRenderer {
	r := &LeafletRenderer{title: "mapcli"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements Renderer.
func (r *LeafletRenderer) Render(_ context.Context, spec compose.MapSpec, outPath string) error {
	provider, err := basemap.Lookup(spec.Basemap.Provider)
	if err != nil {
		return err
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return eris.Wrap(err, "render: marshal mapspec")
	}

	data := struct {
		Title       string
		SpecJSON    template.JS
		TileURL     string
		Attribution string
		MaxZoom     int
	}{
		Title:       r.title,
		SpecJSON:    template.JS(specJSON), //nolint:gosec // spec is application-generated JSON
		TileURL:     provider.URLTemplate,
		Attribution: provider.Attribution,
		MaxZoom:     provider.MaxZoom,
	}

	f, err := os.Create(outPath)
	if err != nil {
		return eris.Wrap(err, "render: create output")
	}
	defer func() { _ = f.Close() }()

	if err := pageTemplate.Execute(f, data); err != nil {
		return eris.Wrap(err, "render: execute template")
	}

	zap.L().Info("rendered interactive map",
		zap.String("path", outPath),
		zap.Int("layers", len(spec.Layers)),
	)
	return nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0"/>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.heat@0.2.0/dist/leaflet-heat.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var spec = {{.SpecJSON}};

var map = L.map('map').setView([spec.basemap.center_lat, spec.basemap.center_lon], spec.basemap.zoom);
L.tileLayer('{{.TileURL}}', {
  maxZoom: {{.MaxZoom}},
  attribution: '{{.Attribution}}'
}).addTo(map);

var groups = {};
function groupFor(layer) {
  if (!layer.group) { return null; }
  if (!groups[layer.group]) { groups[layer.group] = L.layerGroup().addTo(map); }
  return groups[layer.group];
}
function addTo(layer, obj) {
  var g = groupFor(layer);
  if (g) { g.addLayer(obj); } else { obj.addTo(map); }
}

spec.layers.forEach(function (layer) {
  var style = layer.style || {};
  if (layer.kind === 'point') {
    (layer.points || []).forEach(function (p) {
      var marker = L.circleMarker([p.lat, p.lon], {
        radius: style.radius || 5,
        color: style.color || '#3388ff',
        fillOpacity: style.opacity !== undefined ? style.opacity : 0.7
      });
      if (p.popup) { marker.bindPopup(p.popup); }
      addTo(layer, marker);
    });
  } else if (layer.kind === 'density') {
    var pts = (layer.points || []).map(function (p) { return [p.lat, p.lon]; });
    addTo(layer, L.heatLayer(pts, {
      radius: style.radius || 25,
      blur: style.blur || 15
    }));
  } else if (layer.kind === 'polygon' && layer.geojson) {
    addTo(layer, L.geoJSON(layer.geojson, {
      style: {
        color: style.color || '#444',
        weight: style.weight || 2,
        fillOpacity: style.opacity !== undefined ? style.opacity : 0.1
      }
    }));
  }
});

if (Object.keys(groups).length > 0) {
  L.control.layers(null, groups).addTo(map);
}
</script>
</body>
</html>
`))
