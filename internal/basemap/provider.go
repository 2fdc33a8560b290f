// Package basemap names tile providers and serves basemap raster tiles
// through a caching proxy.
package basemap

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/geoforge/mapcli/internal/model"
)

// Provider describes an upstream tile source.
type Provider struct {
	Name        string
	URLTemplate string // Leaflet-style {z}/{x}/{y} template
	Attribution string
	MaxZoom     int
	Format      string // tile image format: png, jpg, webp
}

// Descriptor is the base-map portion of a MapSpec: which provider to draw
// beneath the data layers, centered where, at what zoom.
type Descriptor struct {
	Provider  string  `json:"provider" yaml:"provider"`
	CenterLat float64 `json:"center_lat" yaml:"center_lat"`
	CenterLon float64 `json:"center_lon" yaml:"center_lon"`
	Zoom      int     `json:"zoom" yaml:"zoom"`
}

// builtins is the default provider registry. Callers pass descriptors
// explicitly; there is no ambient default map object.
var builtins = map[string]Provider{
	"osm": {
		Name:        "osm",
		URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MaxZoom:     19,
		Format:      "png",
	},
	"carto-light": {
		Name:        "carto-light",
		URLTemplate: "https://basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
		Format:      "png",
	},
	"carto-dark": {
		Name:        "carto-dark",
		URLTemplate: "https://basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors © CARTO",
		MaxZoom:     20,
		Format:      "png",
	},
	"opentopo": {
		Name:        "opentopo",
		URLTemplate: "https://tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors, SRTM | © OpenTopoMap",
		MaxZoom:     17,
		Format:      "png",
	},
}

// Lookup returns a named provider.
func Lookup(name string) (Provider, error) {
	p, ok := builtins[strings.ToLower(name)]
	if !ok {
		return Provider{}, eris.Errorf("basemap: unknown provider %q", name)
	}
	return p, nil
}

// Names lists registered provider names in stable order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks the descriptor against the registry and coordinate
// bounds.
func (d Descriptor) Validate() error {
	p, err := Lookup(d.Provider)
	if err != nil {
		return err
	}
	if err := model.ValidateCoordinate(d.CenterLat, d.CenterLon); err != nil {
		return eris.Wrap(err, "basemap: center")
	}
	if d.Zoom < 0 || d.Zoom > p.MaxZoom {
		return eris.Errorf("basemap: zoom %d outside [0,%d] for provider %s", d.Zoom, p.MaxZoom, p.Name)
	}
	return nil
}
