package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/geoforge/mapcli/internal/compose"
	"github.com/geoforge/mapcli/internal/filter"
)

// LayerDef is the declarative form of one map layer, as written in a layer
// definition file. Point and density layers draw from the loaded record
// set, optionally narrowed by a filter; polygon layers reference an
// administrative boundary by region code.
type LayerDef struct {
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind"` // point, density, polygon
	Group       string         `yaml:"group,omitempty"`
	Style       map[string]any `yaml:"style,omitempty"`
	Filter      *filter.Def    `yaml:"filter,omitempty"`
	PopupFields []string       `yaml:"popup_fields,omitempty"`

	// Region and Level select boundary geometry for polygon layers.
	Region string `yaml:"region,omitempty"`
	Level  int    `yaml:"level,omitempty"`
}

// Validate checks a definition for internal consistency.
func (d LayerDef) Validate() error {
	if d.Name == "" {
		return eris.New("pipeline: layer definition missing name")
	}
	switch compose.Kind(d.Kind) {
	case compose.KindPoint, compose.KindDensity:
		if d.Region != "" {
			return eris.Errorf("pipeline: layer %s: region is only valid on polygon layers", d.Name)
		}
	case compose.KindPolygon:
		if d.Region == "" {
			return eris.Errorf("pipeline: polygon layer %s requires a region", d.Name)
		}
		if d.Filter != nil {
			return eris.Errorf("pipeline: polygon layer %s cannot carry a record filter", d.Name)
		}
	default:
		return eris.Errorf("pipeline: layer %s: unknown kind %q", d.Name, d.Kind)
	}
	return nil
}

type layerFile struct {
	Layers []LayerDef `yaml:"layers"`
}

// LoadLayerDefs reads and validates a YAML layer definition file.
func LoadLayerDefs(path string) ([]LayerDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read layer definitions")
	}

	var file layerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse layer definitions")
	}
	if len(file.Layers) == 0 {
		return nil, eris.Errorf("pipeline: %s defines no layers", path)
	}

	for _, def := range file.Layers {
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Layers, nil
}
