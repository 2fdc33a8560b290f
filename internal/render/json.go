package render

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/geoforge/mapcli/internal/compose"
)

// JSONRenderer writes the MapSpec itself, for consumption by external
// renderers.
type JSONRenderer struct{}

// NewJSON creates a JSONRenderer.
func NewJSON() *JSONRenderer { return &JSONRenderer{} }

// Render implements Renderer.
func (r *JSONRenderer) Render(_ context.Context, spec compose.MapSpec, outPath string) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return eris.Wrap(err, "render: marshal mapspec")
	}
	data = append(data, '\n')

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return eris.Wrap(err, "render: write mapspec")
	}
	return nil
}
