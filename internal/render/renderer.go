// Package render hands finished MapSpecs to output renderers. The
// pipeline's responsibility ends once a renderer accepts the spec.
package render

import (
	"context"

	"github.com/geoforge/mapcli/internal/compose"
)

// Renderer consumes a MapSpec and writes a viewable artifact to the given
// path.
type Renderer interface {
	Render(ctx context.Context, spec compose.MapSpec, outPath string) error
}

// ForFormat returns the renderer for an output format name: "html" for a
// standalone interactive document, "json" for a machine-readable MapSpec
// consumable by external renderers.
func ForFormat(format string) (Renderer, bool) {
	switch format {
	case "html":
		return NewLeaflet(), true
	case "json":
		return NewJSON(), true
	default:
		return nil, false
	}
}
