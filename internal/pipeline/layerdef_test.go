package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLayerFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLayerDefs(t *testing.T) {
	path := writeLayerFile(t, `
layers:
  - name: severe events
    kind: point
    group: events
    style:
      color: red
      radius: 6
    popup_fields: [place, severity]
    filter:
      field: severity
      op: eq
      value: high
  - name: all events
    kind: density
  - name: illinois
    kind: polygon
    region: USA-IL
    level: 1
`)

	defs, err := LoadLayerDefs(path)
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "severe events", defs[0].Name)
	assert.Equal(t, "point", defs[0].Kind)
	assert.Equal(t, "events", defs[0].Group)
	assert.Equal(t, "red", defs[0].Style["color"])
	require.NotNil(t, defs[0].Filter)
	assert.Equal(t, "severity", defs[0].Filter.Field)
	assert.Equal(t, []string{"place", "severity"}, defs[0].PopupFields)

	assert.Equal(t, "USA-IL", defs[2].Region)
	assert.Equal(t, 1, defs[2].Level)
}

func TestLoadLayerDefsEmpty(t *testing.T) {
	path := writeLayerFile(t, "layers: []\n")
	_, err := LoadLayerDefs(path)
	assert.Error(t, err)
}

func TestLayerDefValidate(t *testing.T) {
	tests := []struct {
		name string
		def  LayerDef
		ok   bool
	}{
		{"point", LayerDef{Name: "a", Kind: "point"}, true},
		{"density", LayerDef{Name: "a", Kind: "density"}, true},
		{"polygon", LayerDef{Name: "a", Kind: "polygon", Region: "USA-IL"}, true},
		{"missing name", LayerDef{Kind: "point"}, false},
		{"unknown kind", LayerDef{Name: "a", Kind: "choropleth"}, false},
		{"polygon without region", LayerDef{Name: "a", Kind: "polygon"}, false},
		{"point with region", LayerDef{Name: "a", Kind: "point", Region: "USA-IL"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
