package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGet(t *testing.T) {
	r := Record{Index: 0, Fields: map[string]any{
		"name":     "Springfield",
		"latitude": 39.8,
		"count":    nil,
	}}

	assert.Equal(t, "Springfield", r.GetString("name"))
	assert.Equal(t, "", r.GetString("missing"))

	lat, ok := r.GetFloat("latitude")
	require.True(t, ok)
	assert.InDelta(t, 39.8, lat, 1e-9)

	_, ok = r.GetFloat("name")
	assert.False(t, ok)

	assert.True(t, r.IsNull("count"))
	assert.True(t, r.IsNull("missing"))
	assert.False(t, r.IsNull("name"))
}

func TestRecordCoordinates(t *testing.T) {
	r := Record{Fields: map[string]any{
		FieldLatitude:  10.0,
		FieldLongitude: 20.0,
	}}
	lat, lon, ok := r.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 10.0, lat)
	assert.Equal(t, 20.0, lon)

	r = Record{Fields: map[string]any{FieldLatitude: 10.0}}
	_, _, ok = r.Coordinates()
	assert.False(t, ok)

	r = Record{Fields: map[string]any{FieldLatitude: 10.0, FieldLongitude: nil}}
	_, _, ok = r.Coordinates()
	assert.False(t, ok)
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := Record{Index: 3, Fields: map[string]any{"a": "x"}}
	c := r.Clone()
	c.Fields["a"] = "y"

	assert.Equal(t, "x", r.Fields["a"])
	assert.Equal(t, 3, c.Index)
}

func TestRecordSetSchema(t *testing.T) {
	rs := NewRecordSet([]string{"id", "place"})
	assert.True(t, rs.HasColumn("place"))
	assert.False(t, rs.HasColumn("latitude"))

	cols := rs.WithColumns(FieldLatitude, FieldLongitude, "id")
	assert.Equal(t, []string{"id", "place", "latitude", "longitude"}, cols)
	// Source schema unchanged.
	assert.Equal(t, []string{"id", "place"}, rs.Columns)
}

func TestValidateCoordinate(t *testing.T) {
	assert.NoError(t, ValidateCoordinate(45, 120))
	assert.NoError(t, ValidateCoordinate(-90, 180))
	assert.Error(t, ValidateCoordinate(91, 0))
	assert.Error(t, ValidateCoordinate(0, -181))
}
