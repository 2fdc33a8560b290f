// Package model defines the tabular record types flowing through the
// mapping pipeline.
package model

import (
	"github.com/rotisserie/eris"
)

// Standard coordinate field names used after resolution.
const (
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

// Record maps field names to values. Values are strings, float64, or nil.
// Every record carries a stable row index assigned by the loader.
type Record struct {
	Index  int
	Fields map[string]any
}

// Get returns the value for a field, or nil when absent.
func (r Record) Get(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// GetString returns the field as a string. Non-string and nil values
// return "".
func (r Record) GetString(name string) string {
	s, _ := r.Get(name).(string)
	return s
}

// GetFloat returns the field as a float64 plus whether it was present and
// numeric.
func (r Record) GetFloat(name string) (float64, bool) {
	f, ok := r.Get(name).(float64)
	return f, ok
}

// IsNull reports whether the field is absent or nil.
func (r Record) IsNull(name string) bool {
	return r.Get(name) == nil
}

// Coordinates returns the record's latitude/longitude when both are present
// and numeric.
func (r Record) Coordinates() (lat, lon float64, ok bool) {
	lat, latOK := r.GetFloat(FieldLatitude)
	lon, lonOK := r.GetFloat(FieldLongitude)
	if !latOK || !lonOK {
		return 0, 0, false
	}
	return lat, lon, true
}

// Clone returns a deep copy of the record. Resolver output is built from
// clones so loaded RecordSets stay immutable.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Index: r.Index, Fields: fields}
}

// RecordSet is an ordered sequence of records sharing a schema. It is
// treated as immutable once built; derivations copy rather than mutate.
type RecordSet struct {
	Columns []string
	Records []Record
}

// NewRecordSet creates a RecordSet with the given column schema.
func NewRecordSet(columns []string) *RecordSet {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &RecordSet{Columns: cols}
}

// Len returns the number of records.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

// HasColumn reports whether the schema contains the named column.
func (rs *RecordSet) HasColumn(name string) bool {
	for _, c := range rs.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a record. Used only during construction by the loader and
// resolver.
func (rs *RecordSet) Append(r Record) {
	rs.Records = append(rs.Records, r)
}

// WithColumns returns a copy of the set's schema extended with any columns
// not already present.
func (rs *RecordSet) WithColumns(names ...string) []string {
	cols := make([]string, len(rs.Columns))
	copy(cols, rs.Columns)
	for _, n := range names {
		if !rs.HasColumn(n) {
			cols = append(cols, n)
		}
	}
	return cols
}

// ValidateCoordinate checks decimal-degree WGS84 bounds.
func ValidateCoordinate(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return eris.Errorf("latitude %f out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return eris.Errorf("longitude %f out of range [-180,180]", lon)
	}
	return nil
}
