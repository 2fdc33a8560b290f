// Package filter derives record subsets through composable, side-effect
// free predicates over record fields.
package filter

import (
	"strings"

	"github.com/geoforge/mapcli/internal/model"
)

// Predicate decides whether a record belongs to a subset. Implementations
// must be deterministic and free of side effects.
type Predicate interface {
	Match(r model.Record) bool
}

// predicateFunc adapts a function to the Predicate interface.
type predicateFunc func(model.Record) bool

func (f predicateFunc) Match(r model.Record) bool { return f(r) }

// Eq matches records whose field equals the given value. Null fields never
// match; use IsNull to test for null explicitly. String comparison is
// case-sensitive.
func Eq(field string, value any) Predicate {
	return predicateFunc(func(r model.Record) bool {
		v := r.Get(field)
		if v == nil {
			return false
		}
		return v == value
	})
}

// EqFold matches string fields case-insensitively.
func EqFold(field, value string) Predicate {
	return predicateFunc(func(r model.Record) bool {
		s, ok := r.Get(field).(string)
		if !ok {
			return false
		}
		return strings.EqualFold(s, value)
	})
}

// In matches records whose field equals any of the given values. Null
// fields never match.
func In(field string, values ...any) Predicate {
	return predicateFunc(func(r model.Record) bool {
		v := r.Get(field)
		if v == nil {
			return false
		}
		for _, want := range values {
			if v == want {
				return true
			}
		}
		return false
	})
}

// Range matches numeric fields within [min, max] inclusive.
func Range(field string, min, max float64) Predicate {
	return predicateFunc(func(r model.Record) bool {
		f, ok := r.GetFloat(field)
		if !ok {
			return false
		}
		return f >= min && f <= max
	})
}

// IsNull matches records whose field is null or absent.
func IsNull(field string) Predicate {
	return predicateFunc(func(r model.Record) bool {
		return r.IsNull(field)
	})
}

// NotNull matches records whose field is present and non-null.
func NotNull(field string) Predicate {
	return predicateFunc(func(r model.Record) bool {
		return !r.IsNull(field)
	})
}

// And matches when every child predicate matches. With no children it
// matches everything.
func And(preds ...Predicate) Predicate {
	return predicateFunc(func(r model.Record) bool {
		for _, p := range preds {
			if !p.Match(r) {
				return false
			}
		}
		return true
	})
}

// Or matches when any child predicate matches.
func Or(preds ...Predicate) Predicate {
	return predicateFunc(func(r model.Record) bool {
		for _, p := range preds {
			if p.Match(r) {
				return true
			}
		}
		return false
	})
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return predicateFunc(func(r model.Record) bool {
		return !p.Match(r)
	})
}

// Apply returns a new RecordSet holding the matching records in their
// original relative order. The source set is never mutated.
func Apply(rs *model.RecordSet, p Predicate) *model.RecordSet {
	out := model.NewRecordSet(rs.Columns)
	for _, rec := range rs.Records {
		if p.Match(rec) {
			out.Append(rec)
		}
	}
	return out
}
