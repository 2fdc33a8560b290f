package filter

import (
	"github.com/rotisserie/eris"
)

// Def is the declarative predicate form used in layer definition files.
// Exactly one of Field-op, All, Any, or Not may be set per node.
type Def struct {
	Field  string  `yaml:"field,omitempty"`
	Op     string  `yaml:"op,omitempty"` // eq, eq_fold, in, range, is_null, not_null
	Value  any     `yaml:"value,omitempty"`
	Values []any   `yaml:"values,omitempty"`
	Min    float64 `yaml:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty"`

	All []Def `yaml:"all,omitempty"`
	Any []Def `yaml:"any,omitempty"`
	Not *Def  `yaml:"not,omitempty"`
}

// Compile turns a declarative definition into an executable predicate.
func Compile(d Def) (Predicate, error) {
	switch {
	case len(d.All) > 0:
		preds, err := compileList(d.All)
		if err != nil {
			return nil, err
		}
		return And(preds...), nil

	case len(d.Any) > 0:
		preds, err := compileList(d.Any)
		if err != nil {
			return nil, err
		}
		return Or(preds...), nil

	case d.Not != nil:
		inner, err := Compile(*d.Not)
		if err != nil {
			return nil, err
		}
		return Not(inner), nil

	case d.Field != "":
		return compileLeaf(d)

	default:
		return nil, eris.New("filter: empty predicate definition")
	}
}

// compileList compiles child definitions.
func compileList(defs []Def) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(defs))
	for _, d := range defs {
		p, err := Compile(d)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// compileLeaf compiles a single field comparison.
func compileLeaf(d Def) (Predicate, error) {
	switch d.Op {
	case "eq", "":
		return Eq(d.Field, normalizeValue(d.Value)), nil
	case "eq_fold":
		s, ok := d.Value.(string)
		if !ok {
			return nil, eris.Errorf("filter: eq_fold on %q requires a string value", d.Field)
		}
		return EqFold(d.Field, s), nil
	case "in":
		values := make([]any, len(d.Values))
		for i, v := range d.Values {
			values[i] = normalizeValue(v)
		}
		return In(d.Field, values...), nil
	case "range":
		return Range(d.Field, d.Min, d.Max), nil
	case "is_null":
		return IsNull(d.Field), nil
	case "not_null":
		return NotNull(d.Field), nil
	default:
		return nil, eris.Errorf("filter: unknown op %q", d.Op)
	}
}

// normalizeValue aligns YAML scalar types with loader value types: YAML
// ints become float64 to match numeric cell coercion.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}
