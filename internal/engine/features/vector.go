package features

import (
	"github.com/crimson-sun/cardio/internal/engine/encoding"
	"github.com/crimson-sun/cardio/internal/model"
)

// Vector is one feature row aligned to a Schema. Dummy flags are 1 (active)
// or 0 (inactive).
type Vector struct {
	schema *Schema
	Values []float64
}

// Build assembles the feature row for a record: numeric fields pass through,
// each categorical field activates at most one dummy column, every other
// schema column stays 0. Assembled columns absent from the schema are
// dropped.
func (s *Schema) Build(r model.Record) Vector {
	values := make([]float64, len(s.columns))
	for _, p := range s.numeric {
		values[p.index] = p.get(&r)
	}
	for _, c := range categories(&r) {
		if c.Reference() {
			continue
		}
		if i, ok := s.index[c.Column()]; ok {
			values[i] = 1
		}
	}
	return Vector{schema: s, Values: values}
}

func categories(r *model.Record) []encoding.Category {
	return []encoding.Category{
		encoding.Encode(encoding.ChestPain, r.CP),
		encoding.Encode(encoding.RestECG, r.RestECG),
		encoding.Encode(encoding.Slope, r.Slope),
		encoding.Encode(encoding.Thal, r.Thal),
	}
}

// Schema returns the schema the vector is aligned to.
func (v Vector) Schema() *Schema {
	return v.schema
}

// Len returns the vector width.
func (v Vector) Len() int {
	return len(v.Values)
}

// Get returns the value of a named column.
func (v Vector) Get(name string) (float64, bool) {
	i, ok := v.schema.Index(name)
	if !ok {
		return 0, false
	}
	return v.Values[i], true
}

// Active returns the dummy columns set in this vector, in schema order.
func (v Vector) Active() []string {
	var active []string
	for i, col := range v.schema.columns {
		if _, isNumeric := numeric[col]; isNumeric {
			continue
		}
		if v.Values[i] != 0 {
			active = append(active, col)
		}
	}
	return active
}
