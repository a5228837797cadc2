// Package encoding maps raw categorical codes onto the one-hot dummy columns
// the model was trained with. Each field has a fixed reference category that
// activates no dummy column.
package encoding

import "fmt"

// Field identifies a categorical input field.
type Field int

const (
	ChestPain Field = iota
	RestECG
	Slope
	Thal
	numFields
)

type level struct {
	code   int
	column string
}

type fieldDef struct {
	name      string
	reference int
	levels    []level // non-reference codes, in training column order
}

var defs = [numFields]fieldDef{
	ChestPain: {
		name:      "cp",
		reference: 1,
		levels:    []level{{2, "cp_2"}, {3, "cp_3"}, {4, "cp_4"}},
	},
	RestECG: {
		name:      "restecg",
		reference: 0,
		levels:    []level{{1, "restecg_1"}, {2, "restecg_2"}},
	},
	Slope: {
		name:      "slope",
		reference: 1,
		levels:    []level{{2, "slope_2"}, {3, "slope_3"}},
	},
	Thal: {
		name:      "thal",
		reference: 3,
		levels:    []level{{6, "thal_6"}, {7, "thal_7"}},
	},
}

func (f Field) def() *fieldDef {
	if f < 0 || f >= numFields {
		panic(fmt.Sprintf("encoding: unknown field %d", int(f)))
	}
	return &defs[f]
}

// String returns the dataset name of the field ("cp", "thal", ...).
func (f Field) String() string {
	return f.def().name
}

// Reference returns the code absorbed into the model baseline.
func (f Field) Reference() int {
	return f.def().reference
}

// Columns returns the field's dummy columns in training order.
func (f Field) Columns() []string {
	d := f.def()
	cols := make([]string, len(d.levels))
	for i, l := range d.levels {
		cols[i] = l.column
	}
	return cols
}

// Category is the result of encoding one code: either the reference
// category (no dummy active) or exactly one active dummy column.
type Category struct {
	Field  Field
	Code   int
	column string
}

// Reference reports whether no dummy column is active. Codes outside the
// trained domain land here too.
func (c Category) Reference() bool {
	return c.column == ""
}

// Column returns the active dummy column, or "" for the reference category.
func (c Category) Column() string {
	return c.column
}

// Encode maps a raw code to its category. It panics on an unknown field.
func Encode(f Field, code int) Category {
	d := f.def()
	for _, l := range d.levels {
		if l.code == code {
			return Category{Field: f, Code: code, column: l.column}
		}
	}
	return Category{Field: f, Code: code}
}

// Dummy returns the dummy column activated by code, if any.
func Dummy(f Field, code int) (string, bool) {
	c := Encode(f, code)
	return c.column, !c.Reference()
}

// Fields returns every categorical field in training order.
func Fields() []Field {
	return []Field{ChestPain, RestECG, Slope, Thal}
}

// Columns returns every dummy column across all fields, in training order.
func Columns() []string {
	var cols []string
	for _, f := range Fields() {
		cols = append(cols, f.Columns()...)
	}
	return cols
}

// Lookup returns the field with the given dataset name.
func Lookup(name string) (Field, bool) {
	for _, f := range Fields() {
		if defs[f].name == name {
			return f, true
		}
	}
	return 0, false
}
