// Package features assembles the ordered feature row consumed by the scaler
// and classifier.
package features

import (
	"errors"
	"fmt"

	"github.com/crimson-sun/cardio/internal/engine/encoding"
	"github.com/crimson-sun/cardio/internal/model"
)

// ErrSchema is returned when a training column list cannot be aligned with
// the record fields and dummy columns this package knows how to produce.
var ErrSchema = errors.New("features: invalid schema")

// numeric lists every record field available as a raw passthrough column.
var numeric = map[string]func(*model.Record) float64{
	"age":      func(r *model.Record) float64 { return r.Age },
	"sex":      func(r *model.Record) float64 { return float64(r.Sex) },
	"cp":       func(r *model.Record) float64 { return float64(r.CP) },
	"trestbps": func(r *model.Record) float64 { return r.Trestbps },
	"chol":     func(r *model.Record) float64 { return r.Chol },
	"fbs":      func(r *model.Record) float64 { return float64(r.FBS) },
	"restecg":  func(r *model.Record) float64 { return float64(r.RestECG) },
	"thalach":  func(r *model.Record) float64 { return r.Thalach },
	"exang":    func(r *model.Record) float64 { return float64(r.Exang) },
	"oldpeak":  func(r *model.Record) float64 { return r.Oldpeak },
	"slope":    func(r *model.Record) float64 { return float64(r.Slope) },
	"ca":       func(r *model.Record) float64 { return float64(r.CA) },
	"thal":     func(r *model.Record) float64 { return float64(r.Thal) },
}

// defaultColumns is the column order the deployed artifacts were fitted on.
var defaultColumns = []string{
	"age", "sex", "trestbps", "chol", "fbs", "thalach", "exang", "oldpeak", "ca",
	"cp_2", "cp_3", "cp_4",
	"restecg_1", "restecg_2",
	"slope_2", "slope_3",
	"thal_6", "thal_7",
}

type passthrough struct {
	index int
	get   func(*model.Record) float64
}

// Schema is an immutable, ordered training-column list. It is safe for
// concurrent use.
type Schema struct {
	columns []string
	index   map[string]int
	numeric []passthrough
}

// NewSchema validates columns and returns a Schema. Every column must be a
// record field or a known dummy column, and must appear once.
func NewSchema(columns []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrSchema)
	}

	dummies := make(map[string]bool)
	for _, c := range encoding.Columns() {
		dummies[c] = true
	}

	s := &Schema{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	var errs []error
	for i, col := range columns {
		if _, dup := s.index[col]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate column %q", ErrSchema, col))
			continue
		}
		s.index[col] = i
		if get, ok := numeric[col]; ok {
			s.numeric = append(s.numeric, passthrough{index: i, get: get})
			continue
		}
		if !dummies[col] {
			errs = append(errs, fmt.Errorf("%w: unknown column %q at position %d", ErrSchema, col, i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultSchema returns the 18-column schema of the deployed model.
func DefaultSchema() *Schema {
	s, err := NewSchema(defaultColumns)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the column names in order.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Width returns the number of columns.
func (s *Schema) Width() int {
	return len(s.columns)
}

// Index returns the position of a column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Equal reports whether columns matches the schema exactly, order included.
func (s *Schema) Equal(columns []string) bool {
	if len(columns) != len(s.columns) {
		return false
	}
	for i, c := range columns {
		if s.columns[i] != c {
			return false
		}
	}
	return true
}
