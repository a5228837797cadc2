// Package evaluate measures a fitted engine against a labeled CSV sample.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/model"
)

// TargetColumn holds the 0/1 label in evaluation CSVs.
const TargetColumn = "target"

// ErrDataset is returned for CSV input that cannot be turned into labeled
// feature rows.
var ErrDataset = errors.New("evaluate: invalid dataset")

type setter func(r *model.Record, v float64) error

func setFloat(dst func(*model.Record) *float64) setter {
	return func(r *model.Record, v float64) error {
		*dst(r) = v
		return nil
	}
}

func setInt(dst func(*model.Record) *int) setter {
	return func(r *model.Record, v float64) error {
		if v != math.Trunc(v) {
			return fmt.Errorf("want an integer code, got %v", v)
		}
		*dst(r) = int(v)
		return nil
	}
}

// rawFields maps each raw CSV column to the record field it fills.
var rawFields = map[string]setter{
	"age":      setFloat(func(r *model.Record) *float64 { return &r.Age }),
	"sex":      setInt(func(r *model.Record) *int { return &r.Sex }),
	"cp":       setInt(func(r *model.Record) *int { return &r.CP }),
	"trestbps": setFloat(func(r *model.Record) *float64 { return &r.Trestbps }),
	"chol":     setFloat(func(r *model.Record) *float64 { return &r.Chol }),
	"fbs":      setInt(func(r *model.Record) *int { return &r.FBS }),
	"restecg":  setInt(func(r *model.Record) *int { return &r.RestECG }),
	"thalach":  setFloat(func(r *model.Record) *float64 { return &r.Thalach }),
	"exang":    setInt(func(r *model.Record) *int { return &r.Exang }),
	"oldpeak":  setFloat(func(r *model.Record) *float64 { return &r.Oldpeak }),
	"slope":    setInt(func(r *model.Record) *int { return &r.Slope }),
	"ca":       setInt(func(r *model.Record) *int { return &r.CA }),
	"thal":     setInt(func(r *model.Record) *int { return &r.Thal }),
}

// Dataset is a labeled set of feature rows in schema order.
type Dataset struct {
	Schema *features.Schema
	Rows   [][]float64
	Labels []int
	// Encoded reports whether the CSV already carried the dummy columns.
	Encoded bool
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Matrix stacks the rows at idx into a dense matrix. A nil idx selects all rows.
func (d *Dataset) Matrix(idx []int) *mat.Dense {
	if idx == nil {
		idx = make([]int, len(d.Rows))
		for i := range idx {
			idx[i] = i
		}
	}
	width := d.Schema.Width()
	data := make([]float64, 0, len(idx)*width)
	for _, i := range idx {
		data = append(data, d.Rows[i]...)
	}
	return mat.NewDense(len(idx), width, data)
}

// LabelsAt returns the labels at idx.
func (d *Dataset) LabelsAt(idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = d.Labels[j]
	}
	return out
}

// LoadFile opens path and reads it with ReadCSV.
func LoadFile(path string, schema *features.Schema) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, schema)
}

// ReadCSV parses a header row plus data rows. Header names are matched
// case-insensitively. When the header names every schema column the values
// are taken as already encoded; otherwise every raw record field must be
// present and each row goes through the feature builder. Columns that are
// neither are ignored.
func ReadCSV(r io.Reader, schema *features.Schema) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrDataset)
		}
		return nil, fmt.Errorf("%w: header: %w", ErrDataset, err)
	}
	fold := cases.Fold()
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[fold.String(strings.TrimSpace(h))] = i
	}

	target, ok := pos[TargetColumn]
	if !ok {
		return nil, fmt.Errorf("%w: no %q column", ErrDataset, TargetColumn)
	}

	ds := &Dataset{Schema: schema, Encoded: true}
	for _, col := range schema.Columns() {
		if _, ok := pos[col]; !ok {
			ds.Encoded = false
			break
		}
	}
	if !ds.Encoded {
		var missing []string
		for name := range rawFields {
			if _, ok := pos[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return nil, fmt.Errorf("%w: header has neither every schema column nor every record field (missing %s)",
				ErrDataset, strings.Join(missing, ", "))
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDataset, err)
		}

		label, err := parseLabel(rec[target])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDataset, line, err)
		}

		var row []float64
		if ds.Encoded {
			row, err = encodedRow(rec, pos, schema)
		} else {
			row, err = rawRow(rec, pos, schema)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDataset, line, err)
		}
		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrDataset)
	}
	return ds, nil
}

func parseLabel(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", TargetColumn, err)
	}
	switch v {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}
	return 0, fmt.Errorf("%s must be 0 or 1, got %v", TargetColumn, v)
}

func encodedRow(rec []string, pos map[string]int, schema *features.Schema) ([]float64, error) {
	cols := schema.Columns()
	row := make([]float64, len(cols))
	for i, col := range cols {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[pos[col]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", col, err)
		}
		row[i] = v
	}
	return row, nil
}

func rawRow(rec []string, pos map[string]int, schema *features.Schema) ([]float64, error) {
	var r model.Record
	for name, set := range rawFields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[pos[name]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := set(&r, v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return schema.Build(r).Values, nil
}
