// Package scaler implements the pre-fitted standardization applied to
// feature rows before classification.
package scaler

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Standard applies (x - mean) / scale column-wise, as fitted by a
// standard scaler on the training data. Immutable after load.
type Standard struct {
	names []string
	mean  []float64
	scale []float64
}

type artifact struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// New creates a Standard scaler. A zero scale is treated as 1 so constant
// training columns pass through centred.
func New(names []string, mean, scale []float64) (*Standard, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("scaler: empty mean")
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("scaler: mean has %d entries, scale has %d", len(mean), len(scale))
	}
	if names != nil && len(names) != len(mean) {
		return nil, fmt.Errorf("scaler: %d feature names for %d columns", len(names), len(mean))
	}
	s := &Standard{
		names: append([]string(nil), names...),
		mean:  append([]float64(nil), mean...),
		scale: make([]float64, len(scale)),
	}
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

// Load reads a JSON scaler artifact from path.
func Load(path string) (*Standard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("scaler: parse %s: %w", path, err)
	}
	return New(a.FeatureNames, a.Mean, a.Scale)
}

// Width returns the number of columns the scaler was fitted on.
func (s *Standard) Width() int {
	return len(s.mean)
}

// FeatureNames returns the column names recorded at fit time, or nil if the
// artifact carried none.
func (s *Standard) FeatureNames() []string {
	if len(s.names) == 0 {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Transform returns a standardized copy of x. x must have Width() columns.
func (s *Standard) Transform(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.mean) {
		return nil, fmt.Errorf("scaler: input has %d columns, fitted on %d", cols, len(s.mean))
	}
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, x)
	return out, nil
}
