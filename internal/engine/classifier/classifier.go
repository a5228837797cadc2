// Package classifier holds the pre-fitted binary classifiers the engine can
// score with.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

// KindLogistic is the artifact kind of a logistic-regression export.
const KindLogistic = "logistic_regression"

// Logistic is a fitted logistic-regression classifier.
type Logistic struct {
	coef      *mat.VecDense
	intercept float64
	classes   [2]int
	threshold float64
}

type artifact struct {
	Kind      string    `json:"kind"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Classes   []int     `json:"classes"`
	Threshold *float64  `json:"threshold"`
}

// NewLogistic creates a classifier predicting classes[1] when
// sigmoid(x·coef + intercept) >= threshold, classes[0] otherwise.
func NewLogistic(coef []float64, intercept float64, classes [2]int, threshold float64) (*Logistic, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("classifier: empty coefficients")
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("classifier: threshold %v outside (0, 1)", threshold)
	}
	return &Logistic{
		coef:      mat.NewVecDense(len(coef), append([]float64(nil), coef...)),
		intercept: intercept,
		classes:   classes,
		threshold: threshold,
	}, nil
}

// LoadLogistic reads a JSON logistic-regression artifact from path.
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("classifier: parse %s: %w", path, err)
	}
	if a.Kind != "" && a.Kind != KindLogistic {
		return nil, fmt.Errorf("classifier: unsupported model kind %q", a.Kind)
	}

	classes := [2]int{0, 1}
	if a.Classes != nil {
		if len(a.Classes) != 2 {
			return nil, fmt.Errorf("classifier: expected 2 classes, got %v", a.Classes)
		}
		classes = [2]int{a.Classes[0], a.Classes[1]}
	}
	threshold := 0.5
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	return NewLogistic(a.Coef, a.Intercept, classes, threshold)
}

// Width returns the number of input columns.
func (l *Logistic) Width() int {
	return l.coef.Len()
}

// Predict returns one label per row of x.
func (l *Logistic) Predict(x *mat.Dense) ([]int, error) {
	rows, cols := x.Dims()
	if cols != l.coef.Len() {
		return nil, fmt.Errorf("classifier: input has %d columns, model expects %d", cols, l.coef.Len())
	}

	var z mat.VecDense
	z.MulVec(x, l.coef)

	labels := make([]int, rows)
	for i := range labels {
		if sigmoid(z.AtVec(i)+l.intercept) >= l.threshold {
			labels[i] = l.classes[1]
		} else {
			labels[i] = l.classes[0]
		}
	}
	return labels, nil
}

// Close is a no-op; Logistic holds no external resources.
func (l *Logistic) Close() error {
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
