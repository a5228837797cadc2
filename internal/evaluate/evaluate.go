package evaluate

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// Defaults match the split the deployed model was trained with.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
)

// Scorer labels pre-built feature rows.
type Scorer interface {
	ScoreMatrix(x *mat.Dense) ([]int, error)
}

// Options controls the held-out split.
type Options struct {
	TestSize float64
	Seed     uint64
}

// DefaultOptions returns the standard 80/20 split.
func DefaultOptions() Options {
	return Options{TestSize: DefaultTestSize, Seed: DefaultSeed}
}

// Run splits ds, scores the test rows with s and reports the results.
func Run(s Scorer, ds *Dataset, opts Options) (Report, error) {
	train, test, err := StratifiedSplit(ds.Labels, opts.TestSize, opts.Seed)
	if err != nil {
		return Report{}, err
	}

	pred, err := s.ScoreMatrix(ds.Matrix(test))
	if err != nil {
		return Report{}, fmt.Errorf("evaluate: score: %w", err)
	}
	rep, err := Score(ds.LabelsAt(test), pred)
	if err != nil {
		return Report{}, err
	}
	rep.Train = len(train)

	slog.Info("evaluation complete",
		"rows", ds.Len(),
		"test", rep.Test,
		"encoded_input", ds.Encoded,
		"accuracy", rep.Accuracy,
	)
	return rep, nil
}
