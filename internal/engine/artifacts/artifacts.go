// Package artifacts loads the pre-fitted scaler and classifier from the
// model store directory.
package artifacts

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/cardio/internal/engine/classifier"
	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/engine/scaler"
)

// Backends supported by Load.
const (
	BackendLinear = "linear"
	BackendONNX   = "onnx"
)

// File names inside the model directory.
const (
	ScalerFile  = "scaler.json"
	LinearFile  = "model.json"
	ONNXFile    = "model.onnx"
	ONNXLibrary = "libonnxruntime.so"
)

// Model is a fitted classifier loaded from disk.
type Model interface {
	Predict(x *mat.Dense) ([]int, error)
	Width() int
	Close() error
}

// Options controls how artifacts are loaded.
type Options struct {
	Backend     string // BackendLinear (default) or BackendONNX
	ONNXLibrary string // defaults to libonnxruntime.so next to the model
}

// Artifacts is the process-wide, read-only handle to the fitted scaler and
// classifier.
type Artifacts struct {
	Scaler     *scaler.Standard
	Classifier Model
	Backend    string
}

// Paths returns the scaler and classifier paths for the given backend.
func Paths(dir, backend string) (scalerPath, modelPath string) {
	scalerPath = filepath.Join(dir, ScalerFile)
	if backend == BackendONNX {
		return scalerPath, filepath.Join(dir, ONNXFile)
	}
	return scalerPath, filepath.Join(dir, LinearFile)
}

// Load reads the artifacts from dir and checks them against schema: widths
// must agree, and feature names recorded in the scaler must equal the schema
// columns in order.
func Load(dir string, schema *features.Schema, opts Options) (*Artifacts, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendLinear
	}
	scalerPath, modelPath := Paths(dir, backend)

	sc, err := scaler.Load(scalerPath)
	if err != nil {
		return nil, fmt.Errorf("artifacts: %w", err)
	}
	if err := checkScaler(sc, schema); err != nil {
		return nil, err
	}

	var m Model
	switch backend {
	case BackendLinear:
		m, err = classifier.LoadLogistic(modelPath)
	case BackendONNX:
		lib := opts.ONNXLibrary
		if lib == "" {
			lib = filepath.Join(dir, ONNXLibrary)
		}
		m, err = classifier.LoadONNX(modelPath, lib)
	default:
		return nil, fmt.Errorf("artifacts: unknown backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("artifacts: %w", err)
	}

	if m.Width() != schema.Width() {
		m.Close()
		return nil, fmt.Errorf("artifacts: classifier expects %d columns, schema has %d", m.Width(), schema.Width())
	}

	slog.Info("model artifacts loaded",
		"dir", dir, "backend", backend, "columns", schema.Width())

	return &Artifacts{Scaler: sc, Classifier: m, Backend: backend}, nil
}

func checkScaler(sc *scaler.Standard, schema *features.Schema) error {
	if sc.Width() != schema.Width() {
		return fmt.Errorf("artifacts: scaler fitted on %d columns, schema has %d", sc.Width(), schema.Width())
	}
	names := sc.FeatureNames()
	if names == nil {
		return nil
	}
	if !schema.Equal(names) {
		return fmt.Errorf("artifacts: scaler feature names %v do not match schema %v", names, schema.Columns())
	}
	return nil
}

// Close releases classifier resources.
func (a *Artifacts) Close() error {
	return a.Classifier.Close()
}
