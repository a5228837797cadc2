package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/model"
)

var (
	// ErrShapeMismatch means the feature vector, scaler and classifier
	// disagree on width. It is a configuration error, not a user error.
	ErrShapeMismatch = errors.New("engine: shape mismatch")

	// ErrScoring wraps any failure of the scaler or classifier. Like a shape
	// mismatch it points at the loaded artifacts.
	ErrScoring = errors.New("engine: scoring failed")

	// ErrInvalidLabel means the classifier produced something other than
	// one label in {0, 1} per row.
	ErrInvalidLabel = errors.New("engine: invalid classifier output")
)

// Scaler is a pre-fitted column transform.
type Scaler interface {
	Transform(x *mat.Dense) (*mat.Dense, error)
	Width() int
}

// Classifier is a pre-fitted binary classifier.
type Classifier interface {
	Predict(x *mat.Dense) ([]int, error)
}

// Engine orchestrates the build → scale → classify pipeline. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	schema     *features.Schema
	scaler     Scaler
	classifier Classifier
}

// New creates an Engine. The schema width must match the scaler's.
func New(schema *features.Schema, sc Scaler, cls Classifier) (*Engine, error) {
	if sc.Width() != schema.Width() {
		return nil, fmt.Errorf("%w: schema has %d columns, scaler expects %d",
			ErrShapeMismatch, schema.Width(), sc.Width())
	}
	return &Engine{schema: schema, scaler: sc, classifier: cls}, nil
}

// Schema returns the training-column schema the engine builds against.
func (e *Engine) Schema() *features.Schema {
	return e.schema
}

// Process builds the feature vector for a record and scores it.
func (e *Engine) Process(r model.Record) (model.Prediction, error) {
	vec := e.schema.Build(r)
	label, err := e.Score(vec)
	if err != nil {
		return model.Prediction{}, err
	}
	return model.Prediction{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		HeartDisease: label,
		Active:       vec.Active(),
		Record:       &r,
	}, nil
}

// Score scales a single vector as a one-row batch and classifies it.
func (e *Engine) Score(vec features.Vector) (int, error) {
	labels, err := e.ScoreBatch([]features.Vector{vec})
	if err != nil {
		return 0, err
	}
	return labels[0], nil
}

// ScoreBatch scores several vectors in one scaler/classifier call.
func (e *Engine) ScoreBatch(vecs []features.Vector) ([]int, error) {
	if len(vecs) == 0 {
		return nil, nil
	}
	width := e.schema.Width()
	data := make([]float64, 0, len(vecs)*width)
	for i, v := range vecs {
		if v.Len() != width {
			return nil, fmt.Errorf("%w: vector %d has %d columns, schema has %d",
				ErrShapeMismatch, i, v.Len(), width)
		}
		data = append(data, v.Values...)
	}
	return e.ScoreMatrix(mat.NewDense(len(vecs), width, data))
}

// ScoreMatrix scores pre-built feature rows laid out in schema order.
func (e *Engine) ScoreMatrix(x *mat.Dense) ([]int, error) {
	rows, cols := x.Dims()
	if cols != e.schema.Width() {
		return nil, fmt.Errorf("%w: matrix has %d columns, schema has %d",
			ErrShapeMismatch, cols, e.schema.Width())
	}

	scaled, err := e.scaler.Transform(x)
	if err != nil {
		return nil, fmt.Errorf("%w: scale: %w", ErrScoring, err)
	}
	labels, err := e.classifier.Predict(scaled)
	if err != nil {
		return nil, fmt.Errorf("%w: classify: %w", ErrScoring, err)
	}

	if len(labels) != rows {
		return nil, fmt.Errorf("%w: %d labels for %d rows", ErrInvalidLabel, len(labels), rows)
	}
	for i, l := range labels {
		if l != 0 && l != 1 {
			return nil, fmt.Errorf("%w: row %d label %d", ErrInvalidLabel, i, l)
		}
	}
	return labels, nil
}

// ProcessBatch scores a slice of records.
func (e *Engine) ProcessBatch(records []model.Record) ([]model.Prediction, error) {
	vecs := make([]features.Vector, len(records))
	for i, r := range records {
		vecs[i] = e.schema.Build(r)
	}
	labels, err := e.ScoreBatch(vecs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	preds := make([]model.Prediction, len(records))
	for i := range records {
		preds[i] = model.Prediction{
			ID:           uuid.NewString(),
			Timestamp:    now,
			HeartDisease: labels[i],
			Active:       vecs[i].Active(),
			Record:       &records[i],
		}
	}
	return preds, nil
}
