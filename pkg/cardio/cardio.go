package cardio

import (
	"fmt"

	"github.com/crimson-sun/cardio/internal/engine"
	"github.com/crimson-sun/cardio/internal/engine/artifacts"
	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/model"
)

// Cardio is a loaded heart disease predictor. Safe for concurrent use.
type Cardio struct {
	engine    *engine.Engine
	artifacts *artifacts.Artifacts
}

// New loads the scaler and classifier and checks that both agree with the
// training column order.
func New(opts ...Option) (*Cardio, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	schema := features.DefaultSchema()
	arts, err := artifacts.Load(o.modelDir, schema, artifacts.Options{
		Backend:     o.backend,
		ONNXLibrary: o.onnxLibrary,
	})
	if err != nil {
		return nil, fmt.Errorf("cardio: %w", err)
	}

	eng, err := engine.New(schema, arts.Scaler, arts.Classifier)
	if err != nil {
		arts.Close()
		return nil, fmt.Errorf("cardio: %w", err)
	}
	return &Cardio{engine: eng, artifacts: arts}, nil
}

// Predict returns 1 when heart disease is predicted present, 0 otherwise.
func (c *Cardio) Predict(r Record) (int, error) {
	p, err := c.engine.Process(r.internal())
	if err != nil {
		return 0, err
	}
	return p.HeartDisease, nil
}

// PredictBatch scores records in one pass. Labels are in input order.
func (c *Cardio) PredictBatch(records []Record) ([]int, error) {
	rs := make([]model.Record, len(records))
	for i, r := range records {
		rs[i] = r.internal()
	}
	preds, err := c.engine.ProcessBatch(rs)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(preds))
	for i, p := range preds {
		labels[i] = p.HeartDisease
	}
	return labels, nil
}

// Encode returns the unscaled feature row for r in Columns order.
func (c *Cardio) Encode(r Record) []float64 {
	return c.engine.Schema().Build(r.internal()).Values
}

// Columns returns the training column order.
func (c *Cardio) Columns() []string {
	return c.engine.Schema().Columns()
}

// Close releases classifier resources (ONNX sessions).
func (c *Cardio) Close() error {
	return c.artifacts.Close()
}
