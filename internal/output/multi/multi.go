package multi

import (
	"context"
	"errors"
	"slices"

	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/output"
)

// Route pairs an output with the labels it receives. A route with no
// labels receives every prediction.
type Route struct {
	Output output.Output
	Labels []int
}

// All routes every prediction to o.
func All(o output.Output) Route {
	return Route{Output: o}
}

// Positive routes only heart_disease=1 predictions to o.
func Positive(o output.Output) Route {
	return Route{Output: o, Labels: []int{1}}
}

func (r Route) accepts(label int) bool {
	return len(r.Labels) == 0 || slices.Contains(r.Labels, label)
}

// Multi delivers each prediction to every route that accepts its label.
// A failing output does not stop delivery to the rest.
type Multi struct {
	routes []Route
}

// New creates a Multi over the given routes.
func New(routes ...Route) *Multi {
	return &Multi{routes: routes}
}

// Write delivers the prediction and joins the errors.
func (m *Multi) Write(ctx context.Context, p model.Prediction) error {
	var errs []error
	for _, r := range m.routes {
		if !r.accepts(p.HeartDisease) {
			continue
		}
		if err := r.Output.Write(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every routed output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.routes {
		if err := r.Output.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
