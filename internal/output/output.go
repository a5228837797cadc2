package output

import (
	"context"

	"github.com/crimson-sun/cardio/internal/model"
)

// Output defines the interface for prediction audit destinations.
type Output interface {
	Write(ctx context.Context, p model.Prediction) error
	Close() error
}
