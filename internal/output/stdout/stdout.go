package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/output"
)

// Output writes JSON-encoded predictions to stdout, one per line.
type Output struct {
	mu     sync.Mutex
	enc    *json.Encoder
	detail output.Detail
}

// New creates a stdout Output with detail-aware field omission and optional
// pretty-printed JSON.
func New(detail output.Detail, pretty bool) *Output {
	return NewWriter(os.Stdout, detail, pretty)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, detail output.Detail, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, detail: detail}
}

func (o *Output) Write(_ context.Context, p model.Prediction) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.FormatPrediction(p, o.detail)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
