// Package pipeline scores records pulled from a source in micro-batches and
// writes the predictions to an output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/cardio/internal/engine"
	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/output"
	"github.com/crimson-sun/cardio/internal/source"
)

const (
	defaultBatchSize = 256
	defaultWindow    = 500 * time.Millisecond
)

// Processor scores records.
type Processor interface {
	Process(r model.Record) (model.Prediction, error)
	ProcessBatch(records []model.Record) ([]model.Prediction, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many records are scored per engine call. Default: 256.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithWindow sets how long a partial batch waits before it is scored.
// Default: 500ms.
func WithWindow(d time.Duration) Option {
	return func(p *Pipeline) { p.window = d }
}

// Stats counts what a pipeline has done so far.
type Stats struct {
	Scored   int64
	Positive int64
	Skipped  int64
}

// Pipeline connects a source, an engine and an output.
type Pipeline struct {
	source    source.Source
	engine    Processor
	output    output.Output
	batchSize int
	window    time.Duration

	scored   atomic.Int64
	positive atomic.Int64
	skipped  atomic.Int64
}

// New creates a Pipeline from the given components.
func New(src source.Source, eng Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    src,
		engine:    eng,
		output:    out,
		batchSize: defaultBatchSize,
		window:    defaultWindow,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream scores records as the source produces them. Records are grouped
// until the batch is full or the window elapses. Returns nil when the
// source is exhausted, ctx.Err() on cancellation (after flushing what was
// buffered), or the first engine or output error.
func (p *Pipeline) Stream(ctx context.Context, cfg source.Config) error {
	ch, err := p.source.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	buf := newBatcher(p.window, p.batchSize)
	for {
		select {
		case <-ctx.Done():
			if err := p.flush(context.Background(), buf.take()); err != nil {
				return err
			}
			return ctx.Err()
		case r, ok := <-ch:
			if !ok {
				return p.flush(ctx, buf.take())
			}
			if buf.add(r) {
				if err := p.flush(ctx, buf.take()); err != nil {
					return err
				}
			}
		case <-buf.flushCh():
			if err := p.flush(ctx, buf.take()); err != nil {
				return err
			}
		}
	}
}

// Query scores one window of records from the source.
func (p *Pipeline) Query(ctx context.Context, cfg source.Config, params source.QueryParams) error {
	records, err := p.source.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}
	for start := 0; start < len(records); start += p.batchSize {
		end := min(start+p.batchSize, len(records))
		if err := p.flush(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the running counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Scored:   p.scored.Load(),
		Positive: p.positive.Load(),
		Skipped:  p.skipped.Load(),
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

// flush scores a batch and writes the predictions. Engine errors mean the
// loaded artifacts are broken and stop the pipeline. Any other batch failure
// is retried one record at a time so a single bad record only costs itself.
func (p *Pipeline) flush(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	preds, err := p.engine.ProcessBatch(records)
	if err != nil {
		if isFatal(err) {
			return fmt.Errorf("pipeline score: %w", err)
		}
		slog.Warn("batch scoring failed, retrying records individually",
			"records", len(records), "error", err)
		preds = nil
		for i, r := range records {
			pred, err := p.engine.Process(r)
			if err != nil {
				if isFatal(err) {
					return fmt.Errorf("pipeline score: %w", err)
				}
				p.skipped.Add(1)
				slog.Warn("skipping record", "index", i, "error", err)
				continue
			}
			preds = append(preds, pred)
		}
	}

	for _, pred := range preds {
		p.scored.Add(1)
		if pred.HeartDisease == 1 {
			p.positive.Add(1)
		}
		if err := p.output.Write(ctx, pred); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
	}
	return nil
}

func isFatal(err error) bool {
	return errors.Is(err, engine.ErrShapeMismatch) ||
		errors.Is(err, engine.ErrScoring) ||
		errors.Is(err, engine.ErrInvalidLabel)
}
