package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithShedNegatives drops heart_disease=0 predictions when the buffer is
// full instead of blocking the caller. Positive predictions are never shed;
// they wait for space like every write does by default.
func WithShedNegatives() Option {
	return func(a *Async) { a.shedNegatives = true }
}

// Async decouples request handling from audit writes via a buffered channel.
// Handlers write into the channel; a background goroutine drains it to the
// wrapped output. Errors from the inner output go to errFunc rather than
// back to the caller.
type Async struct {
	inner         output.Output
	ch            chan model.Prediction
	done          chan struct{}
	errFunc       func(error)
	bufSize       int
	shedNegatives bool
	dropped       atomic.Int64
	closeOnce     sync.Once
}

// New wraps an output.Output in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		errFunc: func(err error) { slog.Warn("audit output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Prediction, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write sends the prediction into the channel, blocking while the channel
// is full until ctx is done. With WithShedNegatives a negative prediction
// that finds the channel full is dropped and Write returns nil.
func (a *Async) Write(ctx context.Context, p model.Prediction) error {
	if a.shedNegatives && p.HeartDisease == 0 {
		select {
		case a.ch <- p:
		default:
			a.dropped.Add(1)
			slog.Debug("audit output buffer full, dropping negative prediction", "id", p.ID)
		}
		return nil
	}
	select {
	case a.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped reports how many negative predictions were shed.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if n := a.dropped.Load(); n > 0 {
			slog.Warn("audit output shed negative predictions", "dropped", n)
		}
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			slog.Warn("audit output drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

func (a *Async) drain() {
	defer close(a.done)
	for p := range a.ch {
		if err := a.inner.Write(context.Background(), p); err != nil {
			a.errFunc(err)
		}
	}
}
