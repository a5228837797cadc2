package pipeline

import (
	"sync"
	"time"

	"github.com/crimson-sun/cardio/internal/model"
)

// batcher accumulates records and signals when a partial batch has waited
// a full window.
type batcher struct {
	window  time.Duration
	maxSize int

	mu      sync.Mutex
	pending []model.Record
	timer   *time.Timer
}

func newBatcher(window time.Duration, maxSize int) *batcher {
	return &batcher{window: window, maxSize: maxSize}
}

// add appends a record, starting the window timer on the first one.
// Returns true when the batch is full.
func (b *batcher) add(r model.Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, r)
	if len(b.pending) == 1 {
		b.timer = time.NewTimer(b.window)
	}
	return b.maxSize > 0 && len(b.pending) >= b.maxSize
}

// flushCh returns the timer's channel, or nil if no timer is active.
func (b *batcher) flushCh() <-chan time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

// take returns the pending records and resets the batcher.
func (b *batcher) take() []model.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return records
}
