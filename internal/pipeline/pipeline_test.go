package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/cardio/internal/engine"
	"github.com/crimson-sun/cardio/internal/model"
	"github.com/crimson-sun/cardio/internal/source"
)

// --- mocks ---

// mockProcessor labels records with Age >= 50 as 1. A record whose Age
// equals failOn makes Process and ProcessBatch fail, wrapping err when set.
type mockProcessor struct {
	failOn float64
	err    error

	mu      sync.Mutex
	batches []int
}

func (m *mockProcessor) Process(r model.Record) (model.Prediction, error) {
	if m.failOn != 0 && r.Age == m.failOn {
		if m.err != nil {
			return model.Prediction{}, fmt.Errorf("mock: age %v: %w", r.Age, m.err)
		}
		return model.Prediction{}, fmt.Errorf("mock: cannot score age %v", r.Age)
	}
	label := 0
	if r.Age >= 50 {
		label = 1
	}
	rec := r
	return model.Prediction{ID: fmt.Sprint(r.Age), HeartDisease: label, Record: &rec}, nil
}

func (m *mockProcessor) ProcessBatch(records []model.Record) ([]model.Prediction, error) {
	m.mu.Lock()
	m.batches = append(m.batches, len(records))
	m.mu.Unlock()

	preds := make([]model.Prediction, 0, len(records))
	for _, r := range records {
		p, err := m.Process(r)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func (m *mockProcessor) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

// mockSource sends pre-loaded records, optionally holding the channel open.
type mockSource struct {
	records  []model.Record
	holdOpen bool
}

func (m *mockSource) Stream(ctx context.Context, _ source.Config) (<-chan model.Record, error) {
	ch := make(chan model.Record, len(m.records))
	for _, r := range m.records {
		ch <- r
	}
	if !m.holdOpen {
		close(ch)
	}
	return ch, nil
}

func (m *mockSource) Query(_ context.Context, _ source.Config, params source.QueryParams) ([]model.Record, error) {
	rs := m.records[min(params.Offset, len(m.records)):]
	if params.Limit > 0 && params.Limit < len(rs) {
		rs = rs[:params.Limit]
	}
	return rs, nil
}

type failingSource struct{}

func (failingSource) Stream(context.Context, source.Config) (<-chan model.Record, error) {
	return nil, errors.New("source offline")
}

func (failingSource) Query(context.Context, source.Config, source.QueryParams) ([]model.Record, error) {
	return nil, errors.New("source offline")
}

type mockOutput struct {
	mu     sync.Mutex
	preds  []model.Prediction
	err    error
	closed bool
}

func (m *mockOutput) Write(_ context.Context, p model.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.preds = append(m.preds, p)
	return nil
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) Predictions() []model.Prediction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Prediction(nil), m.preds...)
}

func records(ages ...float64) []model.Record {
	rs := make([]model.Record, len(ages))
	for i, a := range ages {
		rs[i] = model.Record{Age: a, CP: 1, Slope: 1, Thal: 3}
	}
	return rs
}

// --- batcher tests ---

func TestBatcherFullBatch(t *testing.T) {
	b := newBatcher(time.Hour, 3)
	require.False(t, b.add(model.Record{}), "batch reported full too early")
	require.False(t, b.add(model.Record{}), "batch reported full too early")
	require.True(t, b.add(model.Record{}), "batch of 3 should be full")

	assert.Len(t, b.take(), 3)
	assert.Nil(t, b.flushCh(), "timer should be cleared after take")
}

func TestBatcherWindow(t *testing.T) {
	b := newBatcher(50*time.Millisecond, 0)
	require.Nil(t, b.flushCh(), "no timer expected before the first record")
	b.add(model.Record{Age: 1})

	select {
	case <-b.flushCh():
	case <-time.After(time.Second):
		t.Fatal("window timer didn't fire")
	}
	got := b.take()
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Age)
}

// --- pipeline tests ---

func predictionIDs(preds []model.Prediction) []string {
	ids := make([]string, len(preds))
	for i, p := range preds {
		ids[i] = p.ID
	}
	return ids
}

func TestStreamScoresEverything(t *testing.T) {
	out := &mockOutput{}
	proc := &mockProcessor{}
	p := New(&mockSource{records: records(30, 55, 61, 42, 70)}, proc, out, WithBatchSize(2))

	require.NoError(t, p.Stream(context.Background(), source.Config{}))

	assert.Equal(t, []string{"30", "55", "61", "42", "70"}, predictionIDs(out.Predictions()),
		"order must be preserved")
	assert.Equal(t, []int{2, 2, 1}, proc.batchSizes())
	assert.Equal(t, Stats{Scored: 5, Positive: 3}, p.Stats())
}

func TestStreamWindowFlush(t *testing.T) {
	out := &mockOutput{}
	src := &mockSource{records: records(30, 40), holdOpen: true}
	p := New(src, &mockProcessor{}, out, WithBatchSize(100), WithWindow(30*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Stream(ctx, source.Config{}) }()

	require.Eventually(t, func() bool { return len(out.Predictions()) == 2 }, time.Second, 5*time.Millisecond,
		"window flush never happened")
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStreamCancelFlushesPending(t *testing.T) {
	out := &mockOutput{}
	src := &mockSource{records: records(30, 40, 50), holdOpen: true}
	p := New(src, &mockProcessor{}, out, WithBatchSize(100), WithWindow(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Stream(ctx, source.Config{}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, out.Predictions(), 3, "pending records flushed on cancel")
}

func TestStreamSkipsRejectedRecord(t *testing.T) {
	out := &mockOutput{}
	p := New(&mockSource{records: records(30, 66, 70)}, &mockProcessor{failOn: 66}, out)

	require.NoError(t, p.Stream(context.Background(), source.Config{}))
	assert.Equal(t, []string{"30", "70"}, predictionIDs(out.Predictions()))
	assert.Equal(t, Stats{Scored: 2, Positive: 1, Skipped: 1}, p.Stats())
}

func TestEngineErrorsStopThePipeline(t *testing.T) {
	for _, sentinel := range []error{engine.ErrShapeMismatch, engine.ErrScoring, engine.ErrInvalidLabel} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			out := &mockOutput{}
			proc := &mockProcessor{failOn: 66, err: sentinel}
			p := New(&mockSource{records: records(30, 66, 70)}, proc, out)

			assert.ErrorIs(t, p.Stream(context.Background(), source.Config{}), sentinel)
			assert.Empty(t, out.Predictions(), "nothing written once the engine fails")
			assert.Equal(t, Stats{}, p.Stats(), "nothing scored or skipped")

			err := p.Query(context.Background(), source.Config{}, source.QueryParams{})
			assert.ErrorIs(t, err, sentinel)
		})
	}
}

func TestStreamOutputError(t *testing.T) {
	out := &mockOutput{err: errors.New("disk full")}
	p := New(&mockSource{records: records(30)}, &mockProcessor{}, out)

	assert.ErrorIs(t, p.Stream(context.Background(), source.Config{}), out.err)
}

func TestStreamSourceError(t *testing.T) {
	p := New(failingSource{}, &mockProcessor{}, &mockOutput{})
	assert.Error(t, p.Stream(context.Background(), source.Config{}))
}

func TestQueryBatches(t *testing.T) {
	out := &mockOutput{}
	proc := &mockProcessor{}
	p := New(&mockSource{records: records(10, 20, 30, 40, 50, 60, 70)}, proc, out, WithBatchSize(3))

	err := p.Query(context.Background(), source.Config{}, source.QueryParams{Offset: 1, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, []string{"20", "30", "40", "50", "60"}, predictionIDs(out.Predictions()))
	assert.Equal(t, []int{3, 2}, proc.batchSizes())
}

func TestQuerySourceError(t *testing.T) {
	p := New(failingSource{}, &mockProcessor{}, &mockOutput{})
	assert.Error(t, p.Query(context.Background(), source.Config{}, source.QueryParams{}))
}

func TestCloseClosesOutput(t *testing.T) {
	out := &mockOutput{}
	p := New(&mockSource{}, &mockProcessor{}, out)
	require.NoError(t, p.Close())
	assert.True(t, out.closed)
}
