package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/cardio/internal/engine/artifacts"
	"github.com/crimson-sun/cardio/internal/engine/features"
	"github.com/crimson-sun/cardio/internal/engine/testdata"
	"github.com/crimson-sun/cardio/internal/model"
)

// stubScaler records calls and returns its input unchanged.
type stubScaler struct {
	width int
	calls atomic.Int64
	err   error
}

func (s *stubScaler) Width() int { return s.width }

func (s *stubScaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return mat.DenseCopyOf(x), nil
}

// stubClassifier labels a row 1 when the given column is non-zero.
type stubClassifier struct {
	column int
	labels []int // overrides the rule when set
	err    error
}

func (c *stubClassifier) Predict(x *mat.Dense) ([]int, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.labels != nil {
		return c.labels, nil
	}
	rows, _ := x.Dims()
	out := make([]int, rows)
	for i := range out {
		if x.At(i, c.column) != 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func newStubEngine(t *testing.T, cls *stubClassifier) (*Engine, *stubScaler) {
	t.Helper()
	schema := features.DefaultSchema()
	sc := &stubScaler{width: schema.Width()}
	eng, err := New(schema, sc, cls)
	require.NoError(t, err)
	return eng, sc
}

func thal7Column(t *testing.T) int {
	t.Helper()
	i, ok := features.DefaultSchema().Index("thal_7")
	require.True(t, ok, "thal_7 not in default schema")
	return i
}

func TestProcessWithStubs(t *testing.T) {
	eng, sc := newStubEngine(t, &stubClassifier{column: thal7Column(t)})

	r := testdata.Sample // thal 6
	pred, err := eng.Process(r)
	require.NoError(t, err)
	assert.Equal(t, 0, pred.HeartDisease)
	assert.NotEmpty(t, pred.ID)
	assert.False(t, pred.Timestamp.IsZero())
	assert.Len(t, pred.Active, 3)

	r.Thal = 7
	pred, err = eng.Process(r)
	require.NoError(t, err)
	assert.Equal(t, 1, pred.HeartDisease)
	assert.Equal(t, int64(2), sc.calls.Load(), "scaler calls")
}

func TestScoreDeterministic(t *testing.T) {
	eng, _ := newStubEngine(t, &stubClassifier{column: thal7Column(t)})
	vec := eng.Schema().Build(testdata.Sample)

	first, err := eng.Score(vec)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		got, err := eng.Score(vec)
		require.NoError(t, err)
		require.Equal(t, first, got, "run %d", i)
	}
}

func TestNewWidthMismatch(t *testing.T) {
	_, err := New(features.DefaultSchema(), &stubScaler{width: 17}, &stubClassifier{})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScoreVectorWidthMismatch(t *testing.T) {
	eng, _ := newStubEngine(t, &stubClassifier{})

	narrow, err := features.NewSchema([]string{"age", "sex"})
	require.NoError(t, err)
	_, err = eng.Score(narrow.Build(testdata.Sample))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = eng.ScoreMatrix(mat.NewDense(1, 5, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScoreArtifactFailure(t *testing.T) {
	boom := errors.New("boom")

	eng, sc := newStubEngine(t, &stubClassifier{})
	sc.err = boom
	_, err := eng.Process(testdata.Sample)
	assert.ErrorIs(t, err, ErrScoring, "scaler failure")
	assert.ErrorIs(t, err, boom)

	eng, _ = newStubEngine(t, &stubClassifier{err: boom})
	_, err = eng.Process(testdata.Sample)
	assert.ErrorIs(t, err, ErrScoring, "classifier failure")
	assert.ErrorIs(t, err, boom)
}

func TestScoreInvalidLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
	}{
		{"out of range", []int{2}},
		{"negative", []int{-1}},
		{"too many", []int{0, 1}},
		{"none", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := newStubEngine(t, &stubClassifier{labels: tt.labels})
			_, err := eng.Process(testdata.Sample)
			assert.ErrorIs(t, err, ErrInvalidLabel)
		})
	}
}

func TestScoreBatchEmpty(t *testing.T) {
	eng, sc := newStubEngine(t, &stubClassifier{})
	labels, err := eng.ScoreBatch(nil)
	require.NoError(t, err)
	assert.Nil(t, labels)
	assert.Zero(t, sc.calls.Load(), "scaler called for empty batch")
}

func newFittedEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, testdata.WriteArtifacts(dir))

	schema := features.DefaultSchema()
	a, err := artifacts.Load(dir, schema, artifacts.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	eng, err := New(schema, a.Scaler, a.Classifier)
	require.NoError(t, err)
	return eng
}

func TestProcessFittedArtifacts(t *testing.T) {
	eng := newFittedEngine(t)

	tests := []struct {
		name   string
		record model.Record
		want   int
	}{
		{"sample", testdata.Sample, 0},
		{"positive", testdata.Positive, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := eng.Process(tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred.HeartDisease)
		})
	}
}

func TestProcessBatchMatchesProcess(t *testing.T) {
	eng := newFittedEngine(t)
	records := []model.Record{testdata.Sample, testdata.Positive, testdata.Sample}

	preds, err := eng.ProcessBatch(records)
	require.NoError(t, err)
	require.Len(t, preds, len(records))
	for i, r := range records {
		single, err := eng.Process(r)
		require.NoError(t, err)
		assert.Equal(t, single.HeartDisease, preds[i].HeartDisease, "record %d", i)
		assert.Equal(t, r.Age, preds[i].Record.Age, "record %d points at wrong record", i)
	}
}

func TestProcessConcurrent(t *testing.T) {
	eng := newFittedEngine(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, want := testdata.Sample, 0
			if i%2 == 1 {
				r, want = testdata.Positive, 1
			}
			pred, err := eng.Process(r)
			if err != nil {
				errs <- err
				return
			}
			if pred.HeartDisease != want {
				errs <- errors.New("unexpected label under concurrency")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
