package multi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/cardio/internal/model"
)

// mockOutput records calls for test assertions.
type mockOutput struct {
	preds  []model.Prediction
	closed bool
	err    error // if set, Write and Close return this error
}

func (m *mockOutput) Write(_ context.Context, p model.Prediction) error {
	m.preds = append(m.preds, p)
	return m.err
}

func (m *mockOutput) Close() error {
	m.closed = true
	return m.err
}

func testPrediction(id string, label int) model.Prediction {
	return model.Prediction{
		ID:           id,
		Timestamp:    time.Now(),
		HeartDisease: label,
	}
}

func TestAllRoutesReceiveEveryLabel(t *testing.T) {
	a := &mockOutput{}
	b := &mockOutput{}
	m := New(All(a), All(b))

	for i, label := range []int{0, 1, 0} {
		require.NoError(t, m.Write(context.Background(), testPrediction(string(rune('a'+i)), label)))
	}
	assert.Len(t, a.preds, 3)
	assert.Len(t, b.preds, 3)
}

func TestPositiveRouteFiltersNegatives(t *testing.T) {
	everything := &mockOutput{}
	alerts := &mockOutput{}
	m := New(All(everything), Positive(alerts))

	for _, p := range []model.Prediction{
		testPrediction("p-1", 0),
		testPrediction("p-2", 1),
		testPrediction("p-3", 0),
		testPrediction("p-4", 1),
	} {
		require.NoError(t, m.Write(context.Background(), p))
	}

	assert.Len(t, everything.preds, 4)
	require.Len(t, alerts.preds, 2)
	assert.Equal(t, "p-2", alerts.preds[0].ID)
	assert.Equal(t, "p-4", alerts.preds[1].ID)
}

func TestExplicitLabels(t *testing.T) {
	negatives := &mockOutput{}
	m := New(Route{Output: negatives, Labels: []int{0}})

	require.NoError(t, m.Write(context.Background(), testPrediction("p-1", 1)))
	require.NoError(t, m.Write(context.Background(), testPrediction("p-2", 0)))

	require.Len(t, negatives.preds, 1)
	assert.Equal(t, "p-2", negatives.preds[0].ID)
}

func TestErrorDoesNotPreventDelivery(t *testing.T) {
	failing := &mockOutput{err: errors.New("disk full")}
	healthy := &mockOutput{}
	m := New(All(failing), All(healthy))

	err := m.Write(context.Background(), testPrediction("req-2", 0))
	assert.ErrorIs(t, err, failing.err)
	assert.Len(t, healthy.preds, 1, "healthy output still receives the prediction")
	assert.Len(t, failing.preds, 1, "failing output was still called")
}

func TestSkippedRouteErrorNotReported(t *testing.T) {
	failing := &mockOutput{err: errors.New("webhook down")}
	m := New(Positive(failing))

	assert.NoError(t, m.Write(context.Background(), testPrediction("req-3", 0)))
	assert.Empty(t, failing.preds, "negative prediction reached the positive route")
}

func TestCloseCollectsErrors(t *testing.T) {
	a := &mockOutput{err: errors.New("err-a")}
	b := &mockOutput{}
	c := &mockOutput{err: errors.New("err-c")}
	m := New(All(a), Positive(b), All(c))

	err := m.Close()
	assert.ErrorIs(t, err, a.err)
	assert.ErrorIs(t, err, c.err)
	assert.True(t, a.closed && b.closed && c.closed, "Close should reach every route, filtered or not")
}
