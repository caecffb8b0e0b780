package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	weights map[[2]string]float64
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{weights: make(map[[2]string]float64)}
}

func (f *fakeWriter) ChangeWeight(function, endpoint string, weight float64) error {
	f.weights[[2]string{function, endpoint}] = weight
	return nil
}

func (f *fakeWriter) Multiply(function, endpoint string, factor float64) error {
	f.weights[[2]string{function, endpoint}] *= factor
	return nil
}

// GIVEN an Async optimizer with alpha=0.5
// WHEN two observations arrive in quick succession
// THEN the second weight is the EWMA of the two samples, not the raw
// second sample.
func TestAsyncEWMA(t *testing.T) {
	w := newFakeWriter()
	a := NewAsync(w, 0.5)
	now := time.Unix(0, 0)
	a.now = func() time.Time { return now }

	a.Observe("f1", "d1", 10)
	require.Equal(t, 10.0, w.weights[[2]string{"f1", "d1"}])

	now = now.Add(time.Second)
	a.Observe("f1", "d1", 20)
	require.Equal(t, 15.0, w.weights[[2]string{"f1", "d1"}])
}

// WHEN the previous sample is older than the stale period
// THEN the new sample is written as-is, without blending.
func TestAsyncStaleness(t *testing.T) {
	w := newFakeWriter()
	a := NewAsync(w, 0.5)
	now := time.Unix(0, 0)
	a.now = func() time.Time { return now }

	a.Observe("f1", "d1", 10)
	now = now.Add(20 * time.Second)
	a.Observe("f1", "d1", 30)
	require.Equal(t, 30.0, w.weights[[2]string{"f1", "d1"}])
}

func TestAsyncPFWritesRawSample(t *testing.T) {
	w := newFakeWriter()
	p := NewAsyncPF(w)
	p.Observe("f1", "d1", 7.5)
	require.Equal(t, 7.5, w.weights[[2]string{"f1", "d1"}])
}

func TestFailMultipliesWeight(t *testing.T) {
	w := newFakeWriter()
	w.weights[[2]string{"f1", "d1"}] = 2
	a := NewAsync(w, 0.5)
	a.Fail("f1", "d1")
	require.Equal(t, 2*FailureFactor, w.weights[[2]string{"f1", "d1"}])
}
