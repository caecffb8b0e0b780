package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// GIVEN a Trivial optimizer with the default (mean) statistic
// WHEN flush runs over several observations for one destination
// THEN the written weight is their mean, and the sample buffer is cleared.
func TestTrivialFlushWritesMean(t *testing.T) {
	w := newFakeWriter()
	tr := NewTrivial(w, 60)
	defer tr.Close()

	tr.Observe("f1", "d1", 10)
	tr.Observe("f1", "d1", 20)
	tr.Observe("f1", "d1", 30)
	tr.flush()

	require.Equal(t, 20.0, w.weights[[2]string{"f1", "d1"}])

	tr.flush()
	require.Equal(t, 20.0, w.weights[[2]string{"f1", "d1"}], "an empty flush leaves the previous weight untouched")
}

// GIVEN a Trivial optimizer configured with StatMin and StatMax
// WHEN flush runs over the same samples
// THEN each writes its own summary statistic.
func TestTrivialFlushHonorsStatistic(t *testing.T) {
	wMin := newFakeWriter()
	min := NewTrivialWithStatistic(wMin, 60, StatMin)
	defer min.Close()
	min.Observe("f1", "d1", 10)
	min.Observe("f1", "d1", 5)
	min.Observe("f1", "d1", 30)
	min.flush()
	require.Equal(t, 5.0, wMin.weights[[2]string{"f1", "d1"}])

	wMax := newFakeWriter()
	max := NewTrivialWithStatistic(wMax, 60, StatMax)
	defer max.Close()
	max.Observe("f1", "d1", 10)
	max.Observe("f1", "d1", 5)
	max.Observe("f1", "d1", 30)
	max.flush()
	require.Equal(t, 30.0, wMax.weights[[2]string{"f1", "d1"}])
}

// WHEN multiple destinations are observed in the same period
// THEN flush writes each destination's own weight independently.
func TestTrivialFlushIsPerDestination(t *testing.T) {
	w := newFakeWriter()
	tr := NewTrivial(w, 60)
	defer tr.Close()

	tr.Observe("f1", "d1", 10)
	tr.Observe("f1", "d2", 100)
	tr.flush()

	require.Equal(t, 10.0, w.weights[[2]string{"f1", "d1"}])
	require.Equal(t, 100.0, w.weights[[2]string{"f1", "d2"}])
}

func TestTrivialFailMultipliesWeight(t *testing.T) {
	w := newFakeWriter()
	w.weights[[2]string{"f1", "d1"}] = 4
	tr := NewTrivial(w, 60)
	defer tr.Close()

	tr.Fail("f1", "d1")
	require.Equal(t, 4*FailureFactor, w.weights[[2]string{"f1", "d1"}])
}

// A non-positive period is coerced to one second rather than busy-looping.
func TestNewTrivialCoercesNonPositivePeriod(t *testing.T) {
	w := newFakeWriter()
	tr := NewTrivialWithStatistic(w, 0, StatMean)
	defer tr.Close()
	require.Equal(t, "1s", tr.period.String())
}
