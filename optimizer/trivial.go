package optimizer

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TrivialStatistic selects which summary statistic Trivial writes back as
// the new weight on each periodic flush.
type TrivialStatistic int

const (
	StatMean TrivialStatistic = iota
	StatMin
	StatMax
)

type trivialKey struct {
	function    string
	destination string
}

// Trivial accumulates per-(function, destination) round-trip samples and,
// every period seconds, snapshots and clears them, writing one new weight
// per destination seen during that period: a summary statistic of the
// collected samples, either the mean (computed with gonum/stat) or the
// min or max (found by a linear scan).
type Trivial struct {
	w      WeightWriter
	period time.Duration
	stat   TrivialStatistic

	mu      sync.Mutex
	samples map[trivialKey][]float64

	stopOnce sync.Once
	done     chan struct{}
}

// NewTrivial builds a Trivial optimizer flushing every period seconds
// using the mean statistic, and starts its worker thread.
func NewTrivial(w WeightWriter, period float64) *Trivial {
	return NewTrivialWithStatistic(w, period, StatMean)
}

// NewTrivialWithStatistic is like NewTrivial but lets the caller pick
// which statistic is written back.
func NewTrivialWithStatistic(w WeightWriter, period float64, which TrivialStatistic) *Trivial {
	t := &Trivial{
		w:       w,
		period:  time.Duration(period * float64(time.Second)),
		stat:    which,
		samples: make(map[trivialKey][]float64),
		done:    make(chan struct{}),
	}
	if t.period <= 0 {
		t.period = time.Second
	}
	go t.worker()
	return t
}

func (t *Trivial) Observe(function, destination string, elapsed float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := trivialKey{function, destination}
	t.samples[k] = append(t.samples[k], elapsed)
}

func (t *Trivial) Fail(function, destination string) {
	_ = t.w.Multiply(function, destination, FailureFactor)
}

func (t *Trivial) Close() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *Trivial) worker() {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.flush()
		}
	}
}

func (t *Trivial) flush() {
	t.mu.Lock()
	snapshot := t.samples
	t.samples = make(map[trivialKey][]float64)
	t.mu.Unlock()

	for k, values := range snapshot {
		if len(values) == 0 {
			continue
		}
		newWeight := t.summarize(values)
		_ = t.w.ChangeWeight(k.function, k.destination, newWeight)
	}
}

func (t *Trivial) summarize(values []float64) float64 {
	switch t.stat {
	case StatMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case StatMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	default:
		return stat.Mean(values, nil)
	}
}
