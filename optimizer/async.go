package optimizer

import (
	"sync"
	"time"
)

// staleWeightPeriod is the age beyond which a previous weight is ignored
// and the fresh sample is written as-is.
const staleWeightPeriod = 10 * time.Second

type asyncKey struct {
	function    string
	destination string
}

type asyncState struct {
	weight    float64
	timestamp time.Time
}

// Async is the exponential-moving-average optimizer: on every observation
// it computes new_weight = alpha*prev_weight + (1-alpha)*sample, ignoring
// prev_weight if it is older than staleWeightPeriod or absent, and writes
// the result immediately.
type Async struct {
	w     WeightWriter
	alpha float64
	now   func() time.Time

	mu    sync.Mutex
	state map[asyncKey]asyncState
}

// NewAsync builds an Async optimizer with the given EWMA coefficient.
func NewAsync(w WeightWriter, alpha float64) *Async {
	return &Async{w: w, alpha: alpha, now: time.Now, state: make(map[asyncKey]asyncState)}
}

func (a *Async) Observe(function, destination string, elapsed float64) {
	now := a.now()
	k := asyncKey{function, destination}

	a.mu.Lock()
	prev, ok := a.state[k]
	newWeight := elapsed
	if ok && now.Sub(prev.timestamp) < staleWeightPeriod {
		newWeight = a.alpha*prev.weight + (1-a.alpha)*elapsed
	}
	a.state[k] = asyncState{weight: newWeight, timestamp: now}
	a.mu.Unlock()

	_ = a.w.ChangeWeight(function, destination, newWeight)
}

func (a *Async) Fail(function, destination string) {
	_ = a.w.Multiply(function, destination, FailureFactor)
}

func (a *Async) Close() {}

// AsyncPF writes the raw sample directly as the new weight, intended to
// pair with a ProportionalFairness entry: that entry already tracks its
// own served-count/timestamp smoothing, so AsyncPF performs none.
type AsyncPF struct {
	w WeightWriter
}

// NewAsyncPF builds an AsyncPF optimizer.
func NewAsyncPF(w WeightWriter) *AsyncPF {
	return &AsyncPF{w: w}
}

func (p *AsyncPF) Observe(function, destination string, elapsed float64) {
	_ = p.w.ChangeWeight(function, destination, elapsed)
}

func (p *AsyncPF) Fail(function, destination string) {
	_ = p.w.Multiply(function, destination, FailureFactor)
}

func (p *AsyncPF) Close() {}
