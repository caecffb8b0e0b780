package entry

import (
	"math"
	"time"
)

// pfState is the per-destination bookkeeping ProportionalFairness keeps:
// a served-count and the timestamp of its last weight update. t0 is reset
// to now on every onServed call, so the denominator measures time since
// the destination was last favored, not its total age.
type pfState struct {
	served int64
	t0     float64
}

// ProportionalFairness selects, on each pick, the destination maximizing
// (1/weight)^alpha / (servedCount/(now-t0))^beta, favoring destinations
// that are both cheap (low weight) and under-served relative to the time
// since their last weight update.
// alpha=0, beta=1 degenerates to a round-robin-like preference for the
// least-recently-favored equal-weight destination.
type ProportionalFairness struct {
	list
	state map[string]*pfState
	alpha float64
	beta  float64
	now   func() float64
}

// NewProportionalFairness builds an empty entry with the given exponents.
// now, if nil, defaults to a monotonic wall-clock-seconds source.
func NewProportionalFairness(alpha, beta float64, now func() float64) *ProportionalFairness {
	if now == nil {
		epoch := time.Now()
		now = func() float64 { return time.Since(epoch).Seconds() }
	}
	return &ProportionalFairness{list: newList(), state: make(map[string]*pfState), alpha: alpha, beta: beta, now: now}
}

func (e *ProportionalFairness) Change(endpoint string, weight float64, final bool) error {
	return e.list.change(endpoint, weight, final,
		func(d *Destination) {
			e.state[d.Endpoint] = &pfState{served: 1, t0: e.now()}
		},
		func(float64) {
			e.onServed(endpoint)
		},
	)
}

func (e *ProportionalFairness) ChangeWeight(endpoint string, weight float64) error {
	return e.list.changeWeight(endpoint, weight, func(float64) {
		e.onServed(endpoint)
	})
}

// onServed implements "on a weight update (invoked after a successful
// forward), increment n and set t0 = now."
func (e *ProportionalFairness) onServed(endpoint string) {
	s, ok := e.state[endpoint]
	if !ok {
		return
	}
	s.served++
	s.t0 = e.now()
}

func (e *ProportionalFairness) Remove(endpoint string) {
	e.list.remove(endpoint, func(removed Destination) {
		delete(e.state, removed.Endpoint)
	})
}

// Pick returns the destination with the maximum coefficient, ties broken
// by insertion order (the first destination to reach a given maximum
// keeps it: later destinations must strictly exceed it to win).
func (e *ProportionalFairness) Pick() (string, error) {
	dests := e.list.snapshot()
	if len(dests) == 0 {
		return "", ErrNoDestinations
	}
	now := e.now()
	var bestEndpoint string
	var bestCoeff float64
	found := false
	for _, d := range dests {
		s := e.state[d.Endpoint]
		coeff := e.computeWeight(d.Weight, s.served, s.t0, now)
		if !found || coeff > bestCoeff {
			bestEndpoint = d.Endpoint
			bestCoeff = coeff
			found = true
		}
	}
	return bestEndpoint, nil
}

func (e *ProportionalFairness) computeWeight(weight float64, served int64, t0, now float64) float64 {
	numer := math.Pow(1/weight, e.alpha)
	if e.beta == 0 {
		return numer
	}
	elapsed := now - t0
	if elapsed <= 0 {
		// A just-added destination: rate is unbounded, so this term drives
		// the coefficient toward zero (the destination has no track
		// record yet) unless beta is itself zero.
		return 0
	}
	rate := float64(served) / elapsed
	return numer / math.Pow(rate, e.beta)
}
