package entry

import "time"

const (
	initialStalePeriod  = 1.0  // seconds
	maximumStalePeriod  = 30.0 // seconds
	backoffCoefficient  = 2.0
)

// rrState is the per-destination bookkeeping RoundRobin keeps alongside the
// shared Destination record.
type rrState struct {
	deficit     float64
	lastUpdated float64 // seconds since an arbitrary epoch; -1 = never
	stalePeriod float64
	probing     bool
	active      bool
}

// RoundRobin distributes picks across an active subset of destinations
// using per-destination deficit counters, admitting a destination to the
// active set only while its weight stays within 2x the current minimum,
// and otherwise probing it back in once its individual stale-period backoff
// expires, including the one-shot probe and the stale-period
// doubling/reset.
type RoundRobin struct {
	list
	state map[string]*rrState
	now   func() float64
}

// NewRoundRobin builds an empty RoundRobin entry. now, if nil, defaults to
// a monotonic wall-clock-seconds source; tests should supply a controllable
// clock.
func NewRoundRobin(now func() float64) *RoundRobin {
	if now == nil {
		epoch := time.Now()
		now = func() float64 { return time.Since(epoch).Seconds() }
	}
	return &RoundRobin{list: newList(), state: make(map[string]*rrState), now: now}
}

func (e *RoundRobin) Change(endpoint string, weight float64, final bool) error {
	err := e.list.change(endpoint, weight, final,
		func(d *Destination) {
			e.state[d.Endpoint] = &rrState{lastUpdated: -1, stalePeriod: initialStalePeriod}
		},
		func(old float64) {
			e.onWeightUpdated(endpoint, old)
		},
	)
	if err != nil {
		return err
	}
	e.updateActiveSet()
	return nil
}

func (e *RoundRobin) ChangeWeight(endpoint string, weight float64) error {
	err := e.list.changeWeight(endpoint, weight, func(old float64) {
		e.onWeightUpdated(endpoint, old)
	})
	if err != nil {
		return err
	}
	e.updateActiveSet()
	return nil
}

func (e *RoundRobin) Remove(endpoint string) {
	e.list.remove(endpoint, func(Destination) {
		delete(e.state, endpoint)
	})
	e.updateActiveSet()
}

// onWeightUpdated applies the probing-destination stale-period transition:
// when a probing destination is used and still does not meet the weight
// test, its stale period doubles up to 30s; when it does meet it, the
// stale period resets to 1s.
func (e *RoundRobin) onWeightUpdated(endpoint string, _ float64) {
	s, ok := e.state[endpoint]
	if !ok {
		return
	}
	now := e.now()
	wasProbing := s.probing
	s.lastUpdated = now
	if wasProbing {
		if e.good(endpoint) {
			s.probing = false
			s.stalePeriod = initialStalePeriod
		} else {
			s.stalePeriod = s.stalePeriod * backoffCoefficient
			if s.stalePeriod > maximumStalePeriod {
				s.stalePeriod = maximumStalePeriod
			}
		}
	}
}

// good reports whether endpoint's weight is within 2x the minimum weight
// observed across every destination (not just the active set), or there is
// only one destination in total.
func (e *RoundRobin) good(endpoint string) bool {
	d, ok := e.list.get(endpoint)
	if !ok {
		return false
	}
	if e.list.len() == 1 {
		return true
	}
	wmin := e.minWeight()
	return d.Weight <= 2*wmin
}

func (e *RoundRobin) minWeight() float64 {
	dests := e.list.snapshot()
	wmin := dests[0].Weight
	for _, d := range dests[1:] {
		if d.Weight < wmin {
			wmin = d.Weight
		}
	}
	return wmin
}

// updateActiveSet recomputes which destinations are eligible for
// selection, then shifts every deficit down by the minimum deficit among
// the (possibly newly) active destinations so that at least one of them
// sits at zero.
func (e *RoundRobin) updateActiveSet() {
	dests := e.list.snapshot()
	if len(dests) == 0 {
		return
	}
	now := e.now()
	wmin := e.minWeight()

	for _, d := range dests {
		s := e.state[d.Endpoint]
		if s == nil {
			continue
		}
		admitByWeight := d.Weight <= 2*wmin && !s.probing
		admitByNeverUsed := s.lastUpdated < 0
		switch {
		case admitByWeight || admitByNeverUsed:
			s.active = true
		case now-s.lastUpdated >= s.stalePeriod:
			s.probing = true
			s.deficit = e.minActiveDeficit(dests)
			s.lastUpdated = -1
			s.active = true
		default:
			s.active = false
		}
	}

	if !e.haveActive(dests) {
		return
	}
	shift := e.minActiveDeficit(dests)
	for _, d := range dests {
		if s := e.state[d.Endpoint]; s != nil {
			s.deficit -= shift
		}
	}
}

func (e *RoundRobin) haveActive(dests []Destination) bool {
	for _, d := range dests {
		if s := e.state[d.Endpoint]; s != nil && s.active {
			return true
		}
	}
	return false
}

func (e *RoundRobin) minActiveDeficit(dests []Destination) float64 {
	first := true
	var best float64
	for _, d := range dests {
		s := e.state[d.Endpoint]
		if s == nil || !s.active {
			continue
		}
		if first || s.deficit < best {
			best = s.deficit
			first = false
		}
	}
	if first {
		return 0
	}
	return best
}

// Pick returns the active destination with the smallest deficit, ties
// broken by insertion order, and increments its deficit by its own weight.
func (e *RoundRobin) Pick() (string, error) {
	dests := e.list.snapshot()
	var bestEndpoint string
	var bestDeficit float64
	found := false
	for _, d := range dests {
		s := e.state[d.Endpoint]
		if s == nil || !s.active {
			continue
		}
		if !found || s.deficit < bestDeficit {
			bestEndpoint = d.Endpoint
			bestDeficit = s.deficit
			found = true
		}
	}
	if !found {
		return "", ErrNoDestinations
	}
	d, _ := e.list.get(bestEndpoint)
	e.state[bestEndpoint].deficit += d.Weight
	return bestEndpoint, nil
}
