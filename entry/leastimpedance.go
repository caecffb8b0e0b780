package entry

// LeastImpedance always returns the destination with the smallest current
// weight. A cached minimum avoids an O(n) rescan on every pick. A weight
// update rescans when the new weight is already <= the cached minimum, or
// when the old weight equaled the cached minimum — the latter refreshes
// even when the new weight leaves the minimum unchanged, which is a known
// over-refresh rather than a strict minimality check.
type LeastImpedance struct {
	list
	min   string
	haveM bool
}

// NewLeastImpedance builds an empty LeastImpedance entry.
func NewLeastImpedance() *LeastImpedance {
	return &LeastImpedance{list: newList()}
}

func (e *LeastImpedance) Change(endpoint string, weight float64, final bool) error {
	return e.list.change(endpoint, weight, final,
		func(d *Destination) {
			if !e.haveM {
				e.min = d.Endpoint
				e.haveM = true
				return
			}
			cur, _ := e.list.get(e.min)
			if d.Weight < cur.Weight {
				e.min = d.Endpoint
			}
		},
		func(old float64) {
			cur, _ := e.list.get(e.min)
			newW, _ := e.list.get(endpoint)
			if newW.Weight <= cur.Weight || old == cur.Weight {
				e.rescan()
			}
		},
	)
}

func (e *LeastImpedance) ChangeWeight(endpoint string, weight float64) error {
	return e.list.changeWeight(endpoint, weight, func(old float64) {
		cur, haveCur := e.list.get(e.min)
		if !haveCur {
			e.rescan()
			return
		}
		newW, _ := e.list.get(endpoint)
		if newW.Weight <= cur.Weight || old == cur.Weight {
			e.rescan()
		}
	})
}

func (e *LeastImpedance) Remove(endpoint string) {
	e.list.remove(endpoint, func(removed Destination) {
		if e.haveM && removed.Endpoint == e.min {
			e.rescan()
		}
	})
}

func (e *LeastImpedance) Pick() (string, error) {
	if e.list.len() == 0 {
		return "", ErrNoDestinations
	}
	return e.min, nil
}

// rescan performs the O(n) std::min_element-equivalent recompute, breaking
// ties by insertion order (first occurrence wins).
func (e *LeastImpedance) rescan() {
	dests := e.list.snapshot()
	if len(dests) == 0 {
		e.haveM = false
		e.min = ""
		return
	}
	best := dests[0]
	for _, d := range dests[1:] {
		if d.Weight < best.Weight {
			best = d
		}
	}
	e.min = best.Endpoint
	e.haveM = true
}
