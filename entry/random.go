package entry

import "math/rand"

// Random picks a destination with probability proportional to 1/weight.
// The running sum of inverse weights is maintained incrementally rather
// than recomputed on every pick; drift from repeated incremental updates
// is not compensated.
type Random struct {
	list
	invSum float64
	rng    *rand.Rand
}

// NewRandom builds an empty Random entry. rng may be nil, in which case a
// package-default source is used; tests should always supply a seeded one
// for reproducibility.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Random{list: newList(), rng: rng}
}

func (r *Random) Change(endpoint string, weight float64, final bool) error {
	return r.list.change(endpoint, weight, final,
		func(d *Destination) {
			r.invSum += 1 / d.Weight
		},
		func(old float64) {
			d, _ := r.list.get(endpoint)
			r.invSum += 1/d.Weight - 1/old
		},
	)
}

func (r *Random) ChangeWeight(endpoint string, weight float64) error {
	return r.list.changeWeight(endpoint, weight, func(old float64) {
		d, _ := r.list.get(endpoint)
		r.invSum += 1/d.Weight - 1/old
	})
}

func (r *Random) Remove(endpoint string) {
	r.list.remove(endpoint, func(removed Destination) {
		r.invSum -= 1 / removed.Weight
	})
}

// Pick draws a uniform r in [0, invSum) and returns the first destination
// (in insertion order) whose running sum of 1/weight reaches or exceeds r,
// excluding the last destination from the scan (which is always the
// fallback if nothing else matched, and the sole return when len == 1).
func (r *Random) Pick() (string, error) {
	if r.list.len() == 0 {
		return "", ErrNoDestinations
	}
	dests := r.list.snapshot()
	if len(dests) == 1 {
		return dests[0].Endpoint, nil
	}
	target := r.rng.Float64() * r.invSum
	var running float64
	for i := 0; i < len(dests)-1; i++ {
		running += 1 / dests[i].Weight
		if running >= target {
			return dests[i].Endpoint, nil
		}
	}
	return dests[len(dests)-1].Endpoint, nil
}
