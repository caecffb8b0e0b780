// Package forwarding implements the per-function-name scheduling-entry
// registry a router consults on every invocation, and the overall/
// final-only table pair a two-table router exposes to the controller.
package forwarding

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ccicconetti/serverlessedge/entry"
)

// ErrInvalidWeight is returned by Change when weight is negative. A weight
// of exactly zero is not rejected here — it is passed through to the
// entry, whose own Change rejects any non-positive weight; per spec this
// is deliberate: "a positive zero-crossing gets normalized upstream."
var ErrInvalidWeight = errors.New("forwarding: invalid weight")

// ErrInvalidWeightFactor is returned by Multiply when factor is not
// strictly positive.
var ErrInvalidWeightFactor = errors.New("forwarding: invalid weight factor")

// Table is a thread-safe registry keyed by function name, holding one
// scheduling entry per function. The entry variant and its construction
// parameters are fixed for the lifetime of the table; an entry is created
// lazily, on first Change, for each new function name.
type Table struct {
	mu      sync.Mutex
	typ     entry.Type
	params  entry.Params
	entries map[string]entry.Entry
}

// New builds an empty table that will create entries of the given variant.
func New(t entry.Type, p entry.Params) *Table {
	return &Table{typ: t, params: p, entries: make(map[string]entry.Entry)}
}

// Change creates the entry for function if absent, then inserts or updates
// (endpoint, weight, final) on it.
func (t *Table) Change(function, endpoint string, weight float64, final bool) error {
	if weight < 0 {
		return ErrInvalidWeight
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[function]
	if !ok {
		e = entry.New(t.typ, t.params)
		t.entries[function] = e
	}
	return e.Change(endpoint, weight, final)
}

// ChangeWeight updates the weight of an existing (function, endpoint) pair
// without touching final. Returns entry.ErrNoDestinations if the function
// or the endpoint is unknown.
func (t *Table) ChangeWeight(function, endpoint string, weight float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[function]
	if !ok {
		return entry.ErrNoDestinations
	}
	return e.ChangeWeight(endpoint, weight)
}

// Multiply reads the current weight of (function, endpoint), multiplies it
// by factor, and writes it back.
func (t *Table) Multiply(function, endpoint string, factor float64) error {
	if factor <= 0 {
		return ErrInvalidWeightFactor
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[function]
	if !ok {
		return entry.ErrNoDestinations
	}
	for _, d := range e.Destinations() {
		if d.Endpoint == endpoint {
			return e.ChangeWeight(endpoint, d.Weight*factor)
		}
	}
	return entry.ErrNoDestinations
}

// Remove deletes a destination; if the entry becomes empty, the whole
// function entry is deleted too.
func (t *Table) Remove(function, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[function]
	if !ok {
		return
	}
	e.Remove(endpoint)
	if e.Len() == 0 {
		delete(t.entries, function)
	}
}

// RemoveFunction deletes the whole entry for function, if present.
func (t *Table) RemoveFunction(function string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, function)
}

// Flush deletes every entry.
func (t *Table) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]entry.Entry)
}

// Pick delegates lookup to the function's entry, propagating
// entry.ErrNoDestinations when the function is unknown or its entry is
// empty.
func (t *Table) Pick(function string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[function]
	if !ok {
		return "", entry.ErrNoDestinations
	}
	return e.Pick()
}

// Functions returns a snapshot of the function names currently known.
func (t *Table) Functions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.entries))
	for f := range t.entries {
		out = append(out, f)
	}
	return out
}

// Destinations returns a snapshot of the destinations known for function,
// or nil if the function is unknown.
func (t *Table) Destinations(function string) []entry.Destination {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[function]
	if !ok {
		return nil
	}
	return e.Destinations()
}

// FullTable returns a snapshot of every function's destination list.
func (t *Table) FullTable() map[string][]entry.Destination {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string][]entry.Destination, len(t.entries))
	for f, e := range t.entries {
		out[f] = e.Destinations()
	}
	return out
}

// String renders a short human-readable summary, useful for logging.
func (t *Table) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("forwarding.Table{type=%v, functions=%d}", t.typ, len(t.entries))
}
