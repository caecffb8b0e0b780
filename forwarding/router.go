package forwarding

import (
	"fmt"

	"github.com/ccicconetti/serverlessedge/entry"
)

// Router holds the two tables a two-table edge router exposes: table 0,
// the overall table consulted for client-originated requests (every
// destination visible, final or not), and table 1, the final-only table
// consulted for router-originated requests (only final destinations ever
// installed). A Change with final=false is installed only into the
// overall table; final=true is installed into both. Remove and Flush
// apply to both tables.
type Router struct {
	Overall *Table
	Final   *Table
}

// NewRouter builds a Router whose two tables share the same scheduling
// entry variant and construction parameters.
func NewRouter(t entry.Type, p entry.Params) *Router {
	return &Router{
		Overall: New(t, p),
		Final:   New(t, p),
	}
}

// Change installs (function, endpoint, weight, final) into the overall
// table always, and into the final-only table iff final.
func (r *Router) Change(function, endpoint string, weight float64, final bool) error {
	if err := r.Overall.Change(function, endpoint, weight, final); err != nil {
		return err
	}
	if final {
		return r.Final.Change(function, endpoint, weight, final)
	}
	return nil
}

// ChangeWeight updates the weight of (function, endpoint) in whichever
// table(s) currently hold it.
func (r *Router) ChangeWeight(function, endpoint string, weight float64) error {
	errOverall := r.Overall.ChangeWeight(function, endpoint, weight)
	errFinal := r.Final.ChangeWeight(function, endpoint, weight)
	if errOverall != nil && errFinal != nil {
		return errOverall
	}
	return nil
}

// Multiply multiplies the weight of (function, endpoint) by factor in
// whichever table(s) currently hold it.
func (r *Router) Multiply(function, endpoint string, factor float64) error {
	errOverall := r.Overall.Multiply(function, endpoint, factor)
	errFinal := r.Final.Multiply(function, endpoint, factor)
	if errOverall != nil && errFinal != nil {
		return errOverall
	}
	return nil
}

// Remove deletes (function, endpoint) from both tables.
func (r *Router) Remove(function, endpoint string) {
	r.Overall.Remove(function, endpoint)
	r.Final.Remove(function, endpoint)
}

// RemoveFunction deletes function from both tables.
func (r *Router) RemoveFunction(function string) {
	r.Overall.RemoveFunction(function)
	r.Final.RemoveFunction(function)
}

// Flush clears both tables.
func (r *Router) Flush() {
	r.Overall.Flush()
	r.Final.Flush()
}

// NumTables reports the fixed number of tables a Router exposes.
func (r *Router) NumTables() int {
	return 2
}

// Table returns table 0 (overall) or table 1 (final-only).
func (r *Router) Table(id int) (*Table, error) {
	switch id {
	case 0:
		return r.Overall, nil
	case 1:
		return r.Final, nil
	default:
		return nil, fmt.Errorf("forwarding: invalid table id %d", id)
	}
}
