// Package router implements the dispatch logic of an edge router: pick a
// destination from the appropriate forwarding table, forward the request,
// and feed the measured latency (or a failure) back to the local
// optimizer that owns that table's weights.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ccicconetti/serverlessedge/entry"
	"github.com/ccicconetti/serverlessedge/forwarding"
	"github.com/ccicconetti/serverlessedge/optimizer"
	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
)

// ErrForwardingFailure is returned when the transport client fails to
// reach the chosen destination; the caller may retry, possibly picking a
// different destination on the next attempt.
var ErrForwardingFailure = errors.New("router: forwarding failed")

// route pairs the table consulted for one request class with the local
// optimizer that owns its weights, mirroring the overall/final pair an
// edge router keeps.
type route struct {
	table     *forwarding.Table
	optimizer optimizer.LocalOptimizer
}

// Dispatcher is the request-handling half of an edge router: given a
// forwarding.Router (its two tables) and one local optimizer per table,
// it picks a destination, forwards through client, and reports the
// outcome back to whichever optimizer owns that table.
type Dispatcher struct {
	overall route
	final   route

	client transport.LambdaClient
	clock  func() time.Time

	// SubtractResponderTime selects which elapsed-time variant is fed to
	// the optimizer: if true, the responder's own ProcessingTimeMs is
	// subtracted from the measured elapsed time, isolating
	// transport+forwarding latency; if false (the default), the
	// optimizer sees the raw end-to-end elapsed time.
	SubtractResponderTime bool
}

// NewDispatcher builds a Dispatcher over the two tables of r, the two
// local optimizers that own their weights, and the client used to reach
// downstream destinations. SubtractResponderTime defaults to false; set
// it on the returned Dispatcher to enable the alternative policy.
func NewDispatcher(r *forwarding.Router, overallOptimizer, finalOptimizer optimizer.LocalOptimizer, client transport.LambdaClient) *Dispatcher {
	return &Dispatcher{
		overall: route{table: r.Overall, optimizer: overallOptimizer},
		final:   route{table: r.Final, optimizer: finalOptimizer},
		client:  client,
		clock:   time.Now,
	}
}

// Dispatch routes, forwards, times and reports the outcome of a single
// incoming request. req is not mutated; the request actually forwarded is
// a shallow copy with Hops incremented and Forwardable cleared, so that a
// router receiving it in turn consults only its final table.
func (d *Dispatcher) Dispatch(ctx context.Context, req *transport.LambdaRequest) (*transport.LambdaResponse, error) {
	rt := d.routeFor(req)

	destination, err := rt.table.Pick(req.Function)
	if err != nil {
		return nil, fmt.Errorf("router: no destination for %q: %w", req.Function, err)
	}

	fwd := *req
	fwd.Hops = req.Hops + 1
	fwd.Forwardable = false

	start := d.clock()
	resp, err := d.client.Invoke(ctx, destination, &fwd)
	if err != nil {
		rt.optimizer.Fail(req.Function, destination)
		logrus.WithError(err).WithFields(logrus.Fields{
			"function":    req.Function,
			"destination": destination,
		}).Warn("forwarding failed")
		return nil, fmt.Errorf("%w: %s: %v", ErrForwardingFailure, destination, err)
	}
	elapsed := d.clock().Sub(start).Seconds()

	if d.SubtractResponderTime {
		elapsed -= float64(resp.ProcessingTimeMs) / 1000.0
		if elapsed < 0 {
			elapsed = 0
		}
	}
	rt.optimizer.Observe(req.Function, destination, elapsed)

	resp.Hops = fwd.Hops
	return resp, nil
}

// routeFor selects the overall table for client-originated requests and
// the final-only table for router-originated ones, distinguishing the two
// by the envelope's hops counter rather than Forwardable: a request that
// has already made at least one hop must only ever land on a final
// destination, regardless of what Forwardable claims.
func (d *Dispatcher) routeFor(req *transport.LambdaRequest) route {
	if req.Hops == 0 {
		return d.overall
	}
	return d.final
}

// IsRetryable reports whether err indicates the caller may retry the
// request, either against this same router (no destination configured
// yet) or by falling back to the transport's own retry policy (a
// forwarding failure).
func IsRetryable(err error) bool {
	return errors.Is(err, entry.ErrNoDestinations) || errors.Is(err, ErrForwardingFailure)
}
