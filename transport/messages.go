// Package transport defines the wire envelopes and abstract client/server
// interfaces that carry requests between edge clients, routers, computers
// and controllers. The concrete RPC transport is deliberately out of
// scope: any implementation that preserves these fields and semantics over
// a bidirectional request/response channel is compatible.
package transport

// StatusOK is the LambdaResponse.RetCode value on success; any other value
// is a human-readable error.
const StatusOK = "OK"

// LambdaRequest is the envelope carrying one function invocation.
type LambdaRequest struct {
	Function string
	Input    []byte

	// Hops counts the number of routers this request has passed through;
	// each forwarding router increments it before handing the request to
	// the next hop.
	Hops uint32

	// Forwardable, when true, allows the receiving router to pick a
	// non-final destination (another router); when false only final
	// (computer) destinations may be chosen. router.Dispatcher does not
	// read it: it selects its table by Hops alone and clears this flag on
	// the request it forwards.
	Forwardable bool

	// Callback, if set, names an endpoint to notify asynchronously on
	// completion instead of blocking the caller.
	Callback string

	// Chain, NextFunctionIndex, Dependencies, States and DataIn support
	// multi-function invocation chains: Chain is the ordered list of
	// function names still to be executed, NextFunctionIndex indexes into
	// it, Dependencies maps a state id to the set of function names that
	// must complete before it is available, and States carries already
	// resolved state references by id.
	Chain             []string
	NextFunctionIndex uint32
	Dependencies      map[string]map[string]struct{}
	States            map[string]string
	DataIn            []byte
}

// LambdaResponse is the envelope returned for a LambdaRequest.
type LambdaResponse struct {
	// RetCode is StatusOK on success, otherwise a human-readable error.
	RetCode string
	Output  []byte
	DataOut []byte

	// ProcessingTimeMs is the time the responder itself spent executing
	// the lambda, excluding transport and forwarding overhead.
	ProcessingTimeMs uint32

	// Load1, Load10, Load30 are the responder's utilization over the last
	// 1, 10 and 30 seconds, expressed as an integer percentage [0, 100].
	Load1, Load10, Load30 uint32

	// Responder is set only by the edge computer that actually executed
	// the lambda; intermediate routers leave it untouched.
	Responder string

	// Hops is copied from the request, possibly incremented once more on
	// the way back.
	Hops uint32

	// Async is true if this response merely acknowledges acceptance of an
	// asynchronous invocation (see LambdaRequest.Callback).
	Async bool

	States map[string]string
}

// OK reports whether the response indicates success.
func (r *LambdaResponse) OK() bool {
	return r.RetCode == StatusOK
}

// ContainerDescriptor is one entry of a ContainerList: the static
// configuration of a single container hosted by a computer.
type ContainerDescriptor struct {
	Name       string
	Processor  string
	Lambda     string
	NumWorkers uint32
}

// ContainerList is the ordered list of containers a computer offers,
// exchanged between a computer and the controller on announce.
type ContainerList struct {
	Containers []ContainerDescriptor
}

// Equal reports whether two container lists describe the same containers
// in the same order — used by the controller's flat installer to decide
// whether a re-announce changed anything.
func (l ContainerList) Equal(other ContainerList) bool {
	if len(l.Containers) != len(other.Containers) {
		return false
	}
	for i, c := range l.Containers {
		if c != other.Containers[i] {
			return false
		}
	}
	return true
}

// Lambdas returns the distinct lambda names offered by this container
// list, in first-occurrence order.
func (l ContainerList) Lambdas() []string {
	seen := make(map[string]bool, len(l.Containers))
	out := make([]string, 0, len(l.Containers))
	for _, c := range l.Containers {
		if !seen[c.Lambda] {
			seen[c.Lambda] = true
			out = append(out, c.Lambda)
		}
	}
	return out
}
