// Package controller implements the edge controller's bookkeeping of known
// computers and routers, and the two installer policies (flat and
// hierarchical) that decide which routers get which forwarding-table
// entries as computers and routers come and go.
package controller

import (
	"sort"

	"github.com/ccicconetti/serverlessedge/transport"
)

type addStatus int

const (
	statusNotPresent addStatus = iota
	statusAlreadyPresent
	statusContainersChanged
)

// registry is the bookkeeping shared by every installer policy: the known
// computers (by edge-server endpoint) and their containers, the known
// routers (by edge-server endpoint, mapped to their forwarding-table
// configuration endpoint), and which computers currently serve which
// lambda.
type registry struct {
	computers map[string]transport.ContainerList
	routers   map[string]string // edge server endpoint -> forwarding table endpoint
	lambdas   map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		computers: make(map[string]transport.ContainerList),
		routers:   make(map[string]string),
		lambdas:   make(map[string]map[string]struct{}),
	}
}

// addComputer records containers for endpoint. It reports whether the
// computer was previously unknown, already present with an identical
// container list, or present with a different one (in which case the
// registry is left untouched — the caller must remove the old entry
// first).
func (r *registry) addComputer(endpoint string, containers transport.ContainerList) addStatus {
	existing, ok := r.computers[endpoint]
	if !ok {
		r.computers[endpoint] = containers
		return statusNotPresent
	}
	if existing.Equal(containers) {
		return statusAlreadyPresent
	}
	return statusContainersChanged
}

// removeComputer deletes endpoint and returns the lambdas it used to
// serve, or nil if it was unknown.
func (r *registry) removeComputer(endpoint string) []string {
	existing, ok := r.computers[endpoint]
	if !ok {
		return nil
	}
	delete(r.computers, endpoint)
	return existing.Lambdas()
}

// recordLambdas marks every lambda in containers as served by endpoint.
func (r *registry) recordLambdas(endpoint string, containers transport.ContainerList) {
	for _, ct := range containers.Containers {
		set, ok := r.lambdas[ct.Lambda]
		if !ok {
			set = make(map[string]struct{})
			r.lambdas[ct.Lambda] = set
		}
		set[endpoint] = struct{}{}
	}
}

// forgetLambda removes endpoint from lambda's serving set.
func (r *registry) forgetLambda(lambda, endpoint string) {
	set, ok := r.lambdas[lambda]
	if !ok {
		return
	}
	delete(set, endpoint)
	if len(set) == 0 {
		delete(r.lambdas, lambda)
	}
}

func (r *registry) addRouter(edgeServer, forwardingServer string) {
	r.routers[edgeServer] = forwardingServer
}

func (r *registry) removeRouter(edgeServer string) bool {
	if _, ok := r.routers[edgeServer]; !ok {
		return false
	}
	delete(r.routers, edgeServer)
	return true
}

func (r *registry) forwardingServerEndpoint(edgeServer string) string {
	return r.routers[edgeServer]
}

func (r *registry) allRouters() map[string]string { return r.routers }

func (r *registry) allComputers() map[string]transport.ContainerList { return r.computers }

type lambdaDest struct {
	Lambda, Endpoint string
}

// allLambdas lists every (lambda, serving computer) pair known to the
// registry, sorted for deterministic iteration.
func (r *registry) allLambdas() []lambdaDest {
	var out []lambdaDest
	for endpoint, containers := range r.computers {
		for _, ct := range containers.Containers {
			out = append(out, lambdaDest{Lambda: ct.Lambda, Endpoint: endpoint})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lambda != out[j].Lambda {
			return out[i].Lambda < out[j].Lambda
		}
		return out[i].Endpoint < out[j].Endpoint
	})
	return out
}
