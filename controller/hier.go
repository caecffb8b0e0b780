package controller

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/ccicconetti/serverlessedge/topology"
	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
)

// Objective selects how Hier ranks candidate home routers.
type Objective int

const (
	// ObjectiveMinMax minimizes the maximum router-to-router distance
	// first, breaking ties on the average.
	ObjectiveMinMax Objective = iota
	// ObjectiveMinAvg minimizes the average distance first, breaking ties
	// on the maximum.
	ObjectiveMinAvg
)

func (o Objective) String() string {
	switch o {
	case ObjectiveMinAvg:
		return "min-avg"
	default:
		return "min-max"
	}
}

// ObjectiveFromString parses a configuration value into an Objective.
func ObjectiveFromString(s string) (Objective, error) {
	switch s {
	case "min-max":
		return ObjectiveMinMax, nil
	case "min-avg":
		return ObjectiveMinAvg, nil
	default:
		return 0, fmt.Errorf("controller: invalid hierarchical objective %q", s)
	}
}

// Hier is a controller that picks, for each computer, a home router
// nearest to it in the given topology: the computer is announced as a
// final destination to its home router only, while the home router itself
// is announced as an intermediate destination to every other router. Any
// addition or removal of a router triggers a full flush-and-rebuild of
// every router's forwarding table, since the set of home-router
// assignments may change. Any router that fails to acknowledge a
// forwarding-table change is dropped from the known set, which itself
// triggers the same rebuild.
type Hier struct {
	mu        sync.Mutex
	client    transport.RouterConfigClient
	reg       *registry
	objective Objective
	topology  *topology.Topology
	rng       *rand.Rand

	// routerAddresses maps a router's network address (the host part of
	// its endpoint) to every edge-server endpoint known at that address;
	// more than one can coexist if several routers are co-located.
	routerAddresses map[string][]string

	// closest memoizes the home router address chosen for a computer
	// address, invalidated whenever the set of router addresses changes.
	closest map[string]string

	// announced maps a home router's edge-server endpoint to the lambdas
	// it has been given as final destinations, and for each the set of
	// computers currently reachable through it.
	announced map[string]map[string]map[string]struct{}
}

// NewHier builds a hierarchical controller. rng may be nil, in which case
// a default source is used; pass a seeded one for reproducible tests.
func NewHier(client transport.RouterConfigClient, objective Objective, topo *topology.Topology, rng *rand.Rand) *Hier {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Hier{
		client:          client,
		reg:             newRegistry(),
		objective:       objective,
		topology:        topo,
		rng:             rng,
		routerAddresses: make(map[string][]string),
		closest:         make(map[string]string),
		announced:       make(map[string]map[string]map[string]struct{}),
	}
}

// addressOf returns the host part of a "host:port" endpoint.
func addressOf(endpoint string) (string, error) {
	idx := strings.Index(endpoint, ":")
	if idx <= 0 || idx == len(endpoint)-1 {
		return "", fmt.Errorf("controller: invalid endpoint %q", endpoint)
	}
	return endpoint[:idx], nil
}

// AnnounceComputer registers endpoint's containers and installs its
// routes according to the hierarchical policy.
func (h *Hier) AnnounceComputer(ctx context.Context, endpoint string, containers transport.ContainerList) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := h.reg.addComputer(endpoint, containers)
	logrus.WithField("endpoint", endpoint).Info("hier controller: computer announce")
	if status == statusAlreadyPresent {
		return
	}
	if status == statusContainersChanged {
		h.removeComputerLocked(ctx, endpoint)
		h.reg.addComputer(endpoint, containers)
	}
	h.reg.recordLambdas(endpoint, containers)
	h.privateAnnounceComputerLocked(ctx, endpoint, containers)
}

// AnnounceRouter registers routerEndpoint and rebuilds every router's
// forwarding table, since a new candidate home router may reshuffle the
// closest-router assignment for existing computers.
func (h *Hier) AnnounceRouter(ctx context.Context, computerEndpoint, routerEndpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reg.addRouter(computerEndpoint, routerEndpoint)
	logrus.WithFields(logrus.Fields{"computer": computerEndpoint, "router": routerEndpoint}).
		Info("hier controller: router announce")

	addr, err := addressOf(computerEndpoint)
	if err != nil {
		logrus.WithError(err).Warn("hier controller: cannot register router address")
		return
	}
	if _, exists := h.routerAddresses[addr]; !exists {
		h.closest = make(map[string]string)
	}
	h.routerAddresses[addr] = append(h.routerAddresses[addr], computerEndpoint)

	h.resetLocked(ctx)
}

// RemoveComputer deregisters endpoint and removes its routes.
func (h *Hier) RemoveComputer(ctx context.Context, endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeComputerLocked(ctx, endpoint)
}

func (h *Hier) removeComputerLocked(ctx context.Context, endpoint string) {
	lambdas := h.reg.removeComputer(endpoint)
	logrus.WithField("endpoint", endpoint).Info("hier controller: computer removed")
	for _, lambda := range lambdas {
		h.reg.forgetLambda(lambda, endpoint)
	}
	h.privateRemoveComputerLocked(ctx, endpoint, lambdas)
}

// findClosestLocked returns the router address nearest to computerAddress
// per the configured objective, memoizing the result.
func (h *Hier) findClosestLocked(computerAddress string) (string, error) {
	if len(h.routerAddresses) == 0 {
		return "", nil
	}
	if addr, ok := h.closest[computerAddress]; ok {
		return addr, nil
	}

	n := float64(h.topology.NumNodes())
	omega := 1.0 + 2.0*n*n

	addrs := make([]string, 0, len(h.routerAddresses))
	for a := range h.routerAddresses {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	bestAddr := ""
	bestScore := math.Inf(1)
	for _, addr := range addrs {
		maxCost := math.Inf(-1)
		var sum float64
		for _, other := range addrs {
			d, err := h.topology.Distance(addr, other)
			if err != nil {
				return "", err
			}
			if d > maxCost {
				maxCost = d
			}
			sum += d
		}
		distHomeToComp, err := h.topology.Distance(addr, computerAddress)
		if err != nil {
			return "", err
		}

		maxScore := distHomeToComp + maxCost
		avgScore := n*distHomeToComp + sum

		var score float64
		if h.objective == ObjectiveMinMax {
			score = omega*maxScore + avgScore
		} else {
			score = maxScore + omega*avgScore
		}
		if score < bestScore {
			bestScore = score
			bestAddr = addr
		}
	}

	h.closest[computerAddress] = bestAddr
	return bestAddr, nil
}

// routerEndpointLocked returns one of the edge-server endpoints at
// address, chosen at random if several routers are co-located there.
func (h *Hier) routerEndpointLocked(address string) string {
	eps := h.routerAddresses[address]
	if len(eps) == 1 {
		return eps[0]
	}
	return eps[h.rng.Intn(len(eps))]
}

func (h *Hier) privateAnnounceComputerLocked(ctx context.Context, endpoint string, containers transport.ContainerList) {
	if len(h.routerAddresses) == 0 {
		return
	}

	addr, err := addressOf(endpoint)
	if err != nil {
		logrus.WithError(err).Warn("hier controller: invalid computer endpoint")
		return
	}
	homeAddr, err := h.findClosestLocked(addr)
	if err != nil || homeAddr == "" {
		logrus.WithError(err).Warn("hier controller: failed to find home router")
		return
	}
	homeEdgeServer := h.routerEndpointLocked(homeAddr)
	homeForwarding := h.reg.forwardingServerEndpoint(homeEdgeServer)

	entries := make([]RouteEntry, 0, len(containers.Containers))
	for _, ct := range containers.Containers {
		entries = append(entries, RouteEntry{Lambda: ct.Lambda, Endpoint: endpoint, Weight: 1.0, Final: true})
	}

	if homeForwarding != "" {
		if !changeRoutes(ctx, h.client, homeForwarding, entries) {
			h.removeRouterLocked(ctx, homeEdgeServer)
			return
		}
	}

	lambdas, ok := h.announced[homeEdgeServer]
	if !ok {
		lambdas = make(map[string]map[string]struct{})
		h.announced[homeEdgeServer] = lambdas
	}

	intermediate := make([]RouteEntry, 0, len(entries))
	for _, e := range entries {
		computers, ok := lambdas[e.Lambda]
		if !ok {
			computers = make(map[string]struct{})
			lambdas[e.Lambda] = computers
		}
		_, already := computers[endpoint]
		computers[endpoint] = struct{}{}
		if already || len(computers) > 1 {
			continue
		}
		intermediate = append(intermediate, RouteEntry{Lambda: e.Lambda, Endpoint: homeEdgeServer, Weight: 1.0, Final: false})
	}
	if len(intermediate) == 0 {
		return
	}

	var failed []string
	for routerEdgeServer, forwardingEndpoint := range h.reg.allRouters() {
		if routerEdgeServer == homeEdgeServer {
			continue
		}
		if !changeRoutes(ctx, h.client, forwardingEndpoint, intermediate) {
			failed = append(failed, routerEdgeServer)
		}
	}
	for _, bad := range failed {
		h.removeRouterLocked(ctx, bad)
	}
}

type removeElem struct {
	triggerRouter      string // dropped from the known set on RPC failure
	forwardingEndpoint string
	destination        string
	lambda             string
}

func (h *Hier) privateRemoveComputerLocked(ctx context.Context, endpoint string, lambdas []string) {
	var removes []removeElem
	for _, lambda := range lambdas {
		for homeEdgeServer, byLambda := range h.announced {
			computers, ok := byLambda[lambda]
			if !ok {
				continue
			}
			if _, present := computers[endpoint]; !present {
				continue
			}
			delete(computers, endpoint)

			removes = append(removes, removeElem{
				triggerRouter:      homeEdgeServer,
				forwardingEndpoint: h.reg.forwardingServerEndpoint(homeEdgeServer),
				destination:        endpoint,
				lambda:             lambda,
			})

			if len(computers) == 0 {
				for otherEdgeServer, otherForwarding := range h.reg.allRouters() {
					if otherEdgeServer == homeEdgeServer {
						continue
					}
					removes = append(removes, removeElem{
						triggerRouter:      otherEdgeServer,
						forwardingEndpoint: otherForwarding,
						destination:        homeEdgeServer,
						lambda:             lambda,
					})
				}
				delete(byLambda, lambda)
				if len(byLambda) == 0 {
					delete(h.announced, homeEdgeServer)
				}
			}
			break
		}
	}

	for _, rem := range removes {
		if rem.forwardingEndpoint == "" {
			continue
		}
		if !removeRoutes(ctx, h.client, rem.forwardingEndpoint, rem.destination, []string{rem.lambda}) {
			h.removeRouterLocked(ctx, rem.triggerRouter)
			return
		}
	}
}

func (h *Hier) removeRouterLocked(ctx context.Context, edgeServer string) {
	if addr, err := addressOf(edgeServer); err == nil {
		eps := h.routerAddresses[addr]
		for i, e := range eps {
			if e == edgeServer {
				eps = append(eps[:i], eps[i+1:]...)
				break
			}
		}
		if len(eps) == 0 {
			delete(h.routerAddresses, addr)
			h.closest = make(map[string]string)
		} else {
			h.routerAddresses[addr] = eps
		}
	}
	h.reg.removeRouter(edgeServer)
	logrus.WithField("router", edgeServer).Info("hier controller: router removed")

	h.resetLocked(ctx)
}

// resetLocked flushes every router's forwarding table and rebuilds it
// from scratch by re-announcing every known computer. Recursion through
// removeRouterLocked terminates because each failure permanently removes
// a router, shrinking the known set until it is empty.
func (h *Hier) resetLocked(ctx context.Context) {
	var failed []string
	for edgeServer, forwardingEndpoint := range h.reg.allRouters() {
		if !flushRoutes(ctx, h.client, forwardingEndpoint) {
			failed = append(failed, edgeServer)
		}
	}
	if len(failed) > 0 {
		for _, bad := range failed {
			h.removeRouterLocked(ctx, bad)
		}
		return
	}

	h.announced = make(map[string]map[string]map[string]struct{})
	for endpoint, containers := range h.reg.allComputers() {
		h.privateAnnounceComputerLocked(ctx, endpoint, containers)
	}
}

// Computers snapshots the currently known computers and their containers.
func (h *Hier) Computers() map[string]transport.ContainerList {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]transport.ContainerList, len(h.reg.computers))
	for k, v := range h.reg.computers {
		out[k] = v
	}
	return out
}
