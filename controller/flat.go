package controller

import (
	"context"
	"sync"

	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
)

// Flat is a controller that announces every computer to every router: a
// new computer becomes a new route on every known router, and a new
// router is immediately given every route known so far. Re-announcing a
// computer with an unchanged container list is a no-op; re-announcing it
// with a changed one removes the old routes before installing the new
// ones. Any router that fails to acknowledge a forwarding-table change is
// dropped from the known set.
type Flat struct {
	mu     sync.Mutex
	client transport.RouterConfigClient
	reg    *registry
}

// NewFlat builds a flat controller pushing forwarding-table changes
// through client.
func NewFlat(client transport.RouterConfigClient) *Flat {
	return &Flat{client: client, reg: newRegistry()}
}

// AnnounceComputer registers endpoint's containers and propagates a route
// for each of its lambdas to every known router.
func (f *Flat) AnnounceComputer(ctx context.Context, endpoint string, containers transport.ContainerList) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := f.reg.addComputer(endpoint, containers)
	logrus.WithField("endpoint", endpoint).Info("flat controller: computer announce")
	if status == statusAlreadyPresent {
		return
	}
	if status == statusContainersChanged {
		f.removeComputerLocked(ctx, endpoint)
		f.reg.addComputer(endpoint, containers)
	}
	f.reg.recordLambdas(endpoint, containers)

	entries := make([]RouteEntry, 0, len(containers.Containers))
	for _, ct := range containers.Containers {
		entries = append(entries, RouteEntry{Lambda: ct.Lambda, Endpoint: endpoint, Weight: 1.0, Final: true})
	}

	var failed []string
	for routerEdgeServer, forwardingEndpoint := range f.reg.allRouters() {
		if !changeRoutes(ctx, f.client, forwardingEndpoint, entries) {
			failed = append(failed, routerEdgeServer)
		}
	}
	for _, bad := range failed {
		f.removeRouterLocked(bad)
	}
}

// AnnounceRouter registers routerEndpoint as serving computerEndpoint's
// forwarding-table configuration, and installs a route for every lambda
// known so far.
func (f *Flat) AnnounceRouter(ctx context.Context, computerEndpoint, routerEndpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reg.addRouter(computerEndpoint, routerEndpoint)
	logrus.WithFields(logrus.Fields{"computer": computerEndpoint, "router": routerEndpoint}).
		Info("flat controller: router announce")

	dests := f.reg.allLambdas()
	if len(dests) == 0 {
		return
	}
	entries := make([]RouteEntry, 0, len(dests))
	for _, d := range dests {
		entries = append(entries, RouteEntry{Lambda: d.Lambda, Endpoint: d.Endpoint, Weight: 1.0, Final: true})
	}
	if !changeRoutes(ctx, f.client, routerEndpoint, entries) {
		f.removeRouterLocked(computerEndpoint)
	}
}

// RemoveComputer deregisters endpoint and removes its routes from every
// known router.
func (f *Flat) RemoveComputer(ctx context.Context, endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeComputerLocked(ctx, endpoint)
}

func (f *Flat) removeComputerLocked(ctx context.Context, endpoint string) {
	lambdas := f.reg.removeComputer(endpoint)
	logrus.WithField("endpoint", endpoint).Info("flat controller: computer removed")
	for _, lambda := range lambdas {
		f.reg.forgetLambda(lambda, endpoint)
	}
	if len(lambdas) == 0 {
		return
	}

	var failed []string
	for routerEdgeServer, forwardingEndpoint := range f.reg.allRouters() {
		if !removeRoutes(ctx, f.client, forwardingEndpoint, endpoint, lambdas) {
			failed = append(failed, routerEdgeServer)
		}
	}
	for _, bad := range failed {
		f.removeRouterLocked(bad)
	}
}

func (f *Flat) removeRouterLocked(edgeServer string) {
	f.reg.removeRouter(edgeServer)
	logrus.WithField("router", edgeServer).Info("flat controller: router removed")
}

// Computers snapshots the currently known computers and their containers.
func (f *Flat) Computers() map[string]transport.ContainerList {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]transport.ContainerList, len(f.reg.computers))
	for k, v := range f.reg.computers {
		out[k] = v
	}
	return out
}

// Routers snapshots the currently known routers.
func (f *Flat) Routers() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.reg.routers))
	for k, v := range f.reg.routers {
		out[k] = v
	}
	return out
}
