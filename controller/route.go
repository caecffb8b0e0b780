package controller

import (
	"context"

	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
)

// RouteEntry is one forwarding-table row an installer pushes to a router.
type RouteEntry struct {
	Lambda   string
	Endpoint string
	Weight   float64
	Final    bool
}

// changeRoutes installs or updates entries on the router reachable at
// configEndpoint. It reports false, logging the failure, on the first
// entry the router rejects or fails to reach — per the original installer
// contract, that is the caller's cue to drop the router entirely.
func changeRoutes(ctx context.Context, client transport.RouterConfigClient, configEndpoint string, entries []RouteEntry) bool {
	for _, e := range entries {
		err := client.Configure(ctx, configEndpoint, transport.ConfigureRequest{
			Action:   transport.ActionChange,
			Function: e.Lambda,
			Endpoint: e.Endpoint,
			Weight:   e.Weight,
			Final:    e.Final,
		})
		if err != nil {
			logrus.WithError(err).WithField("router", configEndpoint).Warn("controller: failed to change routes")
			return false
		}
	}
	return true
}

// removeRoutes removes the destination endpoint from each of lambdas'
// entries on the router reachable at configEndpoint.
func removeRoutes(ctx context.Context, client transport.RouterConfigClient, configEndpoint, destination string, lambdas []string) bool {
	for _, lambda := range lambdas {
		err := client.Configure(ctx, configEndpoint, transport.ConfigureRequest{
			Action:   transport.ActionRemove,
			Function: lambda,
			Endpoint: destination,
		})
		if err != nil {
			logrus.WithError(err).WithField("router", configEndpoint).Warn("controller: failed to remove routes")
			return false
		}
	}
	return true
}

// flushRoutes clears every forwarding-table entry on the router reachable
// at configEndpoint.
func flushRoutes(ctx context.Context, client transport.RouterConfigClient, configEndpoint string) bool {
	err := client.Configure(ctx, configEndpoint, transport.ConfigureRequest{Action: transport.ActionFlush})
	if err != nil {
		logrus.WithError(err).WithField("router", configEndpoint).Warn("controller: failed to flush routes")
		return false
	}
	return true
}
