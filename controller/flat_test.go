package controller

import (
	"context"
	"testing"

	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/stretchr/testify/require"
)

func oneContainer(lambda string) transport.ContainerList {
	return transport.ContainerList{Containers: []transport.ContainerDescriptor{{Name: "c", Lambda: lambda}}}
}

// GIVEN a router already known to the controller
// WHEN a computer announces a lambda
// THEN the router receives a final route to the computer.
func TestFlatAnnounceComputerInstallsRouteOnAllRouters(t *testing.T) {
	client := newFakeRouterClient()
	f := NewFlat(client)
	ctx := context.Background()

	f.AnnounceRouter(ctx, "router1:9000", "router1:9100")
	f.AnnounceComputer(ctx, "computer1:8000", oneContainer("l1"))

	calls := client.callsFor("router1:9100")
	require.Len(t, calls, 1)
	require.Equal(t, transport.ActionChange, calls[0].Action)
	require.Equal(t, "l1", calls[0].Function)
	require.Equal(t, "computer1:8000", calls[0].Endpoint)
	require.True(t, calls[0].Final)
}

// GIVEN a computer already known to the controller
// WHEN a new router announces itself
// THEN it is immediately given a route for every known lambda.
func TestFlatAnnounceRouterInstallsKnownLambdas(t *testing.T) {
	client := newFakeRouterClient()
	f := NewFlat(client)
	ctx := context.Background()

	f.AnnounceComputer(ctx, "computer1:8000", oneContainer("l1"))
	f.AnnounceRouter(ctx, "router1:9000", "router1:9100")

	calls := client.callsFor("router1:9100")
	require.Len(t, calls, 1)
	require.Equal(t, "l1", calls[0].Function)
}

// Re-announcing a computer with an identical container list must not
// trigger any router traffic.
func TestFlatReannounceSameContainersIsNoop(t *testing.T) {
	client := newFakeRouterClient()
	f := NewFlat(client)
	ctx := context.Background()

	f.AnnounceRouter(ctx, "router1:9000", "router1:9100")
	f.AnnounceComputer(ctx, "computer1:8000", oneContainer("l1"))
	require.Len(t, client.callsFor("router1:9100"), 1)

	f.AnnounceComputer(ctx, "computer1:8000", oneContainer("l1"))
	require.Len(t, client.callsFor("router1:9100"), 1)
}

// A router that fails to acknowledge a forwarding-table change is dropped
// from the known set.
func TestFlatRouterDroppedOnFailure(t *testing.T) {
	client := newFakeRouterClient()
	client.fail["router1:9100"] = true
	f := NewFlat(client)
	ctx := context.Background()

	f.AnnounceRouter(ctx, "router1:9000", "router1:9100")
	f.AnnounceComputer(ctx, "computer1:8000", oneContainer("l1"))

	require.Empty(t, f.Routers())
}
