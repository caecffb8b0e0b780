package transport

import (
	"context"
	"errors"

	"github.com/ccicconetti/serverlessedge/entry"
)

// ErrTransportFailure wraps any failure to reach a peer: a dial error, a
// timeout, or a non-OK application-level response where one was not
// expected. The controller reacts to it by dropping the offending peer
// and scheduling a reset; the router surfaces it upstream as a transient
// invocation error.
var ErrTransportFailure = errors.New("transport: failed to reach peer")

// LambdaClient is what a router/dispatcher uses to forward a request to a
// computer or to the next router. Implementations own the concrete
// transport (HTTP, gRPC, in-process, ...); this package only defines the
// contract.
type LambdaClient interface {
	Invoke(ctx context.Context, endpoint string, req *LambdaRequest) (*LambdaResponse, error)
}

// ControllerClient is what a computer or router uses to announce itself
// to, or be removed from, a controller.
type ControllerClient interface {
	AnnounceComputer(ctx context.Context, endpoint string, containers ContainerList) error
	AnnounceRouter(ctx context.Context, endpoint, configEndpoint string) error
	RemoveComputer(ctx context.Context, endpoint string) error
}

// ConfigureAction selects the router-configuration operation carried by a
// ConfigureRequest.
type ConfigureAction int

const (
	ActionFlush ConfigureAction = iota
	ActionChange
	ActionRemove
)

// ConfigureRequest is the router configuration envelope a controller
// sends to a router's forwarding-table server.
type ConfigureRequest struct {
	Action   ConfigureAction
	Function string
	Endpoint string
	Weight   float64
	Final    bool
}

// RouterConfigClient is what a controller uses to push forwarding-table
// changes to a router, and to inspect its current tables.
type RouterConfigClient interface {
	Configure(ctx context.Context, configEndpoint string, req ConfigureRequest) error
	GetNumTables(ctx context.Context, configEndpoint string) (int, error)
	GetTable(ctx context.Context, configEndpoint string, id int) (map[string][]entry.Destination, error)
}
