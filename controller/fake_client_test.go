package controller

import (
	"context"
	"sync"

	"github.com/ccicconetti/serverlessedge/entry"
	"github.com/ccicconetti/serverlessedge/transport"
)

type fakeRouterClient struct {
	mu    sync.Mutex
	calls map[string][]transport.ConfigureRequest
	fail  map[string]bool
}

func newFakeRouterClient() *fakeRouterClient {
	return &fakeRouterClient{
		calls: make(map[string][]transport.ConfigureRequest),
		fail:  make(map[string]bool),
	}
}

func (f *fakeRouterClient) Configure(_ context.Context, configEndpoint string, req transport.ConfigureRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[configEndpoint] {
		return transport.ErrTransportFailure
	}
	f.calls[configEndpoint] = append(f.calls[configEndpoint], req)
	return nil
}

func (f *fakeRouterClient) GetNumTables(context.Context, string) (int, error) { return 2, nil }

func (f *fakeRouterClient) GetTable(context.Context, string, int) (map[string][]entry.Destination, error) {
	return nil, nil
}

func (f *fakeRouterClient) callsFor(configEndpoint string) []transport.ConfigureRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.ConfigureRequest, len(f.calls[configEndpoint]))
	copy(out, f.calls[configEndpoint])
	return out
}
