package controller

import (
	"context"
	"sync"

	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/sirupsen/logrus"
)

// Installer reacts to computer and router announcements by installing
// forwarding-table routes; Flat and Hier both implement it.
type Installer interface {
	AnnounceComputer(ctx context.Context, endpoint string, containers transport.ContainerList)
	AnnounceRouter(ctx context.Context, computerEndpoint, routerEndpoint string)
	RemoveComputer(ctx context.Context, endpoint string)
}

// Server collects announcements from edge routers and computers and
// forwards each one to every subscribed installer. Its method set matches
// transport.ControllerClient, so it can sit directly behind whatever RPC
// adapter exposes that interface.
type Server struct {
	mu         sync.Mutex
	installers []Installer
}

// NewServer builds a controller server with no installers subscribed.
func NewServer() *Server { return &Server{} }

// Subscribe registers installer to receive every future announcement.
func (s *Server) Subscribe(installer Installer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installers = append(s.installers, installer)
}

// AnnounceComputer forwards the announcement to every subscribed
// installer.
func (s *Server) AnnounceComputer(ctx context.Context, endpoint string, containers transport.ContainerList) error {
	s.apply(func(i Installer) { i.AnnounceComputer(ctx, endpoint, containers) })
	return nil
}

// AnnounceRouter forwards the announcement to every subscribed installer.
func (s *Server) AnnounceRouter(ctx context.Context, computerEndpoint, routerEndpoint string) error {
	s.apply(func(i Installer) { i.AnnounceRouter(ctx, computerEndpoint, routerEndpoint) })
	return nil
}

// RemoveComputer forwards the removal to every subscribed installer.
func (s *Server) RemoveComputer(ctx context.Context, endpoint string) error {
	s.apply(func(i Installer) { i.RemoveComputer(ctx, endpoint) })
	return nil
}

// apply calls f with every subscribed installer, under a snapshot taken
// outside the per-installer call so a slow or reentrant installer cannot
// block Subscribe. A panic raised by one installer is recovered and logged,
// and the remaining installers are still called.
func (s *Server) apply(f func(Installer)) {
	s.mu.Lock()
	installers := make([]Installer, len(s.installers))
	copy(installers, s.installers)
	s.mu.Unlock()

	for _, installer := range installers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("panic", r).Warn("controller: installer failed")
				}
			}()
			f(installer)
		}()
	}
}
