package app

import (
	"devstack/internal/config"
	"devstack/internal/gitsync"
	"devstack/internal/launcher"
	"devstack/internal/ports"
	"devstack/internal/procs"
	"devstack/internal/registry"
	"devstack/internal/shutdown"
	"devstack/internal/supervisor"
)

// Services holds the components shared by the commands
type Services struct {
	Config   config.DevstackConfig
	Registry *registry.FileRegistry
	Procs    *procs.OSController
	Prober   ports.TCPProber
}

// InitializeServices creates the components that need no further input.
func InitializeServices(cfg config.DevstackConfig) *Services {
	return &Services{
		Config:   cfg,
		Registry: registry.NewFileRegistry(cfg.StateDir),
		Procs:    procs.NewOSController(),
		Prober:   ports.NewTCPProber(0),
	}
}

// Supervisor returns a supervisor with a fresh port allocator.
func (s *Services) Supervisor() *supervisor.Supervisor {
	allocator := ports.NewAllocator(s.Config.Host, s.Prober, s.Config.MaxPortAttempts)
	return supervisor.New(s.Config, allocator, launcher.New(s.Config.LogDir), s.Registry, s.Procs, s.Prober)
}

// ShutdownCoordinator returns a coordinator over the registry and the process table.
func (s *Services) ShutdownCoordinator() *shutdown.Coordinator {
	return &shutdown.Coordinator{
		Registry:    s.Registry,
		Procs:       s.Procs,
		Checker:     s.Prober,
		Host:        s.Config.Host,
		GracePeriod: s.Config.GracePeriod,
	}
}

// ShutdownTargets lists every configured service port.
func (s *Services) ShutdownTargets() []shutdown.Target {
	targets := make([]shutdown.Target, 0, len(s.Config.Services))
	for _, svc := range s.Config.Services {
		targets = append(targets, shutdown.Target{Service: svc.Name, Port: svc.Port})
	}
	return targets
}

// Synchronizer validates the repository settings and returns a synchronizer.
func (s *Services) Synchronizer() (*gitsync.Synchronizer, error) {
	return gitsync.New(s.Config)
}
