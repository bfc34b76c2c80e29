// Package supervisor runs the start pipeline for all configured services:
// allocate every port, synthesize and publish the runtime document, then
// launch and record each service in configuration order.
package supervisor

import (
	"context"
	"errors"
	"fmt"

	"devstack/internal/config"
	"devstack/internal/launcher"
	"devstack/internal/ports"
	"devstack/internal/procs"
	"devstack/internal/registry"
	"devstack/internal/runtimeconfig"
	"devstack/pkg/logging"

	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned for a service whose registered process is still alive.
var ErrAlreadyRunning = errors.New("service already running")

// PortAllocator assigns ports to every request before anything launches.
type PortAllocator interface {
	// Claim marks a port as taken without probing it.
	Claim(service string, port int)
	AllocateAll(ctx context.Context, requests []ports.Request) []ports.Assignment
}

// ServiceLauncher starts one service on a resolved port.
type ServiceLauncher interface {
	Launch(ctx context.Context, def config.ServiceDefinition, port int) (launcher.Handle, error)
}

// LivenessChecker reports whether a recorded process is still running.
type LivenessChecker interface {
	Owns(ctx context.Context, id procs.Identity) bool
}

// PortChecker reports whether something accepts connections on host:port.
type PortChecker interface {
	Listening(ctx context.Context, host string, port int) bool
}

// Supervisor wires the start and status pipelines together.
type Supervisor struct {
	Config    config.DevstackConfig
	Allocator PortAllocator
	Launcher  ServiceLauncher
	Registry  registry.Registry
	Liveness  LivenessChecker
	Ports     PortChecker

	newRunID func() string
}

// New creates a Supervisor for cfg.
func New(cfg config.DevstackConfig, allocator PortAllocator, l ServiceLauncher, reg registry.Registry, live LivenessChecker, checker PortChecker) *Supervisor {
	return &Supervisor{
		Config:    cfg,
		Allocator: allocator,
		Launcher:  l,
		Registry:  reg,
		Liveness:  live,
		Ports:     checker,
		newRunID:  uuid.NewString,
	}
}

// ServiceResult is the start outcome for one service.
type ServiceResult struct {
	Service   string
	Preferred int
	Port      int
	PID       int
	LogFile   string
	Err       error
	// Warnings did not prevent the launch, e.g. a config destination that could not be written.
	Warnings []error
}

// Launched reports whether the service was started by this run.
func (r ServiceResult) Launched() bool {
	return r.Err == nil && r.PID > 0
}

// StartReport collects the outcome of Start.
type StartReport struct {
	RunID    string
	Services []ServiceResult
	Document runtimeconfig.Document
	Publish  runtimeconfig.PublishReport
}

// OK reports whether every configured service was launched.
func (r StartReport) OK() bool {
	return r.Err() == nil
}

// Err joins the per-service failures.
func (r StartReport) Err() error {
	var errs []error
	for _, res := range r.Services {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Service, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Plan is the resolved state of a run before anything launches.
type Plan struct {
	Services []ServiceResult
	Resolved []runtimeconfig.ResolvedService
	Document runtimeconfig.Document
}

// Plan resolves ports and synthesizes the runtime document without launching.
// Services with a live registered process keep their registered port.
func (s *Supervisor) Plan(ctx context.Context) Plan {
	var plan Plan
	var requests []ports.Request
	results := make(map[string]*ServiceResult, len(s.Config.Services))

	plan.Services = make([]ServiceResult, len(s.Config.Services))
	for i, def := range s.Config.Services {
		plan.Services[i] = ServiceResult{Service: def.Name, Preferred: def.Port}
		results[def.Name] = &plan.Services[i]

		if entry, ok := s.running(ctx, def.Name); ok {
			plan.Services[i].Port = entry.Port
			plan.Services[i].PID = entry.PID
			plan.Services[i].LogFile = entry.LogFile
			plan.Services[i].Err = fmt.Errorf("%w (PID %d, port %d)", ErrAlreadyRunning, entry.PID, entry.Port)
			s.Allocator.Claim(def.Name, entry.Port)
			continue
		}
		requests = append(requests, ports.Request{Service: def.Name, Preferred: def.Port})
	}

	for _, a := range s.Allocator.AllocateAll(ctx, requests) {
		res := results[a.Service]
		if a.Err != nil {
			res.Err = a.Err
			continue
		}
		res.Port = a.Port
		if a.Shifted() {
			logging.Info("Supervisor", "Port %d for %s is busy, using %d", a.Preferred, a.Service, a.Port)
		}
	}

	for i, def := range s.Config.Services {
		if plan.Services[i].Port == 0 {
			continue
		}
		plan.Resolved = append(plan.Resolved, runtimeconfig.ResolvedService{Definition: def, Port: plan.Services[i].Port})
	}
	plan.Document = runtimeconfig.Synthesize(s.Config.Host, plan.Resolved, s.Config.Runtime)
	return plan
}

// running returns the registry entry for name when its process is alive.
// A stale or corrupt entry is treated as absent and will be overwritten.
func (s *Supervisor) running(ctx context.Context, name string) (registry.Entry, bool) {
	entry, found, err := s.Registry.Lookup(name)
	if err != nil {
		logging.Warn("Supervisor", "Ignoring registry record for %s: %v", name, err)
		return registry.Entry{}, false
	}
	if !found {
		return registry.Entry{}, false
	}
	if !s.Liveness.Owns(ctx, entry.Process()) {
		logging.Debug("Supervisor", "Registry entry for %s (PID %d) is stale", name, entry.PID)
		return registry.Entry{}, false
	}
	return entry, true
}

// Start allocates, publishes, launches and records every configured service.
// A failure for one service never stops the others.
func (s *Supervisor) Start(ctx context.Context) (StartReport, error) {
	plan := s.Plan(ctx)
	report := StartReport{RunID: s.newRunID(), Services: plan.Services, Document: plan.Document}

	var destinations []runtimeconfig.Destination
	for _, rs := range plan.Resolved {
		for _, p := range rs.Definition.ConfigPaths {
			destinations = append(destinations, runtimeconfig.Destination{Service: rs.Definition.Name, Path: p})
		}
	}
	pub, err := runtimeconfig.Publish(plan.Document, destinations)
	if err != nil {
		return report, fmt.Errorf("encode runtime config: %w", err)
	}
	report.Publish = pub
	publishFailures := pub.FailedServices()

	for i, def := range s.Config.Services {
		res := &report.Services[i]
		if perr, ok := publishFailures[def.Name]; ok {
			res.Warnings = append(res.Warnings, perr)
		}
		if res.Err != nil {
			if !errors.Is(res.Err, ErrAlreadyRunning) {
				logging.Error("Supervisor", res.Err, "Skipping %s", def.Name)
			} else {
				logging.Warn("Supervisor", "Skipping %s: %v", def.Name, res.Err)
			}
			continue
		}

		handle, err := s.Launcher.Launch(ctx, def, res.Port)
		if err != nil {
			res.Err = err
			logging.Error("Supervisor", err, "Failed to launch %s", def.Name)
			continue
		}
		res.PID = handle.PID
		res.LogFile = handle.LogFile

		entry := registry.Entry{
			Name:      def.Name,
			PID:       handle.PID,
			Port:      res.Port,
			RunID:     report.RunID,
			StartedAt: handle.StartedAt,
			Command:   handle.Command,
			LogFile:   handle.LogFile,
		}
		if err := s.Registry.Record(entry); err != nil {
			// The process runs but a later stop can only find it through the port sweep.
			res.Warnings = append(res.Warnings, err)
			logging.Warn("Supervisor", "Could not record %s: %v", def.Name, err)
		}
	}

	if report.OK() {
		logging.Info("Supervisor", "Started %d services (run %s)", len(report.Services), report.RunID)
	}
	return report, nil
}
