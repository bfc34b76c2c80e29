// Package shutdown stops every managed service, first from the lifecycle
// registry and then by sweeping the known ports for leftover listeners.
//
// The sweep always runs, so services started by a previous run whose registry
// entries were lost or never written are still found and stopped.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"devstack/internal/procs"
	"devstack/internal/registry"
	"devstack/pkg/logging"

	"golang.org/x/sync/errgroup"
)

const (
	defaultGracePeriod  = 5 * time.Second
	defaultProbeTimeout = 2 * time.Second
	defaultParallelism  = 8
)

// ErrPortStillInUse is reported when a port still accepts connections after the sweep.
var ErrPortStillInUse = errors.New("port still in use")

// Phase identifies which part of the shutdown produced a result.
type Phase string

const (
	PhaseRegistry Phase = "registry"
	PhaseSweep    Phase = "sweep"
)

// PortChecker reports whether something accepts connections on host:port.
type PortChecker interface {
	Listening(ctx context.Context, host string, port int) bool
}

// Target is a port the sweep inspects, attributed to a service.
type Target struct {
	Service string
	Port    int
}

// ProcessResult is the outcome of terminating one process.
type ProcessResult struct {
	Service string
	PID     int
	Port    int
	Phase   Phase
	Err     error
}

// PortResult is the outcome of sweeping one port.
type PortResult struct {
	Service string
	Port    int
	PIDs    []int
	Err     error
}

// Report collects the outcome of ShutdownAll.
type Report struct {
	Processes []ProcessResult
	Ports     []PortResult
	// Warnings are problems that did not prevent shutdown, such as corrupt registry records.
	Warnings []error
}

// OK reports whether every targeted process is down and every port is free.
func (r Report) OK() bool {
	return r.Err() == nil
}

// Err joins all process and port failures.
func (r Report) Err() error {
	var errs []error
	for _, p := range r.Processes {
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("%s (PID %d): %w", p.Service, p.PID, p.Err))
		}
	}
	for _, p := range r.Ports {
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("%s (port %d): %w", p.Service, p.Port, p.Err))
		}
	}
	return errors.Join(errs...)
}

// FailedServices returns the services with at least one failure, sorted.
func (r Report) FailedServices() []string {
	seen := make(map[string]bool)
	for _, p := range r.Processes {
		if p.Err != nil {
			seen[p.Service] = true
		}
	}
	for _, p := range r.Ports {
		if p.Err != nil {
			seen[p.Service] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Coordinator runs the two shutdown phases.
type Coordinator struct {
	Registry     registry.Registry
	Procs        procs.Controller
	Checker      PortChecker
	Host         string
	GracePeriod  time.Duration
	ProbeTimeout time.Duration
	Parallelism  int
}

// ShutdownAll terminates every registered process, then sweeps targets plus
// every port found in the registry. It never stops early; failures are
// collected in the report.
func (c *Coordinator) ShutdownAll(ctx context.Context, targets []Target) Report {
	var report Report

	registered := c.stopRegistered(ctx, &report)
	ports, swept := c.sweep(ctx, mergeTargets(targets, registered))
	report.Ports = ports
	report.Processes = append(report.Processes, swept...)

	if report.OK() {
		logging.Info("Shutdown", "All services stopped")
	} else {
		logging.Warn("Shutdown", "Shutdown incomplete for: %v", report.FailedServices())
	}
	return report
}

// stopRegistered is phase 1. It returns the ports the registry knew about.
func (c *Coordinator) stopRegistered(ctx context.Context, report *Report) []Target {
	snap, err := c.Registry.List()
	if err != nil {
		logging.Warn("Shutdown", "Lifecycle registry unreadable, relying on port sweep: %v", err)
		report.Warnings = append(report.Warnings, err)
		return nil
	}

	for _, corrupt := range snap.Corrupt {
		logging.Warn("Shutdown", "Discarding %v", corrupt)
		report.Warnings = append(report.Warnings, corrupt)
		if err := c.Registry.Forget(corrupt.Name); err != nil {
			logging.Warn("Shutdown", "Could not remove corrupt record %s: %v", corrupt.Name, err)
		}
	}

	var known []Target
	for _, entry := range snap.Entries {
		var termErr error
		if c.Procs.Owns(ctx, entry.Process()) {
			logging.Info("Shutdown", "Stopping %s (PID %d)", entry.Name, entry.PID)
			termErr = c.Procs.Terminate(ctx, entry.PID, c.grace())
			if termErr != nil {
				logging.Error("Shutdown", termErr, "Failed to stop %s", entry.Name)
			}
		} else {
			logging.Info("Shutdown", "%s (PID %d) is no longer running", entry.Name, entry.PID)
		}
		if err := c.Registry.Forget(entry.Name); err != nil {
			logging.Warn("Shutdown", "Could not forget %s: %v", entry.Name, err)
		}
		report.Processes = append(report.Processes, ProcessResult{
			Service: entry.Name,
			PID:     entry.PID,
			Port:    entry.Port,
			Phase:   PhaseRegistry,
			Err:     termErr,
		})
		if entry.Port > 0 {
			known = append(known, Target{Service: entry.Name, Port: entry.Port})
		}
	}
	return known
}

// sweep is phase 2: ports are handled in parallel and each result is kept.
func (c *Coordinator) sweep(ctx context.Context, targets []Target) ([]PortResult, []ProcessResult) {
	results := make([]PortResult, len(targets))
	var mu sync.Mutex
	var extra []ProcessResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism())
	for i, target := range targets {
		g.Go(func() error {
			res, killed := c.sweepPort(gctx, target)
			results[i] = res
			mu.Lock()
			extra = append(extra, killed...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(extra, func(i, j int) bool { return extra[i].Port < extra[j].Port })
	return results, extra
}

func (c *Coordinator) sweepPort(ctx context.Context, target Target) (PortResult, []ProcessResult) {
	res := PortResult{Service: target.Service, Port: target.Port}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout())
	pids, err := c.Procs.Listeners(probeCtx, target.Port)
	cancel()
	if err != nil {
		logging.Warn("Shutdown", "Listener lookup for port %d failed: %v", target.Port, err)
	}
	res.PIDs = pids

	var killed []ProcessResult
	for _, pid := range pids {
		logging.Info("Shutdown", "Port %d (%s) held by PID %d, stopping it", target.Port, target.Service, pid)
		termErr := c.Procs.Terminate(ctx, pid, c.grace())
		killed = append(killed, ProcessResult{Service: target.Service, PID: pid, Port: target.Port, Phase: PhaseSweep, Err: termErr})
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.probeTimeout())
	defer cancel()
	if c.Checker.Listening(checkCtx, c.host(), target.Port) {
		res.Err = fmt.Errorf("%w: port %d", ErrPortStillInUse, target.Port)
		if err != nil {
			res.Err = errors.Join(res.Err, err)
		}
		logging.Warn("Shutdown", "Port %d (%s) is still in use", target.Port, target.Service)
	}
	return res, killed
}

// mergeTargets deduplicates by port, keeping the first service name seen.
func mergeTargets(configured, registered []Target) []Target {
	seen := make(map[int]bool)
	var out []Target
	for _, t := range append(append([]Target{}, configured...), registered...) {
		if t.Port <= 0 || seen[t.Port] {
			continue
		}
		seen[t.Port] = true
		out = append(out, t)
	}
	return out
}

func (c *Coordinator) grace() time.Duration {
	if c.GracePeriod < 0 {
		return 0
	}
	if c.GracePeriod == 0 {
		return defaultGracePeriod
	}
	return c.GracePeriod
}

func (c *Coordinator) probeTimeout() time.Duration {
	if c.ProbeTimeout <= 0 {
		return defaultProbeTimeout
	}
	return c.ProbeTimeout
}

func (c *Coordinator) parallelism() int {
	if c.Parallelism <= 0 {
		return defaultParallelism
	}
	return c.Parallelism
}

func (c *Coordinator) host() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}
