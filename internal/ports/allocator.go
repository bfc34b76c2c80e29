// Package ports resolves preferred service ports to free ones.
//
// Allocation probes a port and hands it out without reserving it. Another
// process can bind the port between the probe and the service's own bind; this
// race is a known limitation of probe-based allocation on a development host.
package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"devstack/pkg/logging"
)

const maxPort = 65535

// ErrPortAllocationExhausted is returned when no free port was found within the
// attempt budget. It is fatal for the affected service only.
var ErrPortAllocationExhausted = errors.New("port allocation exhausted")

// Request asks for a port for one service.
type Request struct {
	Service   string
	Preferred int
}

// Assignment is the outcome of one Request.
type Assignment struct {
	Service   string
	Preferred int
	Port      int
	Err       error
}

// Shifted reports whether the service did not get its preferred port.
func (a Assignment) Shifted() bool {
	return a.Err == nil && a.Port != a.Preferred
}

// Allocator hands out ports, remembering what it already handed out during
// this run so that no two services receive the same port.
type Allocator struct {
	mu          sync.Mutex
	host        string
	prober      Prober
	maxAttempts int
	claimed     map[int]string
}

// NewAllocator creates an Allocator probing host with prober.
// maxAttempts bounds how many consecutive ports are tried per service.
func NewAllocator(host string, prober Prober, maxAttempts int) *Allocator {
	if prober == nil {
		prober = NewTCPProber(0)
	}
	return &Allocator{
		host:        host,
		prober:      prober,
		maxAttempts: maxAttempts,
		claimed:     make(map[int]string),
	}
}

// Allocate returns the first port at or above preferred that is neither bound
// on the host nor already handed out by this allocator.
func (a *Allocator) Allocate(ctx context.Context, service string, preferred int) (int, error) {
	if preferred <= 0 || preferred > maxPort {
		return 0, fmt.Errorf("service %s: invalid preferred port %d", service, preferred)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	port := preferred
	for attempt := 0; attempt < a.maxAttempts && port <= maxPort; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if owner, taken := a.claimed[port]; taken {
			logging.Debug("Ports", "Port %d already assigned to %s, trying next for %s", port, owner, service)
			port++
			continue
		}
		if a.prober.InUse(ctx, a.host, port) {
			logging.Debug("Ports", "Port %d is busy, trying next for %s", port, service)
			port++
			continue
		}
		a.claimed[port] = service
		if port != preferred {
			logging.Info("Ports", "Port %d busy for %s, using %d", preferred, service, port)
		} else {
			logging.Debug("Ports", "Allocated preferred port %d for %s", port, service)
		}
		return port, nil
	}

	return 0, fmt.Errorf("service %s: %w after %d attempts from port %d", service, ErrPortAllocationExhausted, a.maxAttempts, preferred)
}

// Claim marks port as taken by service without probing it, so that a port held
// by an already running service is never handed out again.
func (a *Allocator) Claim(service string, port int) {
	if port <= 0 || port > maxPort {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.claimed[port] = service
}

// AllocateAll allocates every request in order before anything is launched.
// A failure for one service does not stop allocation for the others.
func (a *Allocator) AllocateAll(ctx context.Context, requests []Request) []Assignment {
	assignments := make([]Assignment, 0, len(requests))
	for _, req := range requests {
		port, err := a.Allocate(ctx, req.Service, req.Preferred)
		if err != nil {
			logging.Error("Ports", err, "Failed to allocate port for %s", req.Service)
		}
		assignments = append(assignments, Assignment{
			Service:   req.Service,
			Preferred: req.Preferred,
			Port:      port,
			Err:       err,
		})
	}
	return assignments
}

// Claimed returns a copy of the ports handed out so far.
func (a *Allocator) Claimed() map[int]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]string, len(a.claimed))
	for port, svc := range a.claimed {
		out[port] = svc
	}
	return out
}
