package supervisor

import (
	"context"
	"time"

	"devstack/internal/registry"
)

// ServiceStatus is the observed state of one service.
type ServiceStatus struct {
	Service    string
	Configured bool
	Registered bool
	PID        int
	Port       int
	Alive      bool
	Listening  bool
	RunID      string
	StartedAt  time.Time
	LogFile    string
	Err        error
}

// Status reports every configured service plus registry entries that are no
// longer configured. A service without a registry entry is checked on its
// preferred port.
func (s *Supervisor) Status(ctx context.Context) ([]ServiceStatus, error) {
	snap, err := s.Registry.List()
	if err != nil {
		return nil, err
	}
	entries := make(map[string]registry.Entry, len(snap.Entries))
	for _, e := range snap.Entries {
		entries[e.Name] = e
	}
	corrupt := make(map[string]error, len(snap.Corrupt))
	for _, c := range snap.Corrupt {
		corrupt[c.Name] = c
	}

	var out []ServiceStatus
	seen := make(map[string]bool)
	for _, def := range s.Config.Services {
		seen[def.Name] = true
		st := ServiceStatus{Service: def.Name, Configured: true, Port: def.Port, Err: corrupt[def.Name]}
		if e, ok := entries[def.Name]; ok {
			s.fill(ctx, &st, e)
		} else {
			st.Listening = s.Ports.Listening(ctx, s.Config.Host, def.Port)
		}
		out = append(out, st)
	}
	for _, e := range snap.Entries {
		if seen[e.Name] {
			continue
		}
		st := ServiceStatus{Service: e.Name}
		s.fill(ctx, &st, e)
		out = append(out, st)
	}
	return out, nil
}

func (s *Supervisor) fill(ctx context.Context, st *ServiceStatus, e registry.Entry) {
	st.Registered = true
	st.PID = e.PID
	st.Port = e.Port
	st.RunID = e.RunID
	st.StartedAt = e.StartedAt
	st.LogFile = e.LogFile
	st.Alive = s.Liveness.Owns(ctx, e.Process())
	if e.Port > 0 {
		st.Listening = s.Ports.Listening(ctx, s.Config.Host, e.Port)
	}
}
