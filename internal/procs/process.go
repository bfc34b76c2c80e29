// Package procs inspects and terminates local processes.
package procs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"devstack/pkg/logging"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultKillWait     = 2 * time.Second
	// startTolerance absorbs the second granularity of the kernel boot time
	// that process creation times are derived from.
	startTolerance = 2 * time.Second
)

// ErrStillRunning is returned when a process survives SIGKILL within the wait period.
var ErrStillRunning = errors.New("process still running after kill")

// Identity is what was recorded about a process when it was launched.
// A pid alone is not enough: after the process exits the kernel may hand the
// same pid to an unrelated process.
type Identity struct {
	PID       int
	StartedAt time.Time
	Command   []string
}

// Controller checks and stops processes by pid.
type Controller interface {
	// Alive reports whether pid refers to a running, non-zombie process.
	Alive(ctx context.Context, pid int) bool
	// Owns reports whether id.PID is alive and still the process id describes.
	Owns(ctx context.Context, id Identity) bool
	// Terminate sends SIGTERM, waits up to grace, then SIGKILL. A process that is
	// already gone counts as terminated.
	Terminate(ctx context.Context, pid int, grace time.Duration) error
	// Listeners returns the pids listening on a local TCP port.
	Listeners(ctx context.Context, port int) ([]int, error)
}

// OSController implements Controller for the local host.
type OSController struct {
	PollInterval time.Duration
	KillWait     time.Duration
}

// NewOSController returns an OSController with default timings.
func NewOSController() *OSController {
	return &OSController{PollInterval: defaultPollInterval, KillWait: defaultKillWait}
}

// Alive implements Controller.
func (c *OSController) Alive(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return false
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	status, err := p.StatusWithContext(ctx)
	if err == nil && slices.Contains(status, process.Zombie) {
		return false
	}
	return true
}

// Owns implements Controller. The creation time of the process must match
// id.StartedAt; when it cannot be read the executable name is compared with
// id.Command instead. An identity with neither is trusted on the pid alone.
func (c *OSController) Owns(ctx context.Context, id Identity) bool {
	if !c.Alive(ctx, id.PID) {
		return false
	}
	p, err := process.NewProcessWithContext(ctx, int32(id.PID))
	if err != nil {
		return false
	}

	if !id.StartedAt.IsZero() {
		if ms, err := p.CreateTimeWithContext(ctx); err == nil {
			drift := time.UnixMilli(ms).Sub(id.StartedAt)
			if drift < 0 {
				drift = -drift
			}
			if drift > startTolerance {
				logging.Debug("Procs", "PID %d was created at %s, not %s", id.PID, time.UnixMilli(ms).UTC().Format(time.RFC3339), id.StartedAt.UTC().Format(time.RFC3339))
				return false
			}
			return true
		}
	}

	if len(id.Command) > 0 {
		argv, err := p.CmdlineSliceWithContext(ctx)
		if err != nil || len(argv) == 0 {
			return false
		}
		return filepath.Base(argv[0]) == filepath.Base(id.Command[0])
	}
	return id.StartedAt.IsZero()
}

// Terminate implements Controller. Signals go to the process group first so that
// children spawned by the service stop with it.
func (c *OSController) Terminate(ctx context.Context, pid int, grace time.Duration) error {
	if !c.Alive(ctx, pid) {
		logging.Debug("Procs", "PID %d already gone", pid)
		return nil
	}

	if err := signal(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		logging.Warn("Procs", "SIGTERM to PID %d failed: %v", pid, err)
	}
	if c.waitGone(ctx, pid, grace) {
		logging.Debug("Procs", "PID %d exited after SIGTERM", pid)
		return nil
	}

	logging.Warn("Procs", "PID %d did not exit within %s, sending SIGKILL", pid, grace)
	if err := signal(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill PID %d: %w", pid, err)
	}
	if c.waitGone(ctx, pid, c.killWait()) {
		return nil
	}
	return fmt.Errorf("PID %d: %w", pid, ErrStillRunning)
}

// signal tries the process group led by pid, then the pid alone.
func signal(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	return syscall.Kill(pid, sig)
}

func (c *OSController) waitGone(ctx context.Context, pid int, d time.Duration) bool {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()

	for {
		if !c.Alive(ctx, pid) {
			return true
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			return !c.Alive(ctx, pid)
		case <-ctx.Done():
			return false
		}
	}
}

func (c *OSController) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return defaultPollInterval
	}
	return c.PollInterval
}

func (c *OSController) killWait() time.Duration {
	if c.KillWait <= 0 {
		return defaultKillWait
	}
	return c.KillWait
}
