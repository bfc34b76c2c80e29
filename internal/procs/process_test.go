package procs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	cmd := exec.Command("sleep", "30")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	go func() { _ = cmd.Wait() }()
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return cmd
}

func TestOSController_AliveAndTerminate(t *testing.T) {
	ctx := context.Background()
	c := &OSController{PollInterval: 10 * time.Millisecond, KillWait: time.Second}

	cmd := startSleeper(t)
	pid := cmd.Process.Pid
	require.True(t, c.Alive(ctx, pid))

	require.NoError(t, c.Terminate(ctx, pid, 2*time.Second))
	assert.False(t, c.Alive(ctx, pid))

	// Already gone.
	assert.NoError(t, c.Terminate(ctx, pid, time.Second))
}

func TestOSController_Owns(t *testing.T) {
	ctx := context.Background()
	c := NewOSController()

	cmd := startSleeper(t)
	started := time.Now()
	pid := cmd.Process.Pid

	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{"matching start time", Identity{PID: pid, StartedAt: started}, true},
		{"start time from an earlier process", Identity{PID: pid, StartedAt: started.Add(-48 * time.Hour)}, false},
		{"start time in the future", Identity{PID: pid, StartedAt: started.Add(time.Hour)}, false},
		{"matching command without start time", Identity{PID: pid, Command: []string{"/usr/bin/sleep", "30"}}, true},
		{"other command without start time", Identity{PID: pid, Command: []string{"python3", "main.py"}}, false},
		{"pid only", Identity{PID: pid}, true},
		{"invalid pid", Identity{PID: 0, StartedAt: started}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Owns(ctx, tt.id))
		})
	}
}

func TestOSController_AliveRejectsInvalidPID(t *testing.T) {
	c := NewOSController()
	assert.False(t, c.Alive(context.Background(), 0))
	assert.False(t, c.Alive(context.Background(), -1))
	assert.True(t, c.Alive(context.Background(), os.Getpid()))
}

func TestListenersOn(t *testing.T) {
	conns := []net.ConnectionStat{
		{Status: "LISTEN", Laddr: net.Addr{IP: "127.0.0.1", Port: 7862}, Pid: 300},
		{Status: "LISTEN", Laddr: net.Addr{IP: "::1", Port: 7862}, Pid: 300},
		{Status: "LISTEN", Laddr: net.Addr{IP: "0.0.0.0", Port: 7862}, Pid: 120},
		{Status: "ESTABLISHED", Laddr: net.Addr{IP: "127.0.0.1", Port: 7862}, Pid: 999},
		{Status: "LISTEN", Laddr: net.Addr{IP: "127.0.0.1", Port: 7863}, Pid: 400},
		{Status: "LISTEN", Laddr: net.Addr{IP: "127.0.0.1", Port: 7862}, Pid: 0},
	}
	assert.Equal(t, []int{120, 300}, listenersOn(conns, 7862))
	assert.Empty(t, listenersOn(conns, 9000))
}

func TestOSController_ListenersPropagatesError(t *testing.T) {
	orig := connections
	defer func() { connections = orig }()
	connections = func(ctx context.Context, kind string) ([]net.ConnectionStat, error) {
		return nil, errors.New("permission denied")
	}

	_, err := NewOSController().Listeners(context.Background(), 7862)
	assert.ErrorContains(t, err, "permission denied")
}
