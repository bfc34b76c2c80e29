package procs

import (
	"context"
	"fmt"
	"sort"

	"github.com/shirou/gopsutil/v4/net"
)

const statusListen = "LISTEN"

// connections is swapped in tests.
var connections = net.ConnectionsWithContext

// Listeners implements Controller. Only processes visible to the current user
// are reported.
func (c *OSController) Listeners(ctx context.Context, port int) ([]int, error) {
	conns, err := connections(ctx, "tcp")
	if err != nil {
		return nil, fmt.Errorf("list tcp connections: %w", err)
	}
	return listenersOn(conns, port), nil
}

func listenersOn(conns []net.ConnectionStat, port int) []int {
	seen := make(map[int]bool)
	var pids []int
	for _, conn := range conns {
		if conn.Status != statusListen || int(conn.Laddr.Port) != port || conn.Pid <= 0 {
			continue
		}
		pid := int(conn.Pid)
		if !seen[pid] {
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids
}
