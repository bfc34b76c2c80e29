package ports

import (
	"context"
	"net"
	"strconv"
	"time"
)

const defaultProbeTimeout = 250 * time.Millisecond

// Prober tells whether a TCP port is currently bound on a host.
type Prober interface {
	InUse(ctx context.Context, host string, port int) bool
}

// TCPProber checks a port by trying to bind it and by dialing it.
// Both operations are bounded by Timeout.
type TCPProber struct {
	Timeout time.Duration
}

// NewTCPProber returns a TCPProber; a zero timeout selects the default.
func NewTCPProber(timeout time.Duration) TCPProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return TCPProber{Timeout: timeout}
}

// InUse reports true when the port cannot be bound or accepts a connection.
func (p TCPProber) InUse(ctx context.Context, host string, port int) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return true
	}
	_ = ln.Close()

	return p.Listening(ctx, host, port)
}

// Listening reports whether something accepts connections on host:port.
func (p TCPProber) Listening(ctx context.Context, host string, port int) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := net.Dialer{}
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
