package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pingdeck/pingdeck/internal/domain"
)

// TCPChecker probes host[:port] endpoints with a plain connect. The
// connection is closed as soon as it is established; latency is the
// dial time.
type TCPChecker struct {
	Dialer *net.Dialer
}

func NewTCPChecker() *TCPChecker {
	return &TCPChecker{Dialer: &net.Dialer{}}
}

func (t *TCPChecker) Check(ctx context.Context, ep domain.Endpoint) Outcome {
	addr := dialAddr(ep)
	start := time.Now()
	conn, err := t.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return down(classify(err))
	}
	_ = conn.Close()
	return up(start, "tcp_connect")
}

// dialAddr resolves the host:port to dial. An explicit Port wins; an
// address without one falls back to the default port.
func dialAddr(ep domain.Endpoint) string {
	host := ep.Address
	if h, _, err := net.SplitHostPort(ep.Address); err == nil {
		if ep.Port == 0 {
			return ep.Address
		}
		host = h
	}
	port := ep.Port
	if port == 0 {
		port = domain.DefaultTCPPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
