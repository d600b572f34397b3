package probe

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/pingdeck/pingdeck/internal/domain"
)

// Outcome is what a single probe observed. LatencyMS is nil unless the
// endpoint was up; Reason classifies failures (or carries the HTTP
// status line on success).
type Outcome struct {
	Up        bool
	LatencyMS *float64
	Reason    string
}

// Checker performs one probe of one endpoint. Implementations must
// honor ctx for cancellation and deadlines; a single invocation never
// retries.
type Checker interface {
	Check(ctx context.Context, ep domain.Endpoint) Outcome
}

func up(start time.Time, reason string) Outcome {
	lat := float64(time.Since(start).Microseconds()) / 1000.0
	return Outcome{Up: true, LatencyMS: &lat, Reason: reason}
}

func down(reason string) Outcome {
	return Outcome{Up: false, Reason: reason}
}

// classify maps transport errors onto the reason vocabulary recorded in
// history. These are expected data, not faults.
func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns_error"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "io_error"
}
