package probe

import (
	"context"
	"time"

	"github.com/pingdeck/pingdeck/internal/domain"
)

// Dispatcher routes an endpoint to the checker for its kind.
type Dispatcher struct {
	HTTP Checker
	TCP  Checker
	DNS  Checker
}

func NewDispatcher(timeout time.Duration, dnsResolver string) *Dispatcher {
	return &Dispatcher{
		HTTP: NewHTTPChecker(timeout),
		TCP:  NewTCPChecker(),
		DNS:  NewDNSChecker(dnsResolver),
	}
}

func (d *Dispatcher) Check(ctx context.Context, ep domain.Endpoint) Outcome {
	switch ep.Kind {
	case domain.KindTCP:
		return d.TCP.Check(ctx, ep)
	case domain.KindDNS:
		return d.DNS.Check(ctx, ep)
	default:
		return d.HTTP.Check(ctx, ep)
	}
}
