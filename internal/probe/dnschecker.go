package probe

import (
	"context"
	"strings"

	"github.com/miekg/dns"

	"github.com/pingdeck/pingdeck/internal/domain"
)

// DNSChecker probes name endpoints by asking a resolver for an A
// record. NOERROR with at least one answer is up; latency is the query
// round trip.
type DNSChecker struct {
	Resolver string // host:port of the DNS server
	Client   *dns.Client
}

func NewDNSChecker(resolver string) *DNSChecker {
	return &DNSChecker{
		Resolver: resolver,
		Client:   &dns.Client{},
	}
}

func (d *DNSChecker) Check(ctx context.Context, ep domain.Endpoint) Outcome {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(ep.Address), dns.TypeA)
	msg.RecursionDesired = true

	resp, rtt, err := d.Client.ExchangeContext(ctx, msg, d.Resolver)
	if err != nil {
		return down(classify(err))
	}
	if resp.Rcode != dns.RcodeSuccess {
		return down("dns_" + strings.ToLower(dns.RcodeToString[resp.Rcode]))
	}
	if len(resp.Answer) == 0 {
		return down("dns_no_answer")
	}
	lat := float64(rtt.Microseconds()) / 1000.0
	return Outcome{Up: true, LatencyMS: &lat, Reason: "dns_resolves"}
}
