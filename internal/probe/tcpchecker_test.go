package probe

import (
	"context"
	"net"
	"testing"

	"github.com/pingdeck/pingdeck/internal/domain"
)

func TestTCPChecker_Up(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	chk := NewTCPChecker()
	out := chk.Check(context.Background(), domain.Endpoint{Address: ln.Addr().String(), Kind: domain.KindTCP})
	if !out.Up {
		t.Fatalf("want up, got %+v", out)
	}
	if out.LatencyMS == nil {
		t.Fatal("up result must carry latency")
	}
}

func TestTCPChecker_Refused(t *testing.T) {
	// Grab a free port, then close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	chk := NewTCPChecker()
	out := chk.Check(context.Background(), domain.Endpoint{Address: addr, Kind: domain.KindTCP})
	if out.Up {
		t.Fatalf("want down, got %+v", out)
	}
	if out.Reason != "connection_refused" {
		t.Fatalf("want connection_refused, got %q", out.Reason)
	}
	if out.LatencyMS != nil {
		t.Fatal("down result must not carry latency")
	}
}

func TestDialAddr(t *testing.T) {
	cases := []struct {
		ep   domain.Endpoint
		want string
	}{
		{domain.Endpoint{Address: "db.internal:5432"}, "db.internal:5432"},
		{domain.Endpoint{Address: "db.internal"}, "db.internal:80"},
		{domain.Endpoint{Address: "db.internal", Port: 6379}, "db.internal:6379"},
		{domain.Endpoint{Address: "db.internal:5432", Port: 6379}, "db.internal:6379"},
	}
	for _, c := range cases {
		if got := dialAddr(c.ep); got != c.want {
			t.Errorf("dialAddr(%+v) = %q, want %q", c.ep, got, c.want)
		}
	}
}
