package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEndpoint_JSONRoundTrip(t *testing.T) {
	want := Endpoint{
		ID:        EndpointID(7),
		Name:      "example",
		Address:   "https://example.com",
		Kind:      KindHTTP,
		Enabled:   true,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Endpoint
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != want.ID || got.Address != want.Address || got.Kind != want.Kind || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("mismatch after round-trip:\nwant=%+v\ngot =%+v", want, got)
	}
}

func TestProbeResult_NilLatencyOmittedForDown(t *testing.T) {
	r := ProbeResult{EndpointID: 1, Up: false, Reason: "timeout", CheckedAt: time.Now().UTC()}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["latency_ms"] != nil {
		t.Fatalf("down result should carry null latency, got %v", got["latency_ms"])
	}
}

func TestInferKind(t *testing.T) {
	cases := map[string]Kind{
		"https://example.com":  KindHTTP,
		"http://10.0.0.1:8080": KindHTTP,
		"db.internal:5432":     KindTCP,
		"example.com":          KindTCP,
	}
	for addr, want := range cases {
		if got := InferKind(addr); got != want {
			t.Errorf("InferKind(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestEndpoint_Validate(t *testing.T) {
	e := Endpoint{Name: "db", Address: "db.internal", Port: 5432}
	if err := e.Validate(); err != nil {
		t.Fatalf("valid endpoint rejected: %v", err)
	}
	if e.Kind != KindTCP {
		t.Fatalf("kind should be inferred as tcp, got %q", e.Kind)
	}

	bad := []Endpoint{
		{Name: "", Address: "https://x.com"},
		{Name: "x", Address: ""},
		{Name: "x", Address: "https://x.com", Kind: "icmp"},
		{Name: "x", Address: "example.com", Kind: KindHTTP},
		{Name: "x", Address: "example.com", Port: 70000},
	}
	for i, e := range bad {
		if err := e.Validate(); err == nil {
			t.Errorf("case %d: want validation error, got nil", i)
		}
	}
}
