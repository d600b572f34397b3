package domain

import (
	"fmt"
	"strings"
	"time"
)

type EndpointID int64

// Kind selects how an endpoint is probed.
type Kind string

const (
	KindHTTP Kind = "http"
	KindTCP  Kind = "tcp"
	KindDNS  Kind = "dns"
)

// DefaultTCPPort is used when a tcp endpoint does not name a port.
const DefaultTCPPort = 80

type Endpoint struct {
	ID           EndpointID `json:"id"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Kind         Kind       `json:"kind"`
	Port         int        `json:"port,omitempty"`
	Enabled      bool       `json:"enabled"`
	DisplayOrder int        `json:"display_order"`
	CreatedAt    time.Time  `json:"created_at"`
}

// InferKind guesses the probe kind from the address when the caller did not
// pick one: URLs are probed over HTTP, everything else is a plain TCP connect.
func InferKind(address string) Kind {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return KindHTTP
	}
	return KindTCP
}

func (k Kind) Valid() bool {
	switch k {
	case KindHTTP, KindTCP, KindDNS:
		return true
	}
	return false
}

// Validate checks the fields an operator controls. The store fills in
// ID and CreatedAt.
func (e *Endpoint) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("endpoint name must not be empty")
	}
	if strings.TrimSpace(e.Address) == "" {
		return fmt.Errorf("endpoint address must not be empty")
	}
	if e.Kind == "" {
		e.Kind = InferKind(e.Address)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown endpoint kind %q", e.Kind)
	}
	if e.Kind == KindHTTP && !strings.Contains(e.Address, "://") {
		return fmt.Errorf("http endpoint address must be a URL")
	}
	if e.Port < 0 || e.Port > 65535 {
		return fmt.Errorf("port %d out of range", e.Port)
	}
	return nil
}
