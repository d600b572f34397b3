package repo

import (
	"context"
	"errors"
	"time"

	"github.com/pingdeck/pingdeck/internal/domain"
)

// Ports (interfaces) — swap in any storage adapter.

var (
	// ErrNotFound is returned for operations on an unknown endpoint id.
	ErrNotFound = errors.New("endpoint not found")
	// ErrNoResults means an endpoint has no probe history yet.
	ErrNoResults = errors.New("no probe results")
	// ErrDuplicateAddress means the address is already registered.
	ErrDuplicateAddress = errors.New("address already registered")
)

// EndpointPatch carries a partial update; nil fields are left alone.
type EndpointPatch struct {
	Name         *string
	Address      *string
	Kind         *domain.Kind
	Port         *int
	Enabled      *bool
	DisplayOrder *int
}

// OrderItem assigns a display position to one endpoint.
type OrderItem struct {
	ID           domain.EndpointID `json:"id"`
	DisplayOrder int               `json:"display_order"`
}

type EndpointStore interface {
	Create(ctx context.Context, e *domain.Endpoint) error
	List(ctx context.Context) ([]domain.Endpoint, error)
	ListEnabled(ctx context.Context) ([]domain.Endpoint, error)
	Get(ctx context.Context, id domain.EndpointID) (*domain.Endpoint, error)
	Update(ctx context.Context, id domain.EndpointID, p EndpointPatch) (*domain.Endpoint, error)
	// Delete removes the endpoint and cascades to its probe history.
	Delete(ctx context.Context, id domain.EndpointID) error
	Reorder(ctx context.Context, items []OrderItem) error
}

// StatusRow is the most recent probe of one endpoint, joined for the
// status page.
type StatusRow struct {
	EndpointID domain.EndpointID `json:"endpoint_id"`
	Up         bool              `json:"up"`
	LatencyMS  *float64          `json:"latency_ms"`
	Reason     string            `json:"reason,omitempty"`
	CheckedAt  time.Time         `json:"checked_at"`
}

type ResultStore interface {
	Append(ctx context.Context, r *domain.ProbeResult) error
	// Latest returns ErrNoResults when the endpoint has no history.
	Latest(ctx context.Context, id domain.EndpointID) (*domain.ProbeResult, error)
	// History returns results with CheckedAt >= since, newest first.
	History(ctx context.Context, id domain.EndpointID, since time.Time) ([]domain.ProbeResult, error)
	// UptimePercent returns the percentage of up results since the given
	// time and the sample count. Zero samples means "no data", never a
	// division error.
	UptimePercent(ctx context.Context, id domain.EndpointID, since time.Time) (float64, int, error)
	Stats(ctx context.Context, id domain.EndpointID) (*domain.Stats, error)
	// LatestAll returns one row per endpoint that has any history.
	LatestAll(ctx context.Context) ([]StatusRow, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
