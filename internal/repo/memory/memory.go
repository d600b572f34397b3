// Package memory is the default store when no DATABASE_URL is set.
// Everything lives behind one RWMutex; probe history is kept per
// endpoint in insertion order, which is also temporal order.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pingdeck/pingdeck/internal/domain"
	"github.com/pingdeck/pingdeck/internal/repo"
)

type Store struct {
	mu           sync.RWMutex
	endpoints    map[domain.EndpointID]*domain.Endpoint
	results      map[domain.EndpointID][]domain.ProbeResult
	nextID       int64
	nextResultID int64
}

func New() *Store {
	return &Store{
		endpoints: make(map[domain.EndpointID]*domain.Endpoint),
		results:   make(map[domain.EndpointID][]domain.ProbeResult),
	}
}

var (
	_ repo.EndpointStore = (*Store)(nil)
	_ repo.ResultStore   = (*Store)(nil)
)

// ---- EndpointStore ----

func (m *Store) Create(ctx context.Context, e *domain.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.endpoints {
		if strings.EqualFold(existing.Address, e.Address) {
			return repo.ErrDuplicateAddress
		}
	}
	m.nextID++
	e.ID = domain.EndpointID(m.nextID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	m.endpoints[e.ID] = &cp
	return nil
}

func (m *Store) List(ctx context.Context) ([]domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(false), nil
}

func (m *Store) ListEnabled(ctx context.Context) ([]domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(true), nil
}

func (m *Store) listLocked(enabledOnly bool) []domain.Endpoint {
	out := make([]domain.Endpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		if enabledOnly && !e.Enabled {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Store) Get(ctx context.Context, id domain.EndpointID) (*domain.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.endpoints[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Store) Update(ctx context.Context, id domain.EndpointID, p repo.EndpointPatch) (*domain.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.endpoints[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if p.Address != nil {
		for other, existing := range m.endpoints {
			if other != id && strings.EqualFold(existing.Address, *p.Address) {
				return nil, repo.ErrDuplicateAddress
			}
		}
		e.Address = *p.Address
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Kind != nil {
		e.Kind = *p.Kind
	}
	if p.Port != nil {
		e.Port = *p.Port
	}
	if p.Enabled != nil {
		e.Enabled = *p.Enabled
	}
	if p.DisplayOrder != nil {
		e.DisplayOrder = *p.DisplayOrder
	}
	cp := *e
	return &cp, nil
}

func (m *Store) Delete(ctx context.Context, id domain.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.endpoints, id)
	delete(m.results, id)
	return nil
}

func (m *Store) Reorder(ctx context.Context, items []repo.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		if e, ok := m.endpoints[it.ID]; ok {
			e.DisplayOrder = it.DisplayOrder
		}
	}
	return nil
}

// ---- ResultStore ----

func (m *Store) Append(ctx context.Context, r *domain.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[r.EndpointID]; !ok {
		return repo.ErrNotFound
	}
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	m.nextResultID++
	r.ID = m.nextResultID
	m.results[r.EndpointID] = append(m.results[r.EndpointID], *r)
	return nil
}

func (m *Store) Latest(ctx context.Context, id domain.EndpointID) (*domain.ProbeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs := m.results[id]
	if len(rs) == 0 {
		return nil, repo.ErrNoResults
	}
	cp := rs[len(rs)-1]
	return &cp, nil
}

func (m *Store) History(ctx context.Context, id domain.EndpointID, since time.Time) ([]domain.ProbeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs := m.results[id]
	out := make([]domain.ProbeResult, 0, len(rs))
	for i := len(rs) - 1; i >= 0; i-- { // newest first
		if rs[i].CheckedAt.Before(since) {
			continue
		}
		out = append(out, rs[i])
	}
	return out, nil
}

func (m *Store) UptimePercent(ctx context.Context, id domain.EndpointID, since time.Time) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total, upCount int
	for _, r := range m.results[id] {
		if r.CheckedAt.Before(since) {
			continue
		}
		total++
		if r.Up {
			upCount++
		}
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(upCount) / float64(total) * 100, total, nil
}

func (m *Store) Stats(ctx context.Context, id domain.EndpointID) (*domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.endpoints[id]; !ok {
		return nil, repo.ErrNotFound
	}
	st := &domain.Stats{EndpointID: id}
	var upCount, recent, recentUp int64
	var latSum float64
	var latN int64
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	for _, r := range m.results[id] {
		st.TotalChecks++
		if r.Up {
			upCount++
		}
		if r.LatencyMS != nil {
			latSum += *r.LatencyMS
			latN++
		}
		if !r.CheckedAt.Before(cutoff) {
			recent++
			if r.Up {
				recentUp++
			}
		}
	}
	if st.TotalChecks > 0 {
		st.UptimePercent = float64(upCount) / float64(st.TotalChecks) * 100
	}
	if latN > 0 {
		avg := latSum / float64(latN)
		st.AvgLatencyMS = &avg
	}
	if recent > 0 {
		st.Last24hUptime = float64(recentUp) / float64(recent) * 100
	}
	return st, nil
}

func (m *Store) LatestAll(ctx context.Context) ([]repo.StatusRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]repo.StatusRow, 0, len(m.results))
	for id, rs := range m.results {
		if len(rs) == 0 {
			continue
		}
		last := rs[len(rs)-1]
		out = append(out, repo.StatusRow{
			EndpointID: id,
			Up:         last.Up,
			LatencyMS:  last.LatencyMS,
			Reason:     last.Reason,
			CheckedAt:  last.CheckedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndpointID < out[j].EndpointID })
	return out, nil
}

func (m *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, rs := range m.results {
		kept := rs[:0]
		for _, r := range rs {
			if r.CheckedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		m.results[id] = kept
	}
	return removed, nil
}
