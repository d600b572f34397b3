package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/domain"
	"github.com/pingdeck/pingdeck/internal/probe"
	"github.com/pingdeck/pingdeck/internal/repo"
	"github.com/pingdeck/pingdeck/internal/repo/memory"
)

// slowChecker blocks for delay (or until ctx expires) and reports up.
type slowChecker struct {
	delay time.Duration
	calls atomic.Int64
}

func (s *slowChecker) Check(ctx context.Context, _ domain.Endpoint) probe.Outcome {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
		lat := float64(s.delay.Milliseconds())
		return probe.Outcome{Up: true, LatencyMS: &lat, Reason: "ok"}
	case <-ctx.Done():
		return probe.Outcome{Up: false, Reason: "timeout"}
	}
}

// flakyStore wraps the memory store and fails Append for one endpoint.
type flakyStore struct {
	*memory.Store
	failFor domain.EndpointID
}

func (f *flakyStore) Append(ctx context.Context, r *domain.ProbeResult) error {
	if r.EndpointID == f.failFor {
		return errors.New("disk on fire")
	}
	return f.Store.Append(ctx, r)
}

func seedEndpoints(t *testing.T, s *memory.Store, n int) []domain.Endpoint {
	t.Helper()
	out := make([]domain.Endpoint, 0, n)
	for i := 0; i < n; i++ {
		e := domain.Endpoint{
			Name:    "ep",
			Address: "https://e" + string(rune('a'+i)) + ".example",
			Kind:    domain.KindHTTP,
			Enabled: true,
		}
		if err := s.Create(context.Background(), &e); err != nil {
			t.Fatal(err)
		}
		out = append(out, e)
	}
	return out
}

func TestRunCycle_FanOutIsConcurrent(t *testing.T) {
	store := memory.New()
	const n = 8
	seedEndpoints(t, store, n)

	chk := &slowChecker{delay: 100 * time.Millisecond}
	p := NewPinger(zap.NewNop(), store, store, chk, time.Minute, time.Second, n)

	start := time.Now()
	p.RunCycle(context.Background())
	elapsed := time.Since(start)

	// Serial execution would take n*delay = 800ms.
	if elapsed > 400*time.Millisecond {
		t.Fatalf("cycle took %v, fan-out does not look concurrent", elapsed)
	}
	if got := chk.calls.Load(); got != n {
		t.Fatalf("want %d probes, got %d", n, got)
	}
	rows, err := store.LatestAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != n {
		t.Fatalf("want %d recorded results, got %d", n, len(rows))
	}
}

func TestRunCycle_AppendFailureIsIsolated(t *testing.T) {
	mem := memory.New()
	eps := seedEndpoints(t, mem, 3)
	store := &flakyStore{Store: mem, failFor: eps[1].ID}

	chk := &slowChecker{delay: time.Millisecond}
	p := NewPinger(zap.NewNop(), mem, store, chk, time.Minute, time.Second, 3)
	p.RunCycle(context.Background())

	rows, err := mem.LatestAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("two endpoints should still have results, got %d", len(rows))
	}
	for _, row := range rows {
		if row.EndpointID == eps[1].ID {
			t.Fatal("failed append should have left a gap")
		}
	}
}

func TestRunCycle_ProbeTimeoutRecordsDown(t *testing.T) {
	store := memory.New()
	eps := seedEndpoints(t, store, 1)

	chk := &slowChecker{delay: time.Second}
	p := NewPinger(zap.NewNop(), store, store, chk, time.Minute, 20*time.Millisecond, 1)
	p.RunCycle(context.Background())

	last, err := store.Latest(context.Background(), eps[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if last.Up || last.Reason != "timeout" || last.LatencyMS != nil {
		t.Fatalf("want down/timeout without latency, got %+v", last)
	}
}

func TestRun_SkipsTickWhileCycleRunning(t *testing.T) {
	store := memory.New()
	seedEndpoints(t, store, 1)

	release := make(chan struct{})
	chk := &blockingChecker{release: release}
	p := NewPinger(zap.NewNop(), store, store, chk, 20*time.Millisecond, time.Minute, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Several ticks pass while the first cycle is blocked; only one
	// probe may be in flight.
	time.Sleep(150 * time.Millisecond)
	if got := chk.started.Load(); got != 1 {
		t.Fatalf("want exactly 1 cycle started while busy, got %d", got)
	}

	close(release)
	cancel()
	<-done
}

type blockingChecker struct {
	started atomic.Int64
	release chan struct{}
}

func (b *blockingChecker) Check(ctx context.Context, _ domain.Endpoint) probe.Outcome {
	b.started.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return probe.Outcome{Up: false, Reason: "timeout"}
}

type capturePublisher struct {
	mu   sync.Mutex
	rows []repo.StatusRow
}

func (c *capturePublisher) Publish(rows []repo.StatusRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
}

func TestRunCycle_PublishesStatuses(t *testing.T) {
	store := memory.New()
	seedEndpoints(t, store, 2)

	pub := &capturePublisher{}
	chk := &slowChecker{delay: time.Millisecond}
	p := NewPinger(zap.NewNop(), store, store, chk, time.Minute, time.Second, 2)
	p.Publisher = pub
	p.RunCycle(context.Background())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.rows) != 2 {
		t.Fatalf("want 2 published rows, got %d", len(pub.rows))
	}
}

func TestRunCycle_DisabledEndpointsSkipped(t *testing.T) {
	store := memory.New()
	eps := seedEndpoints(t, store, 2)
	off := false
	if _, err := store.Update(context.Background(), eps[0].ID, repo.EndpointPatch{Enabled: &off}); err != nil {
		t.Fatal(err)
	}

	chk := &slowChecker{delay: time.Millisecond}
	p := NewPinger(zap.NewNop(), store, store, chk, time.Minute, time.Second, 2)
	p.RunCycle(context.Background())

	if got := chk.calls.Load(); got != 1 {
		t.Fatalf("disabled endpoint was probed: %d calls", got)
	}
}
