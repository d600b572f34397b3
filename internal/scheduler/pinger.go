package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/domain"
	"github.com/pingdeck/pingdeck/internal/probe"
	"github.com/pingdeck/pingdeck/internal/repo"
)

// StatusPublisher receives the current status rows after each completed
// cycle. The websocket hub implements it.
type StatusPublisher interface {
	Publish(rows []repo.StatusRow)
}

// Pinger drives the periodic probe loop: one snapshot of enabled
// endpoints per tick, fanned out concurrently under a semaphore, each
// probe bounded by Timeout. A tick is skipped while the previous cycle
// is still running rather than letting cycles stack.
type Pinger struct {
	Logger      *zap.Logger
	Endpoints   repo.EndpointStore
	Results     repo.ResultStore
	Checker     probe.Checker
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
	Publisher   StatusPublisher // optional

	busy atomic.Bool
}

func NewPinger(
	logger *zap.Logger,
	endpoints repo.EndpointStore,
	results repo.ResultStore,
	checker probe.Checker,
	interval time.Duration,
	timeout time.Duration,
	concurrency int,
) *Pinger {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pinger{
		Logger:      logger,
		Endpoints:   endpoints,
		Results:     results,
		Checker:     checker,
		Interval:    interval,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
}

// Run starts the loop with an immediate first pass, then one pass per
// tick. It returns when ctx is cancelled; an in-flight cycle finishes
// its probes.
func (p *Pinger) Run(ctx context.Context) {
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.dispatch(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("pinger_stopped")
			return
		case <-t.C:
			p.dispatch(ctx)
		}
	}
}

// dispatch starts one cycle in the background unless one is already
// running, in which case the tick is dropped.
func (p *Pinger) dispatch(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		p.Logger.Warn("cycle_skipped_previous_still_running")
		return
	}
	go func() {
		defer p.busy.Store(false)
		p.RunCycle(ctx)
	}()
}

// RunCycle probes every enabled endpoint once. A registry read failure
// skips the whole cycle; the next tick retries. One endpoint's failure
// never affects the others.
func (p *Pinger) RunCycle(ctx context.Context) {
	eps, err := p.Endpoints.ListEnabled(ctx)
	if err != nil {
		p.Logger.Warn("cycle_list_error", zap.Error(err))
		return
	}
	if len(eps) == 0 {
		return
	}

	sem := make(chan struct{}, p.Concurrency)
	var wg sync.WaitGroup

	for _, ep := range eps {
		sem <- struct{}{}
		wg.Add(1)
		go func(ep domain.Endpoint) {
			defer func() { <-sem }()
			defer wg.Done()
			p.probeOne(ctx, ep)
		}(ep)
	}
	wg.Wait()

	if p.Publisher != nil {
		rows, err := p.Results.LatestAll(ctx)
		if err != nil {
			p.Logger.Warn("cycle_publish_error", zap.Error(err))
			return
		}
		p.Publisher.Publish(rows)
	}
}

func (p *Pinger) probeOne(ctx context.Context, ep domain.Endpoint) {
	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out := p.Checker.Check(cctx, ep)

	cr := &domain.ProbeResult{
		EndpointID: ep.ID,
		Up:         out.Up,
		LatencyMS:  out.LatencyMS,
		Reason:     out.Reason,
		CheckedAt:  time.Now().UTC(),
	}
	if err := p.Results.Append(ctx, cr); err != nil {
		// the gap in history is accepted; no retry within the cycle
		p.Logger.Warn("cycle_append_error",
			zap.Int64("endpoint_id", int64(ep.ID)),
			zap.String("address", ep.Address),
			zap.Error(err),
		)
		return
	}
	p.Logger.Debug("cycle_probed",
		zap.Int64("endpoint_id", int64(ep.ID)),
		zap.String("address", ep.Address),
		zap.Bool("up", out.Up),
		zap.String("reason", out.Reason),
	)
}
