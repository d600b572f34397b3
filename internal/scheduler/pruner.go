package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pingdeck/pingdeck/internal/repo"
)

// Pruner trims probe history past the retention window so storage does
// not grow without bound. Retention <= 0 disables it.
type Pruner struct {
	Logger    *zap.Logger
	Results   repo.ResultStore
	Retention time.Duration
	Interval  time.Duration
}

func NewPruner(logger *zap.Logger, results repo.ResultStore, retention time.Duration) *Pruner {
	return &Pruner{
		Logger:    logger,
		Results:   results,
		Retention: retention,
		Interval:  time.Hour,
	}
}

func (p *Pruner) Run(ctx context.Context) {
	if p.Retention <= 0 {
		p.Logger.Info("pruner_disabled")
		return
	}
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.pruneOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("pruner_stopped")
			return
		case <-t.C:
			p.pruneOnce(ctx)
		}
	}
}

func (p *Pruner) pruneOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.Retention)
	removed, err := p.Results.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.Logger.Warn("prune_error", zap.Error(err))
		return
	}
	if removed > 0 {
		p.Logger.Info("pruned_results",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff),
		)
	}
}
