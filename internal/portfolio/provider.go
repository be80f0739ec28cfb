// Package portfolio fetches holdings from the broker and normalizes them
// into snapshots the rest of the pipeline consumes.
package portfolio

import (
	"context"

	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/core"
)

// Provider supplies the current portfolio state.
type Provider interface {
	Snapshot(ctx context.Context) (core.PortfolioSnapshot, error)
}

// SnapshotSource reads a previously persisted snapshot. Implemented by the
// tracking store.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context) (*core.PortfolioSnapshot, error)
}

// Resilient wraps a live Provider with a persisted-snapshot fallback so a
// broker outage does not abort the daily run.
type Resilient struct {
	live  Provider
	store SnapshotSource
	log   *zap.Logger
}

// NewResilient creates a Resilient provider. store may be nil, in which
// case live failures are terminal.
func NewResilient(live Provider, store SnapshotSource, log *zap.Logger) *Resilient {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resilient{live: live, store: store, log: log}
}

// Snapshot returns the live portfolio, or the most recent persisted
// snapshot when the broker is unreachable.
func (r *Resilient) Snapshot(ctx context.Context) (core.PortfolioSnapshot, error) {
	snap, err := r.live.Snapshot(ctx)
	if err == nil {
		return snap, nil
	}

	r.log.Warn("live holdings fetch failed, trying last persisted snapshot", zap.Error(err))
	if r.store == nil {
		return core.PortfolioSnapshot{}, core.WrapError(core.ErrHoldingsUnavailable, err)
	}

	prev, serr := r.store.LatestSnapshot(ctx)
	if serr != nil || prev == nil {
		return core.PortfolioSnapshot{}, core.WrapError(core.ErrHoldingsUnavailable, err)
	}

	r.log.Info("using persisted snapshot",
		zap.Time("captured_at", prev.CapturedAt),
		zap.Int("holdings", len(prev.Holdings)))
	return *prev, nil
}
