package tracking

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

// RunRecord is the pipeline output handed to the tracker for persistence.
type RunRecord struct {
	Snapshot core.PortfolioSnapshot
	Market   core.MarketContext
	Ideas    []core.TradeIdea
}

// RunResult is what the tracker derived and persisted for one run.
type RunResult struct {
	Recommendations []core.TradeRecommendation
	Changes         core.PortfolioChanges
	Metrics         core.PerformanceMetrics
	Previous        *core.PortfolioSnapshot
}

// Tracker persists run output stage by stage: snapshot, market data,
// recommendations, changes, then performance metrics. A failing stage
// aborts the ones after it but never rolls back completed writes.
type Tracker struct {
	store          Store
	overwrite      bool
	winRateWindow  int
	maxDailyTrades int
	log            *zap.Logger
	newID          func() string
	now            func() time.Time
}

// NewTracker creates a Tracker from tracking and risk configuration.
func NewTracker(store Store, trackingCfg config.TrackingConfig, riskCfg config.RiskConfig, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	window := trackingCfg.WinRateWindowDays
	if window <= 0 {
		window = 7
	}
	return &Tracker{
		store:          store,
		overwrite:      trackingCfg.SnapshotPolicy != config.SnapshotReject,
		winRateWindow:  window,
		maxDailyTrades: riskCfg.MaxDailyTrades,
		log:            log,
		newID:          func() string { return uuid.NewString() },
		now:            time.Now,
	}
}

// Record runs the persistence state machine for one pipeline run.
func (t *Tracker) Record(ctx context.Context, rec RunRecord) (*RunResult, error) {
	date := rec.Snapshot.DateKey()
	log := t.log.With(zap.String("date", date))

	prev, err := t.store.LatestSnapshotBefore(ctx, date)
	if err != nil {
		return nil, err
	}

	if err := t.store.SaveSnapshot(ctx, rec.Snapshot, t.overwrite); err != nil {
		return nil, err
	}
	log.Info("snapshot persisted",
		zap.Float64("total_value", rec.Snapshot.Summary.TotalValue),
		zap.Int("holdings", len(rec.Snapshot.Holdings)))

	if !rec.Market.IsZero() {
		if err := t.store.SaveMarketData(ctx, date, rec.Market); err != nil {
			return nil, err
		}
	}

	recs := t.buildRecommendations(rec.Snapshot.CapturedAt, rec.Ideas)
	if err := t.store.SaveRecommendations(ctx, recs); err != nil {
		return nil, err
	}
	log.Info("recommendations persisted", zap.Int("count", len(recs)))

	var changes core.PortfolioChanges
	if prev != nil {
		changes = TrackChanges(rec.Snapshot.Holdings, prev.Holdings)
		if !changes.Empty() {
			log.Info("portfolio changes detected",
				zap.Int("new", len(changes.NewPositions)),
				zap.Int("exited", len(changes.ExitedPositions)),
				zap.Int("resized", len(changes.QuantityChanges)))
		}
	}

	metrics, err := t.calculateMetrics(ctx, rec.Snapshot, rec.Market, prev)
	if err != nil {
		return nil, err
	}
	if err := t.store.SaveMetrics(ctx, date, metrics); err != nil {
		return nil, err
	}

	return &RunResult{
		Recommendations: recs,
		Changes:         changes,
		Metrics:         metrics,
		Previous:        prev,
	}, nil
}

// buildRecommendations assigns IDs and dates to approved ideas, capping the
// count at the daily trade limit when one is configured.
func (t *Tracker) buildRecommendations(capturedAt time.Time, ideas []core.TradeIdea) []core.TradeRecommendation {
	if t.maxDailyTrades > 0 && len(ideas) > t.maxDailyTrades {
		t.log.Warn("daily trade limit reached, dropping lowest-priority ideas",
			zap.Int("ideas", len(ideas)),
			zap.Int("limit", t.maxDailyTrades))
		ideas = ideas[:t.maxDailyTrades]
	}

	recs := make([]core.TradeRecommendation, 0, len(ideas))
	for _, idea := range ideas {
		recs = append(recs, core.TradeRecommendation{
			ID:        t.newID(),
			Date:      capturedAt,
			TradeIdea: idea,
			Status:    core.StatusPending,
		})
	}
	return recs
}

// TrackChanges diffs holdings across two snapshots. Output slices are
// sorted by symbol so the diff is stable.
func TrackChanges(current, previous []core.Holding) core.PortfolioChanges {
	currentBySym := make(map[string]core.Holding, len(current))
	for _, h := range current {
		currentBySym[h.Symbol] = h
	}
	previousBySym := make(map[string]core.Holding, len(previous))
	for _, h := range previous {
		previousBySym[h.Symbol] = h
	}

	var changes core.PortfolioChanges

	for sym, h := range currentBySym {
		if _, ok := previousBySym[sym]; !ok {
			changes.NewPositions = append(changes.NewPositions, core.PositionChange{
				Symbol:   sym,
				Quantity: h.Quantity,
				Value:    h.Value(),
			})
		}
	}

	for sym, h := range previousBySym {
		if _, ok := currentBySym[sym]; !ok {
			changes.ExitedPositions = append(changes.ExitedPositions, core.PositionChange{
				Symbol:   sym,
				Quantity: h.Quantity,
				Value:    h.Value(),
			})
		}
	}

	for sym, cur := range currentBySym {
		prev, ok := previousBySym[sym]
		if !ok || cur.Quantity == prev.Quantity {
			continue
		}
		changes.QuantityChanges = append(changes.QuantityChanges, core.QuantityChange{
			Symbol:           sym,
			PreviousQuantity: prev.Quantity,
			CurrentQuantity:  cur.Quantity,
			Delta:            cur.Quantity - prev.Quantity,
		})
	}

	sort.Slice(changes.NewPositions, func(i, j int) bool {
		return changes.NewPositions[i].Symbol < changes.NewPositions[j].Symbol
	})
	sort.Slice(changes.ExitedPositions, func(i, j int) bool {
		return changes.ExitedPositions[i].Symbol < changes.ExitedPositions[j].Symbol
	})
	sort.Slice(changes.QuantityChanges, func(i, j int) bool {
		return changes.QuantityChanges[i].Symbol < changes.QuantityChanges[j].Symbol
	})

	return changes
}

// calculateMetrics derives the day's performance record. On the first run
// there is no baseline, so returns are zeroed and only the benchmark read
// is carried through.
func (t *Tracker) calculateMetrics(ctx context.Context, snap core.PortfolioSnapshot, market core.MarketContext, prev *core.PortfolioSnapshot) (core.PerformanceMetrics, error) {
	var m core.PerformanceMetrics
	m.BenchmarkReturn = market.Benchmark.ChangePct

	if prev != nil {
		if prev.Summary.TotalValue > 0 {
			m.PortfolioReturn = (snap.Summary.TotalValue - prev.Summary.TotalValue) / prev.Summary.TotalValue * 100
		}
		// A baseline with no usable value still yields a relative result:
		// a flat portfolio against a moving benchmark is negative alpha.
		m.Alpha = m.PortfolioReturn - m.BenchmarkReturn
	}

	history, err := t.store.RecommendationHistory(ctx, t.winRateWindow)
	if err != nil {
		return core.PerformanceMetrics{}, err
	}
	for _, r := range history {
		if r.Status != core.StatusExecuted {
			continue
		}
		m.TotalTrades++
		if r.Profitable() {
			m.ProfitableTrades++
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.ProfitableTrades) / float64(m.TotalTrades) * 100
	}

	return m, nil
}
