package tracking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

func testTracker(store Store, policy string) *Tracker {
	tr := NewTracker(store,
		config.TrackingConfig{SnapshotPolicy: policy, WinRateWindowDays: 7},
		config.RiskConfig{MaxDailyTrades: 5},
		zap.NewNop())
	seq := 0
	tr.newID = func() string {
		seq++
		return fmt.Sprintf("rec-%d", seq)
	}
	return tr
}

func snapshotAt(day time.Time, holdings ...core.Holding) core.PortfolioSnapshot {
	var summary core.PortfolioSummary
	for _, h := range holdings {
		summary.TotalValue += h.Value()
		summary.TotalPnL += h.PnL
	}
	summary.TotalStocks = len(holdings)
	return core.PortfolioSnapshot{Holdings: holdings, Summary: summary, CapturedAt: day}
}

func TestTrackerRecord(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	market := core.MarketContext{
		Benchmark: core.IndexQuote{Close: 24000, ChangePct: 0.5},
		FetchedAt: today,
	}

	t.Run("first run persists everything with zeroed returns", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotOverwrite)

		snap := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "INFY", Quantity: 3, LimitPrice: 1500, Confidence: 0.8},
		}

		res, err := tr.Record(ctx, RunRecord{Snapshot: snap, Market: market, Ideas: ideas})
		require.NoError(t, err)

		assert.Nil(t, res.Previous)
		assert.True(t, res.Changes.Empty())
		assert.Zero(t, res.Metrics.PortfolioReturn)
		assert.InDelta(t, 0.5, res.Metrics.BenchmarkReturn, 1e-9)
		assert.Zero(t, res.Metrics.Alpha)

		require.Len(t, res.Recommendations, 1)
		rec := res.Recommendations[0]
		assert.Equal(t, "rec-1", rec.ID)
		assert.Equal(t, core.StatusPending, rec.Status)
		assert.Equal(t, "INFY", rec.Symbol)

		stored, err := store.SnapshotByDate(ctx, snap.DateKey())
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.InDelta(t, 36000, stored.Summary.TotalValue, 1e-9)

		md, err := store.MarketDataByDate(ctx, snap.DateKey())
		require.NoError(t, err)
		require.NotNil(t, md)

		pm, err := store.MetricsByDate(ctx, snap.DateKey())
		require.NoError(t, err)
		require.NotNil(t, pm)
	})

	t.Run("second run computes returns and diffs holdings", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotOverwrite)

		prev := snapshotAt(yesterday,
			core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3500},
			core.Holding{Symbol: "WIPRO", Quantity: 20, LastPrice: 500},
		)
		require.NoError(t, store.SaveSnapshot(ctx, prev, true))

		cur := snapshotAt(today,
			core.Holding{Symbol: "TCS", Quantity: 15, LastPrice: 3600},
			core.Holding{Symbol: "INFY", Quantity: 5, LastPrice: 1500},
		)

		res, err := tr.Record(ctx, RunRecord{Snapshot: cur, Market: market})
		require.NoError(t, err)

		require.NotNil(t, res.Previous)
		// prev value 45,000; current 61,500.
		assert.InDelta(t, (61500.0-45000)/45000*100, res.Metrics.PortfolioReturn, 1e-9)
		assert.InDelta(t, res.Metrics.PortfolioReturn-0.5, res.Metrics.Alpha, 1e-9)

		require.Len(t, res.Changes.NewPositions, 1)
		assert.Equal(t, "INFY", res.Changes.NewPositions[0].Symbol)
		require.Len(t, res.Changes.ExitedPositions, 1)
		assert.Equal(t, "WIPRO", res.Changes.ExitedPositions[0].Symbol)
		require.Len(t, res.Changes.QuantityChanges, 1)
		assert.Equal(t, 5, res.Changes.QuantityChanges[0].Delta)
	})

	t.Run("worthless baseline still yields negative alpha", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotOverwrite)

		prev := snapshotAt(yesterday, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 0})
		require.NoError(t, store.SaveSnapshot(ctx, prev, true))

		cur := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})

		res, err := tr.Record(ctx, RunRecord{Snapshot: cur, Market: market})
		require.NoError(t, err)

		require.NotNil(t, res.Previous)
		assert.Zero(t, res.Metrics.PortfolioReturn)
		assert.InDelta(t, -0.5, res.Metrics.Alpha, 1e-9)
	})

	t.Run("reject policy refuses same-day rerun", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotReject)

		snap := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})

		_, err := tr.Record(ctx, RunRecord{Snapshot: snap, Market: market})
		require.NoError(t, err)

		_, err = tr.Record(ctx, RunRecord{Snapshot: snap, Market: market})
		assert.ErrorIs(t, err, core.ErrSnapshotExists)
	})

	t.Run("overwrite policy reruns without duplicating recommendations", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotOverwrite)

		snap := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "INFY", Quantity: 3, LimitPrice: 1500, Confidence: 0.8},
		}

		_, err := tr.Record(ctx, RunRecord{Snapshot: snap, Market: market, Ideas: ideas})
		require.NoError(t, err)
		_, err = tr.Record(ctx, RunRecord{Snapshot: snap, Market: market, Ideas: ideas})
		require.NoError(t, err)

		recs, err := store.RecommendationsByDate(ctx, snap.DateKey())
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("daily trade limit caps recommendations", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotOverwrite)
		tr.maxDailyTrades = 2

		snap := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})
		var ideas []core.TradeIdea
		for i := 0; i < 4; i++ {
			ideas = append(ideas, core.TradeIdea{
				Action: core.ActionBuy, Symbol: fmt.Sprintf("SYM%d", i),
				Quantity: 1, LimitPrice: 100, Confidence: 0.8,
			})
		}

		res, err := tr.Record(ctx, RunRecord{Snapshot: snap, Market: market, Ideas: ideas})
		require.NoError(t, err)
		require.Len(t, res.Recommendations, 2)
		assert.Equal(t, "SYM0", res.Recommendations[0].Symbol)
	})

	t.Run("zeroed market context is not persisted", func(t *testing.T) {
		store := NewMemoryStore()
		tr := testTracker(store, config.SnapshotOverwrite)

		snap := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})

		_, err := tr.Record(ctx, RunRecord{Snapshot: snap})
		require.NoError(t, err)

		md, err := store.MarketDataByDate(ctx, snap.DateKey())
		require.NoError(t, err)
		assert.Nil(t, md)
	})
}

func TestWinRate(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	store.now = func() time.Time { return today }
	tr := testTracker(store, config.SnapshotOverwrite)

	profit := 150.0
	loss := -80.0
	require.NoError(t, store.SaveRecommendations(ctx, []core.TradeRecommendation{
		{ID: "a", Date: today.AddDate(0, 0, -2), Status: core.StatusExecuted, RealizedPnL: &profit,
			TradeIdea: core.TradeIdea{Action: core.ActionBuy, Symbol: "TCS", Quantity: 1, LimitPrice: 1, Confidence: 0.9}},
		{ID: "b", Date: today.AddDate(0, 0, -3), Status: core.StatusExecuted, RealizedPnL: &loss,
			TradeIdea: core.TradeIdea{Action: core.ActionSell, Symbol: "INFY", Quantity: 1, LimitPrice: 1, Confidence: 0.8}},
		{ID: "c", Date: today.AddDate(0, 0, -1), Status: core.StatusPending,
			TradeIdea: core.TradeIdea{Action: core.ActionBuy, Symbol: "WIPRO", Quantity: 1, LimitPrice: 1, Confidence: 0.7}},
		// Outside the 7-day window.
		{ID: "d", Date: today.AddDate(0, 0, -10), Status: core.StatusExecuted, RealizedPnL: &profit,
			TradeIdea: core.TradeIdea{Action: core.ActionBuy, Symbol: "SBIN", Quantity: 1, LimitPrice: 1, Confidence: 0.6}},
	}))

	snap := snapshotAt(today, core.Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600})
	m, err := tr.calculateMetrics(ctx, snap, core.MarketContext{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, m.TotalTrades, "pending and out-of-window trades excluded")
	assert.Equal(t, 1, m.ProfitableTrades)
	assert.InDelta(t, 50.0, m.WinRate, 1e-9)
}

func TestMemoryStoreSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	day := func(d int) time.Time { return time.Date(2025, 3, d, 9, 0, 0, 0, time.UTC) }
	for _, d := range []int{5, 7, 10} {
		snap := snapshotAt(day(d), core.Holding{Symbol: "TCS", Quantity: d, LastPrice: 100})
		require.NoError(t, store.SaveSnapshot(ctx, snap, true))
	}

	t.Run("latest", func(t *testing.T) {
		snap, err := store.LatestSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "2025-03-10", snap.DateKey())
	})

	t.Run("latest strictly before excludes the bound", func(t *testing.T) {
		snap, err := store.LatestSnapshotBefore(ctx, "2025-03-10")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "2025-03-07", snap.DateKey())
	})

	t.Run("nothing before the earliest", func(t *testing.T) {
		snap, err := store.LatestSnapshotBefore(ctx, "2025-03-05")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, store.SaveRecommendations(ctx, []core.TradeRecommendation{
			{ID: "x", Date: day(10), Status: core.StatusPending,
				TradeIdea: core.TradeIdea{Action: core.ActionBuy, Symbol: "TCS", Quantity: 1, LimitPrice: 1, Confidence: 0.5}},
		}))

		price := 3610.0
		pnl := 100.0
		require.NoError(t, store.UpdateRecommendationStatus(ctx, "x", core.StatusExecuted, &price, &pnl))

		recs, err := store.RecommendationsByDate(ctx, "2025-03-10")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, core.StatusExecuted, recs[0].Status)
		require.NotNil(t, recs[0].ExecutionTime)
		assert.True(t, recs[0].Profitable())

		err = store.UpdateRecommendationStatus(ctx, "missing", core.StatusRejected, nil, nil)
		assert.ErrorIs(t, err, core.ErrRecommendation)
	})
}
