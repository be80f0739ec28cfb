package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

func testGate() *Gate {
	return NewGate(config.RiskConfig{
		MaxPositionSizePct: 0.05,
		MinConfidence:      0.5,
	}, zap.NewNop())
}

func TestGateApply(t *testing.T) {
	summary := core.PortfolioSummary{TotalValue: 100000}

	t.Run("approves idea within limits", func(t *testing.T) {
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "TCS", Quantity: 1, LimitPrice: 3600, Confidence: 0.8},
		}

		approved, verdicts := testGate().Apply(ideas, summary)
		require.Len(t, approved, 1)
		require.Len(t, verdicts, 1)
		assert.True(t, verdicts[0].Approved)
		assert.Empty(t, verdicts[0].Reason)
	})

	t.Run("rejects oversized position", func(t *testing.T) {
		// 100 x 100 = 10,000 against a 10,000 portfolio: 100% position.
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "ADANIENT", Quantity: 100, LimitPrice: 100, Confidence: 0.9},
		}

		approved, verdicts := testGate().Apply(ideas, core.PortfolioSummary{TotalValue: 10000})
		assert.Empty(t, approved)
		require.Len(t, verdicts, 1)
		assert.False(t, verdicts[0].Approved)
		assert.Contains(t, verdicts[0].Reason, "position size")
	})

	t.Run("rejects low confidence", func(t *testing.T) {
		ideas := []core.TradeIdea{
			{Action: core.ActionSell, Symbol: "INFY", Quantity: 1, LimitPrice: 1500, Confidence: 0.4},
		}

		approved, verdicts := testGate().Apply(ideas, summary)
		assert.Empty(t, approved)
		assert.Contains(t, verdicts[0].Reason, "confidence")
	})

	t.Run("boundary values pass", func(t *testing.T) {
		// Exactly 5% of portfolio at exactly the minimum confidence.
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "TCS", Quantity: 5, LimitPrice: 1000, Confidence: 0.5},
		}

		approved, _ := testGate().Apply(ideas, summary)
		assert.Len(t, approved, 1)
	})

	t.Run("rejects everything when portfolio value is zero", func(t *testing.T) {
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "TCS", Quantity: 1, LimitPrice: 1, Confidence: 0.9},
			{Action: core.ActionSell, Symbol: "INFY", Quantity: 1, LimitPrice: 1, Confidence: 0.9},
		}

		approved, verdicts := testGate().Apply(ideas, core.PortfolioSummary{TotalValue: 0})
		assert.Empty(t, approved)
		for _, v := range verdicts {
			assert.False(t, v.Approved)
			assert.Contains(t, v.Reason, "portfolio value")
		}
	})

	t.Run("preserves input order", func(t *testing.T) {
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "A", Quantity: 1, LimitPrice: 100, Confidence: 0.9},
			{Action: core.ActionBuy, Symbol: "B", Quantity: 1, LimitPrice: 100, Confidence: 0.1},
			{Action: core.ActionBuy, Symbol: "C", Quantity: 1, LimitPrice: 100, Confidence: 0.9},
		}

		approved, verdicts := testGate().Apply(ideas, summary)
		require.Len(t, approved, 2)
		assert.Equal(t, "A", approved[0].Symbol)
		assert.Equal(t, "C", approved[1].Symbol)
		require.Len(t, verdicts, 3)
		assert.Equal(t, "B", verdicts[1].Idea.Symbol)
	})

	t.Run("idempotent on filtered output", func(t *testing.T) {
		ideas := []core.TradeIdea{
			{Action: core.ActionBuy, Symbol: "TCS", Quantity: 1, LimitPrice: 3600, Confidence: 0.8},
			{Action: core.ActionSell, Symbol: "INFY", Quantity: 1, LimitPrice: 1500, Confidence: 0.2},
		}

		g := testGate()
		first, _ := g.Apply(ideas, summary)
		second, _ := g.Apply(first, summary)
		assert.Equal(t, first, second)
	})
}

func TestComputePortfolioMetrics(t *testing.T) {
	t.Run("empty portfolio", func(t *testing.T) {
		m := ComputePortfolioMetrics(nil)
		assert.Zero(t, m.TotalValue)
		assert.Zero(t, m.Concentration)
	})

	t.Run("single position is fully concentrated", func(t *testing.T) {
		m := ComputePortfolioMetrics([]core.Holding{
			{Symbol: "TCS", Quantity: 10, LastPrice: 3600},
		})
		assert.InDelta(t, 36000, m.TotalValue, 1e-9)
		assert.InDelta(t, 1.0, m.Concentration, 1e-9)
		assert.InDelta(t, 1.0, m.MaxPositionWeight, 1e-9)
		assert.Equal(t, "TCS", m.MaxPositionSymbol)
	})

	t.Run("equal weights", func(t *testing.T) {
		m := ComputePortfolioMetrics([]core.Holding{
			{Symbol: "A", Quantity: 1, LastPrice: 100},
			{Symbol: "B", Quantity: 1, LastPrice: 100},
			{Symbol: "C", Quantity: 1, LastPrice: 100},
			{Symbol: "D", Quantity: 1, LastPrice: 100},
		})
		assert.InDelta(t, 0.25, m.Concentration, 1e-9)
		assert.InDelta(t, 0.25, m.MaxPositionWeight, 1e-9)
		assert.Equal(t, 4, m.Positions)
	})
}

func TestDrawdownBreached(t *testing.T) {
	t.Run("no loss", func(t *testing.T) {
		dd, breached := DrawdownBreached(core.PortfolioSummary{TotalValue: 100000, TotalPnL: 5000}, 0.20, 0.8)
		assert.Zero(t, dd)
		assert.False(t, breached)
	})

	t.Run("loss below warning level", func(t *testing.T) {
		// Invested 100,000, now worth 95,000: 5% drawdown vs 16% warning level.
		dd, breached := DrawdownBreached(core.PortfolioSummary{TotalValue: 95000, TotalPnL: -5000}, 0.20, 0.8)
		assert.InDelta(t, 0.05, dd, 1e-9)
		assert.False(t, breached)
	})

	t.Run("loss past warning level", func(t *testing.T) {
		// Invested 100,000, now worth 82,000: 18% drawdown vs 16% warning level.
		dd, breached := DrawdownBreached(core.PortfolioSummary{TotalValue: 82000, TotalPnL: -18000}, 0.20, 0.8)
		assert.InDelta(t, 0.18, dd, 1e-9)
		assert.True(t, breached)
	})
}
