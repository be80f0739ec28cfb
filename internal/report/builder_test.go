package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayg/coach/internal/core"
)

func sampleInput() Input {
	return Input{
		Date: time.Date(2025, 3, 10, 8, 45, 0, 0, time.FixedZone("IST", 5*3600+1800)),
		Snapshot: core.PortfolioSnapshot{
			Holdings: []core.Holding{
				{Symbol: "TCS", InstrumentToken: "NSE_EQ|INE467B01029", Quantity: 10, LastPrice: 3600},
			},
			Summary: core.PortfolioSummary{TotalValue: 36000, TotalPnL: 500, TotalStocks: 1},
		},
		Market: core.MarketContext{
			Benchmark: core.IndexQuote{Close: 24000, ChangePct: 0.84},
			Secondary: core.IndexQuote{Close: 79000, ChangePct: -0.12},
			FX:        core.FXQuote{Rate: 84.5},
			FetchedAt: time.Now(),
		},
		Recommendations: []core.TradeRecommendation{
			{ID: "1", Status: core.StatusPending, TradeIdea: core.TradeIdea{
				Action: core.ActionSell, Symbol: "TCS", Quantity: 5, LimitPrice: 3672, Confidence: 0.8, Rationale: "profit taking"}},
			{ID: "2", Status: core.StatusPending, TradeIdea: core.TradeIdea{
				Action: core.ActionBuy, Symbol: "HINDALCO", Quantity: 8, LimitPrice: 580, Confidence: 0.65, Rationale: "metals recovery"}},
		},
		MaxDrawdown: 0.20,
	}
}

func TestBuild(t *testing.T) {
	t.Run("full report", func(t *testing.T) {
		md := Build(sampleInput())

		assert.Contains(t, md, "### 10 Mar 2025 – Portfolio Coach (08:45 IST)")
		assert.Contains(t, md, "Total Value: ₹36000.00")
		assert.Contains(t, md, "Nifty 50: 24000.00 (+0.84%)")
		assert.Contains(t, md, "| 1 | **SELL** | TCS | 5 | ₹3672.00 | 🟢 0.80 | profit taking |")
		assert.Contains(t, md, "| 2 | **BUY** | HINDALCO | 8 | ₹580.00 | 🟠 0.65 | metals recovery |")
		assert.Contains(t, md, "Sources & Methodology")
	})

	t.Run("gtt block resolves instrument tokens from holdings", func(t *testing.T) {
		md := Build(sampleInput())

		require.Contains(t, md, "```json")
		assert.Contains(t, md, `"instrument_token": "NSE_EQ|INE467B01029"`, "held symbol keeps its broker token")
		assert.Contains(t, md, `"instrument_token": "NSE_EQ|HINDALCO"`, "unknown symbol falls back to symbol-derived token")
		assert.Contains(t, md, `"product": "I"`)
		assert.Contains(t, md, `"transaction_type": "SELL"`)
	})

	t.Run("no recommendations", func(t *testing.T) {
		in := sampleInput()
		in.Recommendations = nil

		md := Build(in)
		assert.Contains(t, md, "No trade recommendations for today")
		assert.NotContains(t, md, "```json")
	})

	t.Run("history section", func(t *testing.T) {
		in := sampleInput()
		in.Changes = core.PortfolioChanges{
			NewPositions:    []core.PositionChange{{Symbol: "INFY", Quantity: 5, Value: 7500}},
			QuantityChanges: []core.QuantityChange{{Symbol: "TCS", PreviousQuantity: 10, CurrentQuantity: 15, Delta: 5}},
		}
		in.Metrics = &core.PerformanceMetrics{
			PortfolioReturn: 1.25, BenchmarkReturn: 0.84, Alpha: 0.41,
			WinRate: 50, TotalTrades: 2, ProfitableTrades: 1,
		}

		md := Build(in)
		assert.Contains(t, md, "**New Positions:** 1 stocks added")
		assert.Contains(t, md, "**Quantity Changes:** 1 positions modified")
		assert.Contains(t, md, "**Portfolio Return:** 1.25% (vs Nifty: 0.84%)")
		assert.Contains(t, md, "**Win Rate:** 50.0% (1/2 trades)")
	})

	t.Run("risk banner appears near max drawdown", func(t *testing.T) {
		in := sampleInput()
		// Invested 100,000, now 82,000: 18% drawdown against a 20% limit.
		in.Snapshot.Summary = core.PortfolioSummary{TotalValue: 82000, TotalPnL: -18000, TotalStocks: 1}

		md := Build(in)
		assert.Contains(t, md, "Risk Alert")
		assert.Contains(t, md, "18.0%")
	})

	t.Run("no risk banner on healthy portfolio", func(t *testing.T) {
		md := Build(sampleInput())
		assert.NotContains(t, md, "Risk Alert")
	})

	t.Run("pipe characters in rationale cannot break the table", func(t *testing.T) {
		in := sampleInput()
		in.Recommendations = in.Recommendations[:1]
		in.Recommendations[0].Rationale = "support | resistance"

		md := Build(in)
		assert.Contains(t, md, "support / resistance")
	})

	t.Run("zeroed market context omitted", func(t *testing.T) {
		in := sampleInput()
		in.Market = core.MarketContext{}

		md := Build(in)
		assert.NotContains(t, md, "Market Context")
	})
}

func TestConfidenceMarker(t *testing.T) {
	assert.Equal(t, "🟢", confidenceMarker(0.75))
	assert.Equal(t, "🟠", confidenceMarker(0.6))
	assert.Equal(t, "🔴", confidenceMarker(0.59))
}

func TestBuildDeterministic(t *testing.T) {
	in := sampleInput()
	assert.True(t, strings.HasPrefix(Build(in), "### "))
	assert.Equal(t, Build(in), Build(in))
}
