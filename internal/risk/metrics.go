package risk

import "github.com/akshayg/coach/internal/core"

// PortfolioMetrics summarises portfolio-level risk exposure.
type PortfolioMetrics struct {
	// TotalValue is the mark-to-market value of all holdings.
	TotalValue float64
	// MaxPositionWeight is the largest single-position weight as a fraction.
	MaxPositionWeight float64
	// MaxPositionSymbol names the holding carrying MaxPositionWeight.
	MaxPositionSymbol string
	// Concentration is the Herfindahl index of position weights.
	// 1.0 means a single position, 1/n means n equal positions.
	Concentration float64
	// Positions is the number of distinct holdings.
	Positions int
}

// ComputePortfolioMetrics derives exposure metrics from current holdings.
// A portfolio with no value returns zeroed metrics.
func ComputePortfolioMetrics(holdings []core.Holding) PortfolioMetrics {
	m := PortfolioMetrics{Positions: len(holdings)}
	for _, h := range holdings {
		m.TotalValue += h.Value()
	}
	if m.TotalValue <= 0 {
		return m
	}

	for _, h := range holdings {
		w := h.Value() / m.TotalValue
		m.Concentration += w * w
		if w > m.MaxPositionWeight {
			m.MaxPositionWeight = w
			m.MaxPositionSymbol = h.Symbol
		}
	}
	return m
}

// DrawdownBreached reports whether the portfolio loss relative to its
// invested cost has crossed warnFraction of the maximum tolerated
// drawdown. Used to surface an early warning before the hard limit.
func DrawdownBreached(summary core.PortfolioSummary, maxDrawdown, warnFraction float64) (float64, bool) {
	invested := summary.TotalValue - summary.TotalPnL
	if invested <= 0 || summary.TotalPnL >= 0 {
		return 0, false
	}
	drawdown := -summary.TotalPnL / invested
	return drawdown, drawdown >= maxDrawdown*warnFraction
}
