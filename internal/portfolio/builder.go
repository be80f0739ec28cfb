package portfolio

import (
	"time"

	"github.com/akshayg/coach/internal/core"
)

// BuildSnapshot normalizes raw holdings into a snapshot. Holdings with a
// non-positive quantity or price are dropped; the summary is recomputed
// from what remains so it always agrees with the holdings list.
func BuildSnapshot(holdings []core.Holding, at time.Time) core.PortfolioSnapshot {
	kept := make([]core.Holding, 0, len(holdings))
	var summary core.PortfolioSummary

	for _, h := range holdings {
		if !h.IsValid() || h.Quantity == 0 || h.LastPrice <= 0 {
			continue
		}
		kept = append(kept, h)
		summary.TotalValue += h.Value()
		summary.TotalPnL += h.PnL
		summary.DayChange += h.Value() * h.DayChangePct / 100
	}
	summary.TotalStocks = len(kept)

	return core.PortfolioSnapshot{
		Holdings:   kept,
		Summary:    summary,
		CapturedAt: at,
	}
}
