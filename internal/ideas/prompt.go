package ideas

import (
	"fmt"
	"sort"
	"strings"

	"github.com/akshayg/coach/internal/core"
)

const maxPromptHoldings = 15

// buildPrompt assembles the portfolio brief sent to the idea model:
// top holdings by value, sector allocation, index levels and any
// drift signals, followed by the required JSON output contract.
func (g *Generator) buildPrompt(in Input) string {
	var sb strings.Builder

	summary := in.Snapshot.Summary
	holdings := topByValue(in.Snapshot.Holdings, maxPromptHoldings)

	sb.WriteString("## Portfolio\n")
	fmt.Fprintf(&sb, "- Total value: ₹%.2f\n", summary.TotalValue)
	fmt.Fprintf(&sb, "- Total P&L: ₹%.2f\n", summary.TotalPnL)
	fmt.Fprintf(&sb, "- Holdings: %d\n\n", summary.TotalStocks)

	sb.WriteString("## Top Holdings by Value\n")
	for i, h := range holdings {
		weight := 0.0
		if summary.TotalValue > 0 {
			weight = h.Value() / summary.TotalValue * 100
		}
		fmt.Fprintf(&sb, "%2d. %-12s %4d shares @ ₹%.2f = ₹%.2f (%.1f%%) | P&L ₹%.2f | day %+.1f%%\n",
			i+1, h.Symbol, h.Quantity, h.LastPrice, h.Value(), weight, h.PnL, h.DayChangePct)
	}
	sb.WriteString("\n")

	g.writeSectorAllocation(&sb, in.Snapshot)

	if !in.Market.IsZero() {
		sb.WriteString("## Market Context\n")
		fmt.Fprintf(&sb, "- Nifty 50: %.2f (%+.2f%%)\n", in.Market.Benchmark.Close, in.Market.Benchmark.ChangePct)
		fmt.Fprintf(&sb, "- Sensex: %.2f (%+.2f%%)\n", in.Market.Secondary.Close, in.Market.Secondary.ChangePct)
		fmt.Fprintf(&sb, "- USD/INR: %.2f\n\n", in.Market.FX.Rate)
	}

	if len(in.Signals) > 0 {
		sb.WriteString("## Allocation Signals\n")
		for _, s := range in.Signals {
			fmt.Fprintf(&sb, "- %s: %s drift %+.1f%% (current %.1f%%, target %.1f%%, confidence %.2f)\n",
				s.Symbol, s.Action, s.Magnitude, s.CurrentWeight, s.TargetWeight, s.Confidence)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Task\n")
	sb.WriteString("Generate 3-5 specific, actionable trade recommendations.\n")
	sb.WriteString("- Only BUY or SELL actions, never HOLD.\n")
	fmt.Fprintf(&sb, "- Maximum ₹%.0f per new position.\n", g.budget)
	sb.WriteString("- Consider existing holdings as well as new opportunities.\n\n")
	sb.WriteString("Return ONLY a valid JSON array with this exact structure:\n")
	sb.WriteString(`[
  {
    "action": "BUY",
    "symbol": "TCS",
    "quantity": 10,
    "limit_price": 3600.0,
    "confidence": 0.85,
    "rationale": "why this trade, with entry and exit levels"
  }
]
`)

	return sb.String()
}

func (g *Generator) writeSectorAllocation(sb *strings.Builder, snap core.PortfolioSnapshot) {
	if g.sectors == nil || len(snap.Holdings) == 0 {
		return
	}

	type bucket struct {
		name    string
		value   float64
		symbols []string
	}
	byName := make(map[string]*bucket)
	for _, h := range snap.Holdings {
		sec := g.sectors.Sector(h.Symbol)
		b, ok := byName[sec]
		if !ok {
			b = &bucket{name: sec}
			byName[sec] = b
		}
		b.value += h.Value()
		b.symbols = append(b.symbols, h.Symbol)
	}

	buckets := make([]*bucket, 0, len(byName))
	for _, b := range byName {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].value != buckets[j].value {
			return buckets[i].value > buckets[j].value
		}
		return buckets[i].name < buckets[j].name
	})

	sb.WriteString("## Sector Allocation\n")
	for _, b := range buckets {
		weight := 0.0
		if snap.Summary.TotalValue > 0 {
			weight = b.value / snap.Summary.TotalValue * 100
		}
		syms := b.symbols
		if len(syms) > 3 {
			syms = syms[:3]
		}
		fmt.Fprintf(sb, "- %s: ₹%.2f (%.1f%%) - %s\n", b.name, b.value, weight, strings.Join(syms, ", "))
	}
	sb.WriteString("\n")
}

// topByValue returns up to n holdings sorted by market value, descending.
// Ties break by symbol so the ordering is stable across runs.
func topByValue(holdings []core.Holding, n int) []core.Holding {
	sorted := make([]core.Holding, len(holdings))
	copy(sorted, holdings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value() != sorted[j].Value() {
			return sorted[i].Value() > sorted[j].Value()
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
