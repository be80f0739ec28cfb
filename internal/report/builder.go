// Package report renders the daily decision report as markdown.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/akshayg/coach/internal/core"
	"github.com/akshayg/coach/internal/risk"
)

// drawdownWarnFraction is the share of the maximum drawdown at which the
// report starts carrying a risk banner.
const drawdownWarnFraction = 0.8

// Input is everything the report needs for one run.
type Input struct {
	Date            time.Time
	Snapshot        core.PortfolioSnapshot
	Market          core.MarketContext
	Recommendations []core.TradeRecommendation
	Changes         core.PortfolioChanges
	Metrics         *core.PerformanceMetrics
	// MaxDrawdown is the configured tolerance as a fraction, e.g. 0.20.
	MaxDrawdown float64
}

// gttOrder is one entry of the copy-paste GTT order block.
type gttOrder struct {
	TransactionType string  `json:"transaction_type"`
	InstrumentToken string  `json:"instrument_token"`
	Quantity        int     `json:"quantity"`
	Product         string  `json:"product"`
	Price           float64 `json:"price"`
}

// Build renders the markdown report.
func Build(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s – Portfolio Coach (08:45 IST)\n\n", in.Date.Format("02 Jan 2006"))

	sb.WriteString("**Portfolio Summary:**\n")
	fmt.Fprintf(&sb, "- Total Value: ₹%.2f\n", in.Snapshot.Summary.TotalValue)
	fmt.Fprintf(&sb, "- Total P&L: ₹%.2f\n", in.Snapshot.Summary.TotalPnL)
	fmt.Fprintf(&sb, "- Number of Holdings: %d\n\n", in.Snapshot.Summary.TotalStocks)

	if !in.Market.IsZero() {
		sb.WriteString("**Market Context:**\n")
		fmt.Fprintf(&sb, "- Nifty 50: %.2f (%+.2f%%)\n", in.Market.Benchmark.Close, in.Market.Benchmark.ChangePct)
		fmt.Fprintf(&sb, "- Sensex: %.2f (%+.2f%%)\n", in.Market.Secondary.Close, in.Market.Secondary.ChangePct)
		fmt.Fprintf(&sb, "- USD/INR: ₹%.2f\n\n", in.Market.FX.Rate)
	}

	sb.WriteString("**Trade Recommendations:**\n")
	if len(in.Recommendations) > 0 {
		writeRecommendationTable(&sb, in.Recommendations)
		writeGTTBlock(&sb, in.Recommendations, in.Snapshot.Holdings)
	} else {
		sb.WriteString("\n**No trade recommendations for today.**\n\n")
		sb.WriteString("Portfolio is well-balanced and no significant opportunities identified.\n")
	}

	writeHistorySection(&sb, in.Changes, in.Metrics)
	writeRiskBanner(&sb, in.Snapshot.Summary, in.MaxDrawdown)
	writeMethodology(&sb)

	fmt.Fprintf(&sb, "\n---\n*Report generated on %s IST*\n", in.Date.Format("2006-01-02 15:04:05"))
	return sb.String()
}

func writeRecommendationTable(sb *strings.Builder, recs []core.TradeRecommendation) {
	sb.WriteString("\n| # | Action | Symbol | Qty | Limit | Confidence | Rationale |\n")
	sb.WriteString("|---|--------|--------|----:|------:|-----------:|-----------|\n")
	for i, r := range recs {
		fmt.Fprintf(sb, "| %d | **%s** | %s | %d | ₹%.2f | %s %.2f | %s |\n",
			i+1, r.Action, r.Symbol, r.Quantity, r.LimitPrice,
			confidenceMarker(r.Confidence), r.Confidence,
			strings.ReplaceAll(r.Rationale, "|", "/"))
	}
}

func confidenceMarker(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return "🟢"
	case confidence >= 0.6:
		return "🟠"
	default:
		return "🔴"
	}
}

func writeGTTBlock(sb *strings.Builder, recs []core.TradeRecommendation, holdings []core.Holding) {
	tokens := make(map[string]string, len(holdings))
	for _, h := range holdings {
		if h.InstrumentToken != "" {
			tokens[h.Symbol] = h.InstrumentToken
		}
	}

	orders := make([]gttOrder, 0, len(recs))
	for _, r := range recs {
		token, ok := tokens[r.Symbol]
		if !ok {
			token = "NSE_EQ|" + r.Symbol
		}
		orders = append(orders, gttOrder{
			TransactionType: string(r.Action),
			InstrumentToken: token,
			Quantity:        r.Quantity,
			Product:         "I",
			Price:           r.LimitPrice,
		})
	}

	payload, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return
	}

	sb.WriteString("\n*Copy-paste-ready GTT JSON block below:*\n\n")
	sb.WriteString("```json\n")
	sb.Write(payload)
	sb.WriteString("\n```\n")
}

func writeHistorySection(sb *strings.Builder, changes core.PortfolioChanges, metrics *core.PerformanceMetrics) {
	if changes.Empty() && metrics == nil {
		return
	}

	sb.WriteString("\n\n**📊 Historical Performance:**\n")
	if len(changes.NewPositions) > 0 {
		fmt.Fprintf(sb, "- **New Positions:** %d stocks added\n", len(changes.NewPositions))
	}
	if len(changes.ExitedPositions) > 0 {
		fmt.Fprintf(sb, "- **Exited Positions:** %d stocks sold\n", len(changes.ExitedPositions))
	}
	if len(changes.QuantityChanges) > 0 {
		fmt.Fprintf(sb, "- **Quantity Changes:** %d positions modified\n", len(changes.QuantityChanges))
	}
	if metrics != nil {
		fmt.Fprintf(sb, "- **Portfolio Return:** %.2f%% (vs Nifty: %.2f%%)\n", metrics.PortfolioReturn, metrics.BenchmarkReturn)
		fmt.Fprintf(sb, "- **Alpha:** %.2f%%\n", metrics.Alpha)
		fmt.Fprintf(sb, "- **Win Rate:** %.1f%% (%d/%d trades)\n", metrics.WinRate, metrics.ProfitableTrades, metrics.TotalTrades)
	}
}

func writeRiskBanner(sb *strings.Builder, summary core.PortfolioSummary, maxDrawdown float64) {
	if maxDrawdown <= 0 {
		return
	}
	drawdown, breached := risk.DrawdownBreached(summary, maxDrawdown, drawdownWarnFraction)
	if !breached {
		return
	}
	fmt.Fprintf(sb, "\n⚠️ **Risk Alert:** Current drawdown (%.1f%%) approaching maximum threshold (%.1f%%)\n",
		drawdown*100, maxDrawdown*100)
}

func writeMethodology(sb *strings.Builder) {
	sb.WriteString("\n\n**📚 Sources & Methodology:**\n")
	sb.WriteString("- **Portfolio Data:** Upstox API (real-time holdings)\n")
	sb.WriteString("- **Market Data:** Yahoo Finance API (Nifty 50, Sensex, USD/INR)\n")
	sb.WriteString("- **AI Analysis:** idea model + independent critic model\n")
	sb.WriteString("- **Risk Management:** Position sizing cap, confidence scoring\n")
}
