package ideas

import (
	"fmt"

	"github.com/akshayg/coach/internal/core"
	"github.com/akshayg/coach/internal/sector"
)

const maxFallbackIdeas = 3

// candidate is a new-position suggestion used when existing holdings give
// nothing to act on.
type candidate struct {
	symbol    string
	price     float64
	rationale string
}

var newPositionCandidates = []candidate{
	{"TATAMOTORS", 850, "Auto sector momentum and EV transition"},
	{"ADANIENT", 3200, "Infrastructure growth and government capex focus"},
	{"HINDALCO", 580, "Metal sector recovery on global demand"},
	{"SUNPHARMA", 1200, "Defensive pharma with export growth"},
	{"BAJFINANCE", 7200, "NBFC growth in consumer finance"},
}

// fallbackIdeas derives up to three deterministic ideas from the top five
// holdings by value. Same snapshot in, same ideas out.
func (g *Generator) fallbackIdeas(snap core.PortfolioSnapshot) []core.TradeIdea {
	if len(snap.Holdings) == 0 {
		return nil
	}

	top := topByValue(snap.Holdings, 5)
	held := make(map[string]bool, len(snap.Holdings))
	for _, h := range snap.Holdings {
		held[h.Symbol] = true
	}

	var out []core.TradeIdea
	newPositionAdded := false

	for _, h := range top {
		switch {
		case sector.IsIndexFund(h.Symbol):
			// Passive index exposure: trim a third to free up capital.
			out = append(out, core.TradeIdea{
				Action:     core.ActionSell,
				Symbol:     h.Symbol,
				Quantity:   atLeastOne(h.Quantity / 3),
				LimitPrice: h.LastPrice * 1.01,
				Confidence: 0.75,
				Rationale: fmt.Sprintf("%s provides index stability but ties up capital. "+
					"Partial exit to redeploy into higher-return opportunities.", h.Symbol),
			})

		case h.PnL > 0 && h.DayChangePct > 2:
			// Winner with momentum: take profits on half.
			out = append(out, core.TradeIdea{
				Action:     core.ActionSell,
				Symbol:     h.Symbol,
				Quantity:   atLeastOne(h.Quantity / 2),
				LimitPrice: h.LastPrice * 1.02,
				Confidence: 0.80,
				Rationale: fmt.Sprintf("%s up %.1f%% today with positive P&L. "+
					"Book partial profits and free capital for redeployment.", h.Symbol, h.DayChangePct),
			})

		case h.PnL < 0 && h.DayChangePct < -2:
			if h.DayChangePct < -5 {
				// Heavy drop on a losing position: cut half.
				out = append(out, core.TradeIdea{
					Action:     core.ActionSell,
					Symbol:     h.Symbol,
					Quantity:   atLeastOne(h.Quantity / 2),
					LimitPrice: h.LastPrice * 0.99,
					Confidence: 0.70,
					Rationale: fmt.Sprintf("%s down %.1f%% today on an underwater position. "+
						"Cut losses and redeploy.", h.Symbol, -h.DayChangePct),
				})
			} else {
				// Moderate dip: average down with half the position size.
				out = append(out, core.TradeIdea{
					Action:     core.ActionBuy,
					Symbol:     h.Symbol,
					Quantity:   atLeastOne(h.Quantity / 2),
					LimitPrice: h.LastPrice * 0.98,
					Confidence: 0.65,
					Rationale: fmt.Sprintf("%s down %.1f%% today. "+
						"Average down for a recovery position.", h.Symbol, -h.DayChangePct),
				})
			}

		case !newPositionAdded:
			// Nothing actionable in the holding itself: propose one new
			// position from the candidate list, sized to the budget.
			for _, c := range newPositionCandidates {
				if held[c.symbol] {
					continue
				}
				qty := int(g.budget / c.price)
				if qty <= 0 {
					continue
				}
				out = append(out, core.TradeIdea{
					Action:     core.ActionBuy,
					Symbol:     c.symbol,
					Quantity:   qty,
					LimitPrice: c.price,
					Confidence: 0.75,
					Rationale:  fmt.Sprintf("New opportunity: %s. Deploy ₹%.0f into %s.", c.rationale, g.budget, c.symbol),
				})
				newPositionAdded = true
				break
			}
		}

		if len(out) >= maxFallbackIdeas {
			break
		}
	}

	if len(out) > maxFallbackIdeas {
		out = out[:maxFallbackIdeas]
	}
	return out
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
