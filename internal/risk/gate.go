// Package risk filters trade ideas against portfolio-level risk rules.
package risk

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

// Verdict records the outcome of a risk check for a single idea.
type Verdict struct {
	Idea     core.TradeIdea
	Approved bool
	// Reason explains the rejection. Empty when approved.
	Reason string
}

// Gate applies position sizing and confidence rules to generated ideas.
type Gate struct {
	maxPositionPct float64
	minConfidence  float64
	log            *zap.Logger
}

// NewGate creates a Gate from risk configuration. Both limits are
// expressed as fractions (0.05 means 5% of portfolio value).
func NewGate(cfg config.RiskConfig, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		maxPositionPct: cfg.MaxPositionSizePct,
		minConfidence:  cfg.MinConfidence,
		log:            log,
	}
}

// Apply filters ideas against the gate rules, preserving input order.
// It returns the approved ideas along with a per-idea verdict list.
// When the portfolio value is zero or negative, sizing cannot be
// evaluated and every idea is rejected.
func (g *Gate) Apply(ideas []core.TradeIdea, summary core.PortfolioSummary) ([]core.TradeIdea, []Verdict) {
	verdicts := make([]Verdict, 0, len(ideas))
	approved := make([]core.TradeIdea, 0, len(ideas))

	for _, idea := range ideas {
		v := g.check(idea, summary)
		if v.Approved {
			approved = append(approved, idea)
		} else {
			g.log.Info("idea rejected by risk gate",
				zap.String("symbol", idea.Symbol),
				zap.String("action", string(idea.Action)),
				zap.String("reason", v.Reason))
		}
		verdicts = append(verdicts, v)
	}

	return approved, verdicts
}

func (g *Gate) check(idea core.TradeIdea, summary core.PortfolioSummary) Verdict {
	if summary.TotalValue <= 0 {
		return Verdict{
			Idea:   idea,
			Reason: "portfolio value unavailable, cannot size position",
		}
	}

	ideaValue := float64(idea.Quantity) * idea.LimitPrice
	positionPct := ideaValue / summary.TotalValue
	if positionPct > g.maxPositionPct {
		return Verdict{
			Idea: idea,
			Reason: fmt.Sprintf("position size %.1f%% exceeds limit %.1f%%",
				positionPct*100, g.maxPositionPct*100),
		}
	}

	if idea.Confidence < g.minConfidence {
		return Verdict{
			Idea: idea,
			Reason: fmt.Sprintf("confidence %.2f below minimum %.2f",
				idea.Confidence, g.minConfidence),
		}
	}

	return Verdict{Idea: idea, Approved: true}
}
