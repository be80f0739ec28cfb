// Package critic runs a second model over generated trade ideas and keeps
// only the ones it passes. The critique is advisory: any failure to obtain
// or parse verdicts leaves the idea list unchanged.
package critic

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/core"
	"github.com/akshayg/coach/internal/llm"
)

// Critic filters trade ideas through an independent risk reviewer model.
type Critic struct {
	provider llm.Provider
	log      *zap.Logger
}

// New creates a Critic. provider may be nil, in which case Review passes
// every idea through untouched.
func New(provider llm.Provider, log *zap.Logger) *Critic {
	if log == nil {
		log = zap.NewNop()
	}
	return &Critic{provider: provider, log: log}
}

// Review asks the critic model to pass or reject each idea and returns the
// approved subset in input order. Fail-open: on call failure, unparseable
// output, or zero approvals, the original ideas are returned unchanged.
func (c *Critic) Review(ctx context.Context, ideas []core.TradeIdea, summary core.PortfolioSummary) []core.TradeIdea {
	if len(ideas) == 0 || c.provider == nil {
		return ideas
	}

	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: criticSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildCritiquePrompt(ideas, summary)},
		},
		MaxTokens:   800,
		Temperature: 0.2,
	})
	if err != nil {
		c.log.Warn("critic call failed, keeping all ideas", zap.Error(err))
		return ideas
	}

	approved := applyVerdicts(resp.Content, ideas)
	if len(approved) == 0 {
		c.log.Warn("critic rejected every idea, keeping all ideas")
		return ideas
	}

	c.log.Info("critic review complete",
		zap.Int("submitted", len(ideas)),
		zap.Int("approved", len(approved)))
	return approved
}

func buildCritiquePrompt(ideas []core.TradeIdea, summary core.PortfolioSummary) string {
	var sb strings.Builder

	sb.WriteString("Portfolio Context:\n")
	fmt.Fprintf(&sb, "- Total Value: ₹%.2f\n", summary.TotalValue)
	sb.WriteString("- Max Position Size: 5% of portfolio\n\n")

	sb.WriteString("Trade Ideas to Critique:\n")
	for i, idea := range ideas {
		fmt.Fprintf(&sb, "%d. %s %s - %d shares @ ₹%.2f (Confidence: %.2f, Rationale: %s)\n",
			i+1, idea.Action, idea.Symbol, idea.Quantity, idea.LimitPrice, idea.Confidence, idea.Rationale)
	}

	sb.WriteString(`
For each trade idea, respond with one line:
<number>. <SYMBOL>: PASS/REJECT - brief reason

Focus on:
1. Over-trading (too many ideas)
2. Position sizing (max 5% per stock)
3. Risk-reward ratio
4. Alignment with portfolio goals
5. Market timing concerns
`)

	return sb.String()
}

const criticSystemPrompt = "You are a risk management expert. Critically evaluate trade ideas " +
	"for potential issues, over-trading, and alignment with portfolio goals."

// applyVerdicts matches verdict lines to ideas. Lines that echo an idea's
// symbol bind to that idea; lines without a recognizable symbol bind to
// ideas positionally. Ideas with no corresponding verdict line are dropped.
func applyVerdicts(content string, ideas []core.TradeIdea) []core.TradeIdea {
	verdicts := parseVerdictLines(content)
	if len(verdicts) == 0 {
		return nil
	}

	passed := make(map[int]bool, len(ideas))

	pos := 0
	for _, v := range verdicts {
		idx := -1
		if v.symbol != "" {
			for i, idea := range ideas {
				if strings.EqualFold(idea.Symbol, v.symbol) {
					idx = i
					break
				}
			}
		}
		if idx == -1 {
			if pos >= len(ideas) {
				continue
			}
			idx = pos
		}
		if v.pass {
			passed[idx] = true
		}
		pos++
	}

	var approved []core.TradeIdea
	for i, idea := range ideas {
		if passed[i] {
			approved = append(approved, idea)
		}
	}
	return approved
}

type verdict struct {
	symbol string
	pass   bool
}

// parseVerdictLines extracts PASS/REJECT lines from the critic reply.
// Commentary lines without a verdict keyword are ignored.
func parseVerdictLines(content string) []verdict {
	var out []verdict
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		hasPass := strings.Contains(upper, "PASS")
		hasReject := strings.Contains(upper, "REJECT")
		if !hasPass && !hasReject {
			continue
		}
		out = append(out, verdict{
			symbol: extractSymbol(line),
			pass:   hasPass,
		})
	}
	return out
}

// extractSymbol pulls the symbol from a "1. TCS: PASS - reason" style line.
// Returns "" when the line carries no symbol before the verdict keyword.
func extractSymbol(line string) string {
	head := line
	if i := strings.IndexAny(line, ":"); i != -1 {
		head = line[:i]
	}
	fields := strings.Fields(head)
	for _, f := range fields {
		f = strings.Trim(f, ".,:-")
		if f == "" {
			continue
		}
		upper := strings.ToUpper(f)
		if upper == "PASS" || upper == "REJECT" {
			return ""
		}
		if isSymbolToken(upper) && upper == f {
			return f
		}
	}
	return ""
}

// isSymbolToken accepts uppercase NSE-style tickers, including ones with
// '&' or '-' like M&M and BAJAJ-AUTO.
func isSymbolToken(s string) bool {
	if len(s) < 2 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '&' || r == '-':
		default:
			return false
		}
	}
	// Must contain at least one letter so bare numbering tokens do not match.
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
