package ideas

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/akshayg/coach/internal/core"
)

var requiredFields = []string{"action", "symbol", "quantity", "limit_price", "confidence", "rationale"}

// ParseIdeas extracts trade ideas from an LLM reply. The reply may wrap
// the JSON array in prose or markdown fences: everything from the first
// '[' to the last ']' is treated as the payload. Array elements missing a
// required field, carrying uncoercible values, or failing the TradeIdea
// invariants are dropped rather than failing the whole parse.
func ParseIdeas(content string) ([]core.TradeIdea, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, core.WrapError(core.ErrIdeaParseFailed, nil)
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, core.WrapError(core.ErrIdeaParseFailed, err)
	}

	ideas := make([]core.TradeIdea, 0, len(raw))
	for _, elem := range raw {
		idea, ok := coerceIdea(elem)
		if !ok {
			continue
		}
		ideas = append(ideas, idea)
	}
	return ideas, nil
}

func coerceIdea(elem map[string]any) (core.TradeIdea, bool) {
	for _, f := range requiredFields {
		if _, ok := elem[f]; !ok {
			return core.TradeIdea{}, false
		}
	}

	action, ok1 := asString(elem["action"])
	symbol, ok2 := asString(elem["symbol"])
	rationale, ok3 := asString(elem["rationale"])
	quantity, ok4 := asInt(elem["quantity"])
	limitPrice, ok5 := asFloat(elem["limit_price"])
	confidence, ok6 := asFloat(elem["confidence"])
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return core.TradeIdea{}, false
	}

	idea := core.TradeIdea{
		Action:     core.TradeAction(strings.ToUpper(action)),
		Symbol:     symbol,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		Confidence: confidence,
		Rationale:  rationale,
	}
	return idea, idea.IsValid()
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat accepts JSON numbers and numeric strings.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
