package core

import "time"

// Holding represents a single position in the brokerage portfolio.
type Holding struct {
	ISIN            string  `json:"isin"`
	Symbol          string  `json:"symbol"`
	InstrumentToken string  `json:"instrument_token"`
	Quantity        int     `json:"quantity"`
	AveragePrice    float64 `json:"average_price"`
	LastPrice       float64 `json:"last_price"`
	PnL             float64 `json:"pnl"`
	DayChangePct    float64 `json:"day_change_pct"`
}

// Value returns the current market value of the holding.
func (h Holding) Value() float64 {
	return float64(h.Quantity) * h.LastPrice
}

// IsValid checks if the holding has the required fields.
func (h Holding) IsValid() bool {
	return h.Symbol != "" && h.Quantity >= 0
}

// PortfolioSummary holds aggregate portfolio figures.
type PortfolioSummary struct {
	TotalValue  float64 `json:"total_value"`
	TotalPnL    float64 `json:"total_pnl"`
	TotalStocks int     `json:"total_stocks"`
	DayChange   float64 `json:"day_change"`
}

// PortfolioSnapshot is the immutable working view of the portfolio for one
// pipeline run. At most one snapshot is persisted per calendar day.
type PortfolioSnapshot struct {
	Holdings   []Holding        `json:"holdings"`
	Summary    PortfolioSummary `json:"summary"`
	CapturedAt time.Time        `json:"captured_at"`
}

// DateKey returns the calendar-day key used for persistence.
func (s PortfolioSnapshot) DateKey() string {
	return s.CapturedAt.Format("2006-01-02")
}

// IndexQuote is a point-in-time index level with its daily change.
type IndexQuote struct {
	Close     float64 `json:"close"`
	ChangePct float64 `json:"change_pct"`
}

// FXQuote is a point-in-time exchange rate with its daily change.
type FXQuote struct {
	Rate      float64 `json:"rate"`
	ChangePct float64 `json:"change_pct"`
}

// MarketContext is a single point-in-time market read per run. A zeroed
// context is a legal value: market fetch failure must not abort a run.
type MarketContext struct {
	Benchmark IndexQuote `json:"benchmark"` // Nifty 50
	Secondary IndexQuote `json:"secondary"` // Sensex
	FX        FXQuote    `json:"fx"`        // USD/INR
	FetchedAt time.Time  `json:"fetched_at"`
}

// IsZero reports whether the context carries no market data.
func (m MarketContext) IsZero() bool {
	return m.Benchmark.Close == 0 && m.Secondary.Close == 0 && m.FX.Rate == 0
}

// SignalKind classifies a derived signal.
type SignalKind string

const (
	SignalDrift     SignalKind = "drift"
	SignalValuation SignalKind = "valuation"
	SignalMomentum  SignalKind = "momentum"
	SignalRisk      SignalKind = "risk"
)

// SignalAction is the rebalancing direction a signal suggests.
type SignalAction string

const (
	SignalBuy  SignalAction = "BUY"
	SignalTrim SignalAction = "TRIM"
)

// Signal is a derived observation about one holding. Signals are inputs to
// idea generation and are not persisted directly.
type Signal struct {
	Symbol        string       `json:"symbol"`
	Kind          SignalKind   `json:"kind"`
	Magnitude     float64      `json:"magnitude"` // e.g. drift percentage for drift signals
	CurrentWeight float64      `json:"current_weight"`
	TargetWeight  float64      `json:"target_weight"`
	Action        SignalAction `json:"action"`
	Confidence    float64      `json:"confidence"`
}

// TradeAction is the direction of a trade idea. HOLD is excluded by design:
// the generator is asked for actionable calls only.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// TradeIdea is a candidate trade produced by the idea generator and consumed
// by the risk gate and critic stages.
type TradeIdea struct {
	Action     TradeAction `json:"action"`
	Symbol     string      `json:"symbol"`
	Quantity   int         `json:"quantity"`
	LimitPrice float64     `json:"limit_price"`
	Confidence float64     `json:"confidence"`
	Rationale  string      `json:"rationale"`
}

// IsValid checks the idea invariants: positive quantity and price,
// confidence in [0,1], and a BUY/SELL action.
func (i TradeIdea) IsValid() bool {
	if i.Action != ActionBuy && i.Action != ActionSell {
		return false
	}
	return i.Symbol != "" && i.Quantity > 0 && i.LimitPrice > 0 &&
		i.Confidence >= 0 && i.Confidence <= 1
}

// RecommendationStatus tracks the execution lifecycle of a persisted idea.
type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "pending"
	StatusExecuted RecommendationStatus = "executed"
	StatusRejected RecommendationStatus = "rejected"
)

// TradeRecommendation is a persisted trade idea. It is owned by the tracking
// engine and mutated only through explicit status updates.
type TradeRecommendation struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	TradeIdea
	Status         RecommendationStatus `json:"status"`
	ExecutionPrice *float64             `json:"execution_price,omitempty"`
	ExecutionTime  *time.Time           `json:"execution_time,omitempty"`
	RealizedPnL    *float64             `json:"realized_pnl,omitempty"`
}

// Profitable reports whether the recommendation closed with positive pnl.
func (r TradeRecommendation) Profitable() bool {
	return r.RealizedPnL != nil && *r.RealizedPnL > 0
}

// PerformanceMetrics is the per-run performance record. Alpha is always
// PortfolioReturn minus BenchmarkReturn.
type PerformanceMetrics struct {
	PortfolioReturn  float64 `json:"portfolio_return"`
	BenchmarkReturn  float64 `json:"benchmark_return"`
	Alpha            float64 `json:"alpha"`
	WinRate          float64 `json:"win_rate"`
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
}

// PositionChange describes a position that appeared or disappeared between
// two snapshots.
type PositionChange struct {
	Symbol   string  `json:"symbol"`
	Quantity int     `json:"quantity"`
	Value    float64 `json:"value"`
}

// QuantityChange describes a position whose size changed between snapshots.
type QuantityChange struct {
	Symbol           string `json:"symbol"`
	PreviousQuantity int    `json:"previous_quantity"`
	CurrentQuantity  int    `json:"current_quantity"`
	Delta            int    `json:"delta"`
}

// PortfolioChanges is the structural diff of holdings across two runs.
type PortfolioChanges struct {
	NewPositions    []PositionChange `json:"new_positions"`
	ExitedPositions []PositionChange `json:"exited_positions"`
	QuantityChanges []QuantityChange `json:"quantity_changes"`
}

// Empty reports whether the diff recorded no changes.
func (c PortfolioChanges) Empty() bool {
	return len(c.NewPositions) == 0 && len(c.ExitedPositions) == 0 && len(c.QuantityChanges) == 0
}
