package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoldingValue(t *testing.T) {
	h := Holding{Symbol: "TCS", Quantity: 10, LastPrice: 3600}
	assert.Equal(t, 36000.0, h.Value())
}

func TestHoldingIsValid(t *testing.T) {
	tests := []struct {
		name    string
		holding Holding
		valid   bool
	}{
		{"valid holding", Holding{Symbol: "INFY", Quantity: 5, LastPrice: 1500}, true},
		{"zero quantity is valid", Holding{Symbol: "INFY", Quantity: 0}, true},
		{"negative quantity", Holding{Symbol: "INFY", Quantity: -1}, false},
		{"missing symbol", Holding{Quantity: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.holding.IsValid())
		})
	}
}

func TestSnapshotDateKey(t *testing.T) {
	s := PortfolioSnapshot{CapturedAt: time.Date(2024, 3, 15, 8, 45, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-15", s.DateKey())
}

func TestMarketContextIsZero(t *testing.T) {
	assert.True(t, MarketContext{}.IsZero())
	assert.False(t, MarketContext{Benchmark: IndexQuote{Close: 22000}}.IsZero())
	assert.False(t, MarketContext{FX: FXQuote{Rate: 83.5}}.IsZero())
}

func TestTradeIdeaIsValid(t *testing.T) {
	valid := TradeIdea{Action: ActionBuy, Symbol: "TCS", Quantity: 10, LimitPrice: 3600, Confidence: 0.8}
	assert.True(t, valid.IsValid())

	tests := []struct {
		name   string
		mutate func(*TradeIdea)
	}{
		{"hold action", func(i *TradeIdea) { i.Action = "HOLD" }},
		{"zero quantity", func(i *TradeIdea) { i.Quantity = 0 }},
		{"negative price", func(i *TradeIdea) { i.LimitPrice = -1 }},
		{"confidence above one", func(i *TradeIdea) { i.Confidence = 1.2 }},
		{"empty symbol", func(i *TradeIdea) { i.Symbol = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idea := valid
			tt.mutate(&idea)
			assert.False(t, idea.IsValid())
		})
	}
}

func TestRecommendationProfitable(t *testing.T) {
	pnl := 250.0
	loss := -100.0
	assert.True(t, TradeRecommendation{RealizedPnL: &pnl}.Profitable())
	assert.False(t, TradeRecommendation{RealizedPnL: &loss}.Profitable())
	assert.False(t, TradeRecommendation{}.Profitable())
}

func TestPortfolioChangesEmpty(t *testing.T) {
	assert.True(t, PortfolioChanges{}.Empty())
	assert.False(t, PortfolioChanges{
		NewPositions: []PositionChange{{Symbol: "TCS", Quantity: 10}},
	}.Empty())
}
