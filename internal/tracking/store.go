// Package tracking persists daily pipeline output and derives performance
// metrics from the accumulated history.
package tracking

import (
	"context"

	"github.com/akshayg/coach/internal/core"
)

// DailySummary is one row of the joined daily history view.
type DailySummary struct {
	Date            string   `json:"date"`
	TotalValue      float64  `json:"total_value"`
	TotalPnL        float64  `json:"total_pnl"`
	TotalStocks     int      `json:"total_stocks"`
	PortfolioReturn *float64 `json:"portfolio_return,omitempty"`
	BenchmarkReturn *float64 `json:"benchmark_return,omitempty"`
	Alpha           *float64 `json:"alpha,omitempty"`
	Recommendations int      `json:"recommendations"`
	Executed        int      `json:"executed"`
}

// Store is the persistence boundary of the tracking engine. All date
// parameters are calendar-day keys in "2006-01-02" form.
type Store interface {
	// SaveSnapshot persists a snapshot under its DateKey. When a snapshot
	// already exists for that day, overwrite decides between replacing it
	// and returning ErrSnapshotExists.
	SaveSnapshot(ctx context.Context, snap core.PortfolioSnapshot, overwrite bool) error
	SnapshotByDate(ctx context.Context, date string) (*core.PortfolioSnapshot, error)
	// LatestSnapshot returns the most recent snapshot of any date, or nil
	// when the store is empty.
	LatestSnapshot(ctx context.Context) (*core.PortfolioSnapshot, error)
	// LatestSnapshotBefore returns the most recent snapshot strictly
	// before the given date, or nil when none exists.
	LatestSnapshotBefore(ctx context.Context, date string) (*core.PortfolioSnapshot, error)

	SaveMarketData(ctx context.Context, date string, mc core.MarketContext) error
	MarketDataByDate(ctx context.Context, date string) (*core.MarketContext, error)

	// SaveRecommendations replaces the recommendation set for the dates the
	// given records carry. Re-running a day never duplicates rows.
	SaveRecommendations(ctx context.Context, recs []core.TradeRecommendation) error
	RecommendationsByDate(ctx context.Context, date string) ([]core.TradeRecommendation, error)
	// RecommendationHistory returns recommendations from the last N days,
	// newest date first, highest confidence first within a date.
	RecommendationHistory(ctx context.Context, days int) ([]core.TradeRecommendation, error)
	UpdateRecommendationStatus(ctx context.Context, id string, status core.RecommendationStatus, executionPrice, realizedPnL *float64) error

	SaveMetrics(ctx context.Context, date string, m core.PerformanceMetrics) error
	MetricsByDate(ctx context.Context, date string) (*core.PerformanceMetrics, error)

	DailySummaries(ctx context.Context, days int) ([]DailySummary, error)

	Close() error
}
