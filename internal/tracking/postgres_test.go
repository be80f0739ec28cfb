package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/akshayg/coach/internal/core"
)

// setupPostgres starts a disposable postgres container and returns a
// migrated store. Skipped with -short.
func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("coach_test"),
		tcpostgres.WithUsername("coach"),
		tcpostgres.WithPassword("coach"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	today := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	snap := core.PortfolioSnapshot{
		Holdings: []core.Holding{
			{ISIN: "INE467B01029", Symbol: "TCS", InstrumentToken: "NSE_EQ|INE467B01029",
				Quantity: 10, AveragePrice: 3550, LastPrice: 3600, PnL: 500, DayChangePct: 2.5},
		},
		Summary:    core.PortfolioSummary{TotalValue: 36000, TotalPnL: 500, TotalStocks: 1},
		CapturedAt: today,
	}

	t.Run("snapshot round trip", func(t *testing.T) {
		require.NoError(t, store.SaveSnapshot(ctx, snap, false))

		got, err := store.SnapshotByDate(ctx, "2025-03-10")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Holdings, 1)
		assert.Equal(t, "TCS", got.Holdings[0].Symbol)
		assert.Equal(t, "NSE_EQ|INE467B01029", got.Holdings[0].InstrumentToken)
		assert.InDelta(t, 36000, got.Summary.TotalValue, 0.01)
	})

	t.Run("duplicate snapshot policy", func(t *testing.T) {
		err := store.SaveSnapshot(ctx, snap, false)
		assert.ErrorIs(t, err, core.ErrSnapshotExists)

		assert.NoError(t, store.SaveSnapshot(ctx, snap, true))
	})

	t.Run("latest before excludes the date itself", func(t *testing.T) {
		older := snap
		older.CapturedAt = today.AddDate(0, 0, -3)
		older.Summary.TotalValue = 34000
		require.NoError(t, store.SaveSnapshot(ctx, older, true))

		got, err := store.LatestSnapshotBefore(ctx, "2025-03-10")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.InDelta(t, 34000, got.Summary.TotalValue, 0.01)

		latest, err := store.LatestSnapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.InDelta(t, 36000, latest.Summary.TotalValue, 0.01)
	})

	t.Run("market data round trip", func(t *testing.T) {
		mc := core.MarketContext{
			Benchmark: core.IndexQuote{Close: 24000, ChangePct: 0.84},
			Secondary: core.IndexQuote{Close: 79000, ChangePct: -0.63},
			FX:        core.FXQuote{Rate: 84.5, ChangePct: 0.12},
			FetchedAt: today,
		}
		require.NoError(t, store.SaveMarketData(ctx, "2025-03-10", mc))
		// Idempotent rerun.
		require.NoError(t, store.SaveMarketData(ctx, "2025-03-10", mc))

		got, err := store.MarketDataByDate(ctx, "2025-03-10")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.InDelta(t, 24000, got.Benchmark.Close, 0.01)
		assert.InDelta(t, 84.5, got.FX.Rate, 0.01)
	})

	t.Run("recommendations lifecycle", func(t *testing.T) {
		recs := []core.TradeRecommendation{
			{ID: "11111111-1111-1111-1111-111111111111", Date: today, Status: core.StatusPending,
				TradeIdea: core.TradeIdea{Action: core.ActionBuy, Symbol: "INFY", Quantity: 3, LimitPrice: 1500, Confidence: 0.8, Rationale: "r"}},
			{ID: "22222222-2222-2222-2222-222222222222", Date: today, Status: core.StatusPending,
				TradeIdea: core.TradeIdea{Action: core.ActionSell, Symbol: "TCS", Quantity: 5, LimitPrice: 3672, Confidence: 0.9, Rationale: "r"}},
		}
		require.NoError(t, store.SaveRecommendations(ctx, recs))
		// Replaying the same day replaces rather than duplicates.
		require.NoError(t, store.SaveRecommendations(ctx, recs))

		got, err := store.RecommendationsByDate(ctx, "2025-03-10")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "TCS", got[0].Symbol, "highest confidence first")

		price := 3670.0
		pnl := 350.0
		require.NoError(t, store.UpdateRecommendationStatus(ctx,
			"22222222-2222-2222-2222-222222222222", core.StatusExecuted, &price, &pnl))

		hist, err := store.RecommendationHistory(ctx, 3650)
		require.NoError(t, err)
		var executed *core.TradeRecommendation
		for i := range hist {
			if hist[i].Status == core.StatusExecuted {
				executed = &hist[i]
			}
		}
		require.NotNil(t, executed)
		require.NotNil(t, executed.ExecutionPrice)
		assert.InDelta(t, 3670.0, *executed.ExecutionPrice, 0.01)
		assert.True(t, executed.Profitable())

		err = store.UpdateRecommendationStatus(ctx,
			"33333333-3333-3333-3333-333333333333", core.StatusRejected, nil, nil)
		assert.ErrorIs(t, err, core.ErrRecommendation)
	})

	t.Run("metrics round trip", func(t *testing.T) {
		m := core.PerformanceMetrics{
			PortfolioReturn: 1.2, BenchmarkReturn: 0.8, Alpha: 0.4,
			WinRate: 50, TotalTrades: 2, ProfitableTrades: 1,
		}
		require.NoError(t, store.SaveMetrics(ctx, "2025-03-10", m))
		require.NoError(t, store.SaveMetrics(ctx, "2025-03-10", m))

		got, err := store.MetricsByDate(ctx, "2025-03-10")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.InDelta(t, 0.4, got.Alpha, 0.0001)
		assert.Equal(t, 2, got.TotalTrades)
	})

	t.Run("daily summaries join", func(t *testing.T) {
		rows, err := store.DailySummaries(ctx, 3650)
		require.NoError(t, err)
		require.NotEmpty(t, rows)

		first := rows[0]
		assert.Equal(t, "2025-03-10", first.Date)
		assert.Equal(t, 2, first.Recommendations)
		assert.Equal(t, 1, first.Executed)
		require.NotNil(t, first.Alpha)
		assert.InDelta(t, 0.4, *first.Alpha, 0.0001)
	})
}
