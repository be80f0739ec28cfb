package portfolio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

func TestBuildSnapshot(t *testing.T) {
	now := time.Now()

	t.Run("drops unusable holdings and recomputes summary", func(t *testing.T) {
		holdings := []core.Holding{
			{Symbol: "TCS", Quantity: 10, LastPrice: 3600, PnL: 500, DayChangePct: 2.5},
			{Symbol: "", Quantity: 5, LastPrice: 100},
			{Symbol: "INFY", Quantity: 0, LastPrice: 1500},
			{Symbol: "WIPRO", Quantity: 10, LastPrice: 0},
		}

		snap := BuildSnapshot(holdings, now)
		require.Len(t, snap.Holdings, 1)
		assert.Equal(t, "TCS", snap.Holdings[0].Symbol)
		assert.InDelta(t, 36000, snap.Summary.TotalValue, 1e-9)
		assert.InDelta(t, 500, snap.Summary.TotalPnL, 1e-9)
		assert.Equal(t, 1, snap.Summary.TotalStocks)
		assert.InDelta(t, 900, snap.Summary.DayChange, 1e-9)
		assert.Equal(t, now, snap.CapturedAt)
	})

	t.Run("empty input", func(t *testing.T) {
		snap := BuildSnapshot(nil, now)
		assert.Empty(t, snap.Holdings)
		assert.Zero(t, snap.Summary.TotalValue)
	})
}

func TestUpstoxSnapshot(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/portfolio/long-term-holdings", r.URL.Path)
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"success","data":[
				{"isin":"INE467B01029","trading_symbol":"TCS","instrument_token":"NSE_EQ|INE467B01029","quantity":10,"average_price":3550,"last_price":3600,"pnl":500,"day_change_percentage":2.5},
				{"isin":"INE009A01021","trading_symbol":"INFY","quantity":0,"last_price":1500}
			]}`)
		}))
		defer srv.Close()

		c := NewUpstoxClient(config.BrokerConfig{
			AccessToken: "token-123",
			BaseURL:     srv.URL,
		}, zap.NewNop())

		snap, err := c.Snapshot(context.Background())
		require.NoError(t, err)
		require.Len(t, snap.Holdings, 1, "zero-quantity holding dropped")
		assert.Equal(t, "TCS", snap.Holdings[0].Symbol)
		assert.Equal(t, "NSE_EQ|INE467B01029", snap.Holdings[0].InstrumentToken)
		assert.InDelta(t, 36000, snap.Summary.TotalValue, 1e-9)
	})

	t.Run("http error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewUpstoxClient(config.BrokerConfig{AccessToken: "bad", BaseURL: srv.URL}, zap.NewNop())

		_, err := c.Snapshot(context.Background())
		assert.ErrorIs(t, err, core.ErrHoldingsUnavailable)
	})

	t.Run("non-success payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"error","data":[]}`)
		}))
		defer srv.Close()

		c := NewUpstoxClient(config.BrokerConfig{AccessToken: "t", BaseURL: srv.URL}, zap.NewNop())

		_, err := c.Snapshot(context.Background())
		assert.ErrorIs(t, err, core.ErrHoldingsUnavailable)
	})
}

type stubProvider struct {
	snap core.PortfolioSnapshot
	err  error
}

func (s *stubProvider) Snapshot(context.Context) (core.PortfolioSnapshot, error) {
	return s.snap, s.err
}

type stubSource struct {
	snap *core.PortfolioSnapshot
	err  error
}

func (s *stubSource) LatestSnapshot(context.Context) (*core.PortfolioSnapshot, error) {
	return s.snap, s.err
}

func TestResilientSnapshot(t *testing.T) {
	live := core.PortfolioSnapshot{
		Holdings: []core.Holding{{Symbol: "TCS", Quantity: 10, LastPrice: 3600}},
	}
	persisted := core.PortfolioSnapshot{
		Holdings:   []core.Holding{{Symbol: "INFY", Quantity: 5, LastPrice: 1500}},
		CapturedAt: time.Now().Add(-24 * time.Hour),
	}

	t.Run("live provider preferred", func(t *testing.T) {
		r := NewResilient(&stubProvider{snap: live}, &stubSource{snap: &persisted}, zap.NewNop())

		snap, err := r.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "TCS", snap.Holdings[0].Symbol)
	})

	t.Run("falls back to persisted snapshot", func(t *testing.T) {
		r := NewResilient(&stubProvider{err: errors.New("broker down")}, &stubSource{snap: &persisted}, zap.NewNop())

		snap, err := r.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INFY", snap.Holdings[0].Symbol)
	})

	t.Run("both fail", func(t *testing.T) {
		r := NewResilient(&stubProvider{err: errors.New("broker down")}, &stubSource{err: errors.New("db down")}, zap.NewNop())

		_, err := r.Snapshot(context.Background())
		assert.ErrorIs(t, err, core.ErrHoldingsUnavailable)
	})

	t.Run("no store", func(t *testing.T) {
		r := NewResilient(&stubProvider{err: errors.New("broker down")}, nil, zap.NewNop())

		_, err := r.Snapshot(context.Background())
		assert.ErrorIs(t, err, core.ErrHoldingsUnavailable)
	})
}
