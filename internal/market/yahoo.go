package market

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooClient reads index levels and FX rates from the Yahoo Finance
// chart API.
type YahooClient struct {
	client    *resty.Client
	benchmark string
	secondary string
	fx        string
	log       *zap.Logger
}

// NewYahooClient creates a client for the configured benchmark, secondary
// index and FX pair symbols.
func NewYahooClient(cfg config.MarketConfig, log *zap.Logger) *YahooClient {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(yahooChartURL)
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; coach/1.0)")

	return &YahooClient{
		client:    client,
		benchmark: cfg.BenchmarkSymbol,
		secondary: cfg.SecondarySymbol,
		fx:        cfg.FXSymbol,
		log:       log,
	}
}

// Context fetches all three quotes. Individual quote failures zero that
// slot only; an error is returned when nothing could be fetched.
func (y *YahooClient) Context(ctx context.Context) (core.MarketContext, error) {
	var mc core.MarketContext
	var fetched int

	if q, err := y.quote(ctx, y.benchmark); err != nil {
		y.log.Warn("benchmark quote fetch failed", zap.String("symbol", y.benchmark), zap.Error(err))
	} else {
		mc.Benchmark = q
		fetched++
	}

	if q, err := y.quote(ctx, y.secondary); err != nil {
		y.log.Warn("secondary quote fetch failed", zap.String("symbol", y.secondary), zap.Error(err))
	} else {
		mc.Secondary = q
		fetched++
	}

	if q, err := y.quote(ctx, y.fx); err != nil {
		y.log.Warn("fx quote fetch failed", zap.String("symbol", y.fx), zap.Error(err))
	} else {
		mc.FX = core.FXQuote{Rate: q.Close, ChangePct: q.ChangePct}
		fetched++
	}

	if fetched == 0 {
		return core.MarketContext{}, core.WrapError(core.ErrMarketUnavailable, nil)
	}

	mc.FetchedAt = time.Now()
	return mc, nil
}

func (y *YahooClient) quote(ctx context.Context, symbol string) (core.IndexQuote, error) {
	if symbol == "" {
		return core.IndexQuote{}, fmt.Errorf("symbol not configured")
	}

	var result chartResponse
	resp, err := y.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "5d",
		}).
		SetResult(&result).
		Get("/{symbol}")
	if err != nil {
		return core.IndexQuote{}, fmt.Errorf("fetching quote: %w", err)
	}
	if resp.IsError() {
		return core.IndexQuote{}, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}
	if result.Chart.Error != nil {
		return core.IndexQuote{}, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 {
		return core.IndexQuote{}, fmt.Errorf("no data for symbol: %s", symbol)
	}

	meta := result.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return core.IndexQuote{}, fmt.Errorf("empty quote for symbol: %s", symbol)
	}

	q := core.IndexQuote{Close: meta.RegularMarketPrice}
	if meta.ChartPreviousClose > 0 {
		q.ChangePct = (meta.RegularMarketPrice - meta.ChartPreviousClose) / meta.ChartPreviousClose * 100
	}
	return q, nil
}

// Yahoo chart API response types.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

type chartMeta struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
	RegularMarketTime  int     `json:"regularMarketTime"`
}
