package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
)

const defaultUpstoxBaseURL = "https://api.upstox.com/v2"

// UpstoxClient fetches long-term holdings from the Upstox REST API.
type UpstoxClient struct {
	client *resty.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewUpstoxClient builds a client from broker configuration. The access
// token must already be issued; this client does not run the OAuth flow.
func NewUpstoxClient(cfg config.BrokerConfig, log *zap.Logger) *UpstoxClient {
	if log == nil {
		log = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultUpstoxBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetAuthToken(cfg.AccessToken)
	client.SetHeader("Accept", "application/json")

	return &UpstoxClient{client: client, log: log, now: time.Now}
}

// Snapshot fetches current holdings and normalizes them.
func (u *UpstoxClient) Snapshot(ctx context.Context) (core.PortfolioSnapshot, error) {
	var result holdingsResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/portfolio/long-term-holdings")
	if err != nil {
		return core.PortfolioSnapshot{}, core.WrapError(core.ErrHoldingsUnavailable, err)
	}
	if resp.IsError() {
		return core.PortfolioSnapshot{}, core.WrapError(core.ErrHoldingsUnavailable,
			fmt.Errorf("upstox returned status %d", resp.StatusCode()))
	}
	if result.Status != "success" {
		return core.PortfolioSnapshot{}, core.WrapError(core.ErrHoldingsUnavailable,
			fmt.Errorf("upstox returned status %q", result.Status))
	}

	holdings := make([]core.Holding, 0, len(result.Data))
	for _, h := range result.Data {
		holdings = append(holdings, core.Holding{
			ISIN:            h.ISIN,
			Symbol:          h.TradingSymbol,
			InstrumentToken: h.InstrumentToken,
			Quantity:        h.Quantity,
			AveragePrice:    h.AveragePrice,
			LastPrice:       h.LastPrice,
			PnL:             h.PnL,
			DayChangePct:    h.DayChangePercentage,
		})
	}

	snap := BuildSnapshot(holdings, u.now())
	u.log.Info("holdings fetched",
		zap.Int("received", len(result.Data)),
		zap.Int("kept", len(snap.Holdings)),
		zap.Float64("total_value", snap.Summary.TotalValue))
	return snap, nil
}

// Upstox API response types.
type holdingsResponse struct {
	Status string          `json:"status"`
	Data   []upstoxHolding `json:"data"`
}

type upstoxHolding struct {
	ISIN                string  `json:"isin"`
	TradingSymbol       string  `json:"trading_symbol"`
	CompanyName         string  `json:"company_name"`
	InstrumentToken     string  `json:"instrument_token"`
	Quantity            int     `json:"quantity"`
	AveragePrice        float64 `json:"average_price"`
	LastPrice           float64 `json:"last_price"`
	ClosePrice          float64 `json:"close_price"`
	PnL                 float64 `json:"pnl"`
	DayChange           float64 `json:"day_change"`
	DayChangePercentage float64 `json:"day_change_percentage"`
	Exchange            string  `json:"exchange"`
	Product             string  `json:"product"`
}
