package tracking

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/akshayg/coach/internal/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and applies pending migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap core.PortfolioSnapshot, overwrite bool) error {
	holdings, err := json.Marshal(snap.Holdings)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}

	if !overwrite {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM portfolio_snapshots WHERE date = $1)`,
			snap.DateKey()).Scan(&exists)
		if err != nil {
			return core.WrapError(core.ErrStoreFailed, err)
		}
		if exists {
			return core.ErrSnapshotExists
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (date, total_value, total_pnl, total_stocks, day_change, holdings, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			total_pnl = EXCLUDED.total_pnl,
			total_stocks = EXCLUDED.total_stocks,
			day_change = EXCLUDED.day_change,
			holdings = EXCLUDED.holdings,
			captured_at = EXCLUDED.captured_at`,
		snap.DateKey(), snap.Summary.TotalValue, snap.Summary.TotalPnL,
		snap.Summary.TotalStocks, snap.Summary.DayChange, holdings, snap.CapturedAt)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

const snapshotColumns = `total_value, total_pnl, total_stocks, day_change, holdings, captured_at`

func (s *PostgresStore) SnapshotByDate(ctx context.Context, date string) (*core.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots WHERE date = $1`, date)
	return scanSnapshot(row)
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*core.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots ORDER BY date DESC LIMIT 1`)
	return scanSnapshot(row)
}

func (s *PostgresStore) LatestSnapshotBefore(ctx context.Context, date string) (*core.PortfolioSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM portfolio_snapshots WHERE date < $1 ORDER BY date DESC LIMIT 1`, date)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*core.PortfolioSnapshot, error) {
	var snap core.PortfolioSnapshot
	var holdings []byte
	err := row.Scan(&snap.Summary.TotalValue, &snap.Summary.TotalPnL,
		&snap.Summary.TotalStocks, &snap.Summary.DayChange, &holdings, &snap.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	if err := json.Unmarshal(holdings, &snap.Holdings); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return &snap, nil
}

func (s *PostgresStore) SaveMarketData(ctx context.Context, date string, mc core.MarketContext) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_data (date, nifty_close, nifty_change_pct, sensex_close, sensex_change_pct, usd_inr_rate, usd_inr_change_pct, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			nifty_close = EXCLUDED.nifty_close,
			nifty_change_pct = EXCLUDED.nifty_change_pct,
			sensex_close = EXCLUDED.sensex_close,
			sensex_change_pct = EXCLUDED.sensex_change_pct,
			usd_inr_rate = EXCLUDED.usd_inr_rate,
			usd_inr_change_pct = EXCLUDED.usd_inr_change_pct,
			fetched_at = EXCLUDED.fetched_at`,
		date, mc.Benchmark.Close, mc.Benchmark.ChangePct,
		mc.Secondary.Close, mc.Secondary.ChangePct,
		mc.FX.Rate, mc.FX.ChangePct, nullTime(mc.FetchedAt))
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (s *PostgresStore) MarketDataByDate(ctx context.Context, date string) (*core.MarketContext, error) {
	var mc core.MarketContext
	var fetchedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT nifty_close, nifty_change_pct, sensex_close, sensex_change_pct, usd_inr_rate, usd_inr_change_pct, fetched_at
		FROM market_data WHERE date = $1`, date).
		Scan(&mc.Benchmark.Close, &mc.Benchmark.ChangePct,
			&mc.Secondary.Close, &mc.Secondary.ChangePct,
			&mc.FX.Rate, &mc.FX.ChangePct, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	if fetchedAt.Valid {
		mc.FetchedAt = fetchedAt.Time
	}
	return &mc, nil
}

func (s *PostgresStore) SaveRecommendations(ctx context.Context, recs []core.TradeRecommendation) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer tx.Rollback()

	dates := map[string]bool{}
	for _, r := range recs {
		dates[r.Date.Format("2006-01-02")] = true
	}
	for date := range dates {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM trade_recommendations WHERE date = $1`, date); err != nil {
			return core.WrapError(core.ErrStoreFailed, err)
		}
	}

	for _, r := range recs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trade_recommendations (id, date, action, symbol, quantity, limit_price, confidence, rationale, status, execution_price, execution_time, realized_pnl)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			r.ID, r.Date.Format("2006-01-02"), string(r.Action), r.Symbol,
			r.Quantity, r.LimitPrice, r.Confidence, r.Rationale, string(r.Status),
			r.ExecutionPrice, r.ExecutionTime, r.RealizedPnL)
		if err != nil {
			return core.WrapError(core.ErrStoreFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

const recommendationColumns = `id, date, action, symbol, quantity, limit_price, confidence, rationale, status, execution_price, execution_time, realized_pnl`

func (s *PostgresStore) RecommendationsByDate(ctx context.Context, date string) ([]core.TradeRecommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recommendationColumns+` FROM trade_recommendations WHERE date = $1 ORDER BY confidence DESC`, date)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()
	return scanRecommendations(rows)
}

func (s *PostgresStore) RecommendationHistory(ctx context.Context, days int) ([]core.TradeRecommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recommendationColumns+` FROM trade_recommendations
		 WHERE date >= CURRENT_DATE - $1 * INTERVAL '1 day'
		 ORDER BY date DESC, confidence DESC`, days)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()
	return scanRecommendations(rows)
}

func scanRecommendations(rows *sql.Rows) ([]core.TradeRecommendation, error) {
	var out []core.TradeRecommendation
	for rows.Next() {
		var r core.TradeRecommendation
		var action, status string
		var execPrice, realized sql.NullFloat64
		var execTime sql.NullTime
		err := rows.Scan(&r.ID, &r.Date, &action, &r.Symbol, &r.Quantity,
			&r.LimitPrice, &r.Confidence, &r.Rationale, &status,
			&execPrice, &execTime, &realized)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		r.Action = core.TradeAction(action)
		r.Status = core.RecommendationStatus(status)
		if execPrice.Valid {
			r.ExecutionPrice = &execPrice.Float64
		}
		if execTime.Valid {
			r.ExecutionTime = &execTime.Time
		}
		if realized.Valid {
			r.RealizedPnL = &realized.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateRecommendationStatus(ctx context.Context, id string, status core.RecommendationStatus, executionPrice, realizedPnL *float64) error {
	var execTime any
	if status == core.StatusExecuted {
		execTime = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE trade_recommendations
		SET status = $2, execution_price = $3, execution_time = $4, realized_pnl = $5
		WHERE id = $1`,
		id, string(status), executionPrice, execTime, realizedPnL)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if n == 0 {
		return core.WrapError(core.ErrRecommendation, fmt.Errorf("no recommendation with id %s", id))
	}
	return nil
}

func (s *PostgresStore) SaveMetrics(ctx context.Context, date string, m core.PerformanceMetrics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_metrics (date, portfolio_return, benchmark_return, alpha, win_rate, total_trades, profitable_trades)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			portfolio_return = EXCLUDED.portfolio_return,
			benchmark_return = EXCLUDED.benchmark_return,
			alpha = EXCLUDED.alpha,
			win_rate = EXCLUDED.win_rate,
			total_trades = EXCLUDED.total_trades,
			profitable_trades = EXCLUDED.profitable_trades`,
		date, m.PortfolioReturn, m.BenchmarkReturn, m.Alpha,
		m.WinRate, m.TotalTrades, m.ProfitableTrades)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

func (s *PostgresStore) MetricsByDate(ctx context.Context, date string) (*core.PerformanceMetrics, error) {
	var m core.PerformanceMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT portfolio_return, benchmark_return, alpha, win_rate, total_trades, profitable_trades
		FROM performance_metrics WHERE date = $1`, date).
		Scan(&m.PortfolioReturn, &m.BenchmarkReturn, &m.Alpha,
			&m.WinRate, &m.TotalTrades, &m.ProfitableTrades)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return &m, nil
}

func (s *PostgresStore) DailySummaries(ctx context.Context, days int) ([]DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ps.date, ps.total_value, ps.total_pnl, ps.total_stocks,
		       pm.portfolio_return, pm.benchmark_return, pm.alpha,
		       COUNT(tr.id) AS recommendations,
		       COUNT(CASE WHEN tr.status = 'executed' THEN 1 END) AS executed
		FROM portfolio_snapshots ps
		LEFT JOIN performance_metrics pm ON ps.date = pm.date
		LEFT JOIN trade_recommendations tr ON ps.date = tr.date
		WHERE ps.date >= CURRENT_DATE - $1 * INTERVAL '1 day'
		GROUP BY ps.date, ps.total_value, ps.total_pnl, ps.total_stocks,
		         pm.portfolio_return, pm.benchmark_return, pm.alpha
		ORDER BY ps.date DESC`, days)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var d DailySummary
		var date time.Time
		var pr, br, alpha sql.NullFloat64
		err := rows.Scan(&date, &d.TotalValue, &d.TotalPnL, &d.TotalStocks,
			&pr, &br, &alpha, &d.Recommendations, &d.Executed)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		d.Date = date.Format("2006-01-02")
		if pr.Valid {
			d.PortfolioReturn = &pr.Float64
		}
		if br.Valid {
			d.BenchmarkReturn = &br.Float64
		}
		if alpha.Valid {
			d.Alpha = &alpha.Float64
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return out, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
