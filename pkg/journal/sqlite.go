package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, lot_id, symbol, shares, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.LotID, t.Symbol, t.Shares, t.EntryPrice,
		t.ExitPrice, t.OpenTime, t.CloseTime, t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, buying_power, equity, open_lots)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.BuyingPower, e.Equity, e.OpenLots,
	)
	return err
}

func (j *SQLite) RecordEvent(e EventRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO events (run_id, date, logged, message)
		VALUES (?, ?, ?, ?)`,
		e.RunID, e.Date, e.Logged, e.Message,
	)
	return err
}

// RecordBacktest stores the run summary, replacing an earlier row with the
// same run ID.
func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, strategy, dataset, symbols, half_bake, start_date, end_date,
		 stock_days, sales, wins, losses, start_equity, end_equity, end_buying_power,
		 net_pl, return_pct, win_rate, per_day, per_trade, profit_factor, max_dd_pct,
		 config, org_path, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Dataset, r.Symbols, r.HalfBake, r.Start, r.End,
		r.StockDays, r.Sales, r.Wins, r.Losses, r.StartEquity, r.EndEquity, r.EndBuyingPower,
		r.NetPL, r.ReturnPct, r.WinRate, r.PerDay, r.PerTrade, r.ProfitFactor, r.MaxDDPct,
		string(r.Config), r.OrgPath, strings.Join(r.Notes, "\n"),
	)
	if err != nil {
		return fmt.Errorf("record backtest %s: %w", r.RunID, err)
	}
	return nil
}

// ExportBacktestOrg loads a run with its trades and returns the Org block.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	out, err := FormatBacktestOrg(run)
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return out, nil
	}

	// Demote trade headings one level under the run.
	var b strings.Builder
	b.WriteString(out)
	b.WriteString("\n** Trades\n")
	for _, t := range trades {
		b.WriteString("*")
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String(), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
