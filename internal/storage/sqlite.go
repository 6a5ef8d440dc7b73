// Package storage persists backtest runs and their trades in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"llm-crypto-trader/internal/backtest"
	"llm-crypto-trader/internal/money"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    policy           TEXT     NOT NULL,
    symbol           TEXT     NOT NULL,
    currency         TEXT     NOT NULL,
    started_at       TEXT     NOT NULL,
    ended_at         TEXT     NOT NULL,
    candles          INTEGER  NOT NULL,
    initial_cash     TEXT     NOT NULL,
    final_equity     TEXT     NOT NULL,
    pnl              TEXT     NOT NULL,
    return_pct       REAL     NOT NULL DEFAULT 0,
    win_rate         REAL     NOT NULL DEFAULT 0,
    max_drawdown_pct REAL     NOT NULL DEFAULT 0,
    hidden_stops     INTEGER  NOT NULL DEFAULT 0,
    trades           INTEGER  NOT NULL DEFAULT 0,
    created_at       TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    run_id      TEXT     NOT NULL REFERENCES runs(id),
    symbol      TEXT     NOT NULL,
    entry_time  TEXT     NOT NULL,
    exit_time   TEXT     NOT NULL,
    entry_price TEXT     NOT NULL,
    exit_price  TEXT     NOT NULL,
    size        TEXT     NOT NULL,
    stop        TEXT     NOT NULL,
    target      TEXT     NOT NULL,
    pnl         TEXT     NOT NULL,
    slippage    TEXT     NOT NULL,
    exit_reason TEXT     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run   ON trades(run_id, entry_time);
`

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID             string
	Policy         string
	Symbol         string
	Start          time.Time
	End            time.Time
	Candles        int
	PnL            decimal.Decimal
	ReturnPct      float64
	WinRate        float64
	MaxDrawdownPct float64
	HiddenStops    int
	Trades         int
	CreatedAt      time.Time
}

type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path. ":memory:" works for tests.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveRun stores the run and all of its trades in one transaction.
func (s *SQLite) SaveRun(ctx context.Context, r *backtest.Result, currency string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, policy, symbol, currency, started_at, ended_at, candles,
		                  initial_cash, final_equity, pnl, return_pct, win_rate,
		                  max_drawdown_pct, hidden_stops, trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Policy, r.Symbol, currency, ts(r.Start), ts(r.End), r.Candles,
		r.InitialCash.String(), r.FinalEquity.String(), r.PnL.String(), r.ReturnPct, r.WinRate,
		r.MaxDrawdownPct, r.HiddenStops, len(r.Trades), ts(s.now()),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, run_id, symbol, entry_time, exit_time, entry_price, exit_price,
		                    size, stop, target, pnl, slippage, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare trade: %w", err)
	}
	defer stmt.Close()

	for _, t := range r.Trades {
		if _, err := stmt.ExecContext(ctx,
			t.ID, r.RunID, t.Symbol, ts(t.EntryTime), ts(t.ExitTime),
			t.Entry.Amount().String(), t.Exit.Amount().String(), t.Size.String(),
			t.Stop.Amount().String(), t.Target.Amount().String(),
			t.PnL.Amount().String(), t.Slippage.Amount().String(), t.ExitReason,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `SELECT id, policy, symbol, started_at, ended_at, candles, pnl, return_pct,
	             win_rate, max_drawdown_pct, hidden_stops, trades, created_at
	      FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var pnl, start, end, created string
		if err := rows.Scan(&rs.ID, &rs.Policy, &rs.Symbol, &start, &end, &rs.Candles, &pnl,
			&rs.ReturnPct, &rs.WinRate, &rs.MaxDrawdownPct, &rs.HiddenStops, &rs.Trades, &created); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan: %w", err)
		}
		if rs.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: pnl %q: %w", pnl, err)
		}
		if rs.Start, err = parseTS(start); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: started_at: %w", err)
		}
		if rs.End, err = parseTS(end); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: ended_at: %w", err)
		}
		if rs.CreatedAt, err = parseTS(created); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: created_at: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Trades returns the trades of a run in entry order.
func (s *SQLite) Trades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	var currency string
	err := s.db.QueryRowContext(ctx, `SELECT currency FROM runs WHERE id = ?`, runID).Scan(&currency)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage.Trades: run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: lookup run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_time, exit_time, entry_price, exit_price, size,
		       stop, target, pnl, slippage, exit_reason
		FROM trades WHERE run_id = ? ORDER BY entry_time, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: query: %w", err)
	}
	defer rows.Close()

	var out []backtest.Trade
	for rows.Next() {
		var t backtest.Trade
		var entryAt, exitAt, entry, exit, size, stop, target, pnl, slip string
		if err := rows.Scan(&t.ID, &t.Symbol, &entryAt, &exitAt, &entry, &exit, &size,
			&stop, &target, &pnl, &slip, &t.ExitReason); err != nil {
			return nil, fmt.Errorf("storage.Trades: scan: %w", err)
		}

		var perr error
		parse := func(s string) money.Money {
			m, err := money.NewFromString(s, currency)
			if err != nil && perr == nil {
				perr = err
			}
			return m
		}
		t.Entry, t.Exit = parse(entry), parse(exit)
		t.Stop, t.Target = parse(stop), parse(target)
		t.PnL, t.Slippage = parse(pnl), parse(slip)
		if t.Size, err = decimal.NewFromString(size); err != nil {
			perr = err
		}
		if t.EntryTime, err = parseTS(entryAt); err != nil {
			perr = err
		}
		if t.ExitTime, err = parseTS(exitAt); err != nil {
			perr = err
		}
		if perr != nil {
			return nil, fmt.Errorf("storage.Trades: decode %s: %w", t.ID, perr)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Times are stored as fixed-width UTC text so they sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseTS(s string) (time.Time, error) { return time.Parse(tsLayout, s) }
