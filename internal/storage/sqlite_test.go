package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/backtest"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/storage"
)

func usdt(s string) money.Money { return money.MustParse(s, "USDT") }

func makeResult(id, policy string, pnls ...string) *backtest.Result {
	t0 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	r := &backtest.Result{
		RunID:       id,
		Policy:      policy,
		Symbol:      "BTCUSDT",
		Start:       t0,
		End:         t0.Add(48 * time.Hour),
		Candles:     48,
		InitialCash: decimal.NewFromInt(1000),
		HiddenStops: 2,
		WinRate:     50,
	}
	total := decimal.Zero
	for i, p := range pnls {
		pnl := usdt(p)
		total = total.Add(pnl.Amount())
		r.Trades = append(r.Trades, backtest.Trade{
			ID:         id + "-t" + string(rune('a'+i)),
			Symbol:     "BTCUSDT",
			EntryTime:  t0.Add(time.Duration(i) * time.Hour),
			ExitTime:   t0.Add(time.Duration(i+1) * time.Hour),
			Entry:      usdt("100"),
			Exit:       usdt("100").WithAmount(decimal.NewFromInt(100).Add(pnl.Amount())),
			Size:       decimal.NewFromInt(1),
			Stop:       usdt("98"),
			Target:     usdt("104"),
			PnL:        pnl,
			Slippage:   usdt("0.1"),
			ExitReason: backtest.ExitStop,
		})
	}
	r.PnL = total
	r.FinalEquity = r.InitialCash.Add(total)
	return r
}

func TestSQLite_SaveAndReadBack(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	run := makeResult("run-1", "intrabar", "-2", "4.5")
	require.NoError(t, db.SaveRun(ctx, run, "USDT"))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "intrabar", runs[0].Policy)
	assert.True(t, runs[0].PnL.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 2, runs[0].Trades)
	assert.Equal(t, 2, runs[0].HiddenStops)
	assert.True(t, runs[0].Start.Equal(run.Start))

	trades, err := db.Trades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "run-1-ta", trades[0].ID)
	assert.True(t, trades[0].PnL.Equal(usdt("-2")))
	assert.True(t, trades[1].Exit.Equal(usdt("104.5")))
	assert.Equal(t, "USDT", trades[1].Exit.Currency())
	assert.True(t, trades[0].EntryTime.Equal(run.Trades[0].EntryTime))
	assert.Equal(t, backtest.ExitStop, trades[0].ExitReason)
}

func TestSQLite_ListRunsNewestFirstWithLimit(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRun(ctx, makeResult("old", "close_only", "1"), "USDT"))
	require.NoError(t, db.SaveRun(ctx, makeResult("new", "intrabar"), "USDT"))

	runs, err := db.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)
}

func TestSQLite_DuplicateRunRollsBack(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveRun(ctx, makeResult("dup", "intrabar", "1"), "USDT"))
	assert.Error(t, db.SaveRun(ctx, makeResult("dup", "intrabar", "1"), "USDT"))

	trades, err := db.Trades(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestSQLite_UnknownRun(t *testing.T) {
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Trades(context.Background(), "missing")
	assert.Error(t, err)
}
