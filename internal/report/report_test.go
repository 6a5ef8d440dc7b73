package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/backtest"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/storage"
)

var t0 = time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

func result(policy string, pnl string, hidden int) *backtest.Result {
	p := money.MustParse(pnl, "USDT")
	return &backtest.Result{
		RunID:       "run-" + policy,
		Policy:      policy,
		Symbol:      "BTCUSDT",
		Start:       t0,
		End:         t0.Add(time.Hour),
		Candles:     60,
		PnL:         p.Amount(),
		WinRate:     100,
		HiddenStops: hidden,
		Trades: []backtest.Trade{{
			ID:         "t1",
			EntryTime:  t0,
			ExitTime:   t0.Add(time.Hour),
			Entry:      money.MustParse("100", "USDT"),
			Exit:       money.MustParse("104", "USDT"),
			Size:       decimal.NewFromInt(1),
			Stop:       money.MustParse("98", "USDT"),
			Target:     money.MustParse("104", "USDT"),
			PnL:        p,
			ExitReason: backtest.ExitTarget,
		}},
	}
}

func TestBacktestReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Backtest(&buf, result("intrabar", "4", 1)))

	out := buf.String()
	assert.Contains(t, out, "policy=intrabar")
	assert.Contains(t, out, "4.00")
	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "2024-08-01 09:00")
}

func TestBacktestReportWithoutTrades(t *testing.T) {
	r := result("close_only", "0", 0)
	r.Trades = nil

	var buf bytes.Buffer
	require.NoError(t, Backtest(&buf, r))
	assert.Contains(t, buf.String(), "no trades")
}

func TestComparisonReport(t *testing.T) {
	c := &backtest.Comparison{
		CloseOnly:   result("close_only", "10", 3),
		Intrabar:    result("intrabar", "-5", 3),
		PnLDelta:    decimal.NewFromInt(-15),
		HiddenStops: 3,
	}

	var buf bytes.Buffer
	require.NoError(t, Comparison(&buf, c))

	out := buf.String()
	assert.Contains(t, out, "close_only")
	assert.Contains(t, out, "intrabar")
	assert.Contains(t, out, "-15.00")
	assert.Contains(t, out, "WARNING: 3 stop touches")
}

func TestComparisonReportAgreement(t *testing.T) {
	c := &backtest.Comparison{
		CloseOnly: result("close_only", "1", 0),
		Intrabar:  result("intrabar", "1", 0),
	}

	var buf bytes.Buffer
	require.NoError(t, Comparison(&buf, c))
	assert.Contains(t, buf.String(), "No hidden stops")
}

func TestRunsReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Runs(&buf, []storage.RunSummary{{
		ID: "abc", Policy: "intrabar", Symbol: "ETHUSDT", Candles: 10, Trades: 2,
		PnL: decimal.RequireFromString("-1.5"), CreatedAt: t0,
	}}))
	assert.Contains(t, buf.String(), "ETHUSDT")
	assert.Contains(t, buf.String(), "-1.50")
}
