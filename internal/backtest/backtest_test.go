package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/execution"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

var t0 = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usdt(s string) money.Money { return money.MustParse(s, "USDT") }

func at(i int) time.Time { return t0.Add(time.Duration(i) * time.Hour) }

func bar(i int, o, h, l, c string) types.Candle {
	return types.NewCandle(at(i), dec(o), dec(h), dec(l), dec(c), dec("1"), "USDT")
}

// series returns flat candles around 100 with the given overrides by index.
func series(n int, override map[int]types.Candle) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		if c, ok := override[i]; ok {
			out[i] = c
			continue
		}
		out[i] = bar(i, "100", "100.5", "99.5", "100")
	}
	return out
}

// scripted buys on the candle at buyAt and sells on the candle at sellAt.
// It holds no state, so it is safe to share between concurrent runs.
type scripted struct {
	buyAt, sellAt time.Time
}

func (s scripted) Decide(_ context.Context, _ string, latest types.Candle, _ types.Indicators, data map[string]any) (types.Decision, error) {
	in, _ := data["in_position"].(bool)
	switch {
	case !in && latest.Time.Equal(s.buyAt):
		return types.Decision{Action: "BUY"}, nil
	case in && latest.Time.Equal(s.sellAt):
		return types.Decision{Action: "SELL"}, nil
	}
	return types.Decision{Action: "HOLD"}, nil
}

type failing struct{}

func (failing) Decide(context.Context, string, types.Candle, types.Indicators, map[string]any) (types.Decision, error) {
	return types.Decision{}, errors.New("provider down")
}

func testConfig() Config {
	return Config{
		Symbol:      "BTCUSDT",
		Currency:    "USDT",
		Warmup:      2,
		InitialCash: dec("10000"),
		Qty:         dec("1"),
		Slippage:    decimal.Zero,
	}
}

func run(t *testing.T, sim string, candles []types.Candle, d scripted) *Result {
	t.Helper()
	s, err := execution.New(sim)
	require.NoError(t, err)
	res, err := NewRunner(testConfig(), s, d, nil).Run(context.Background(), candles)
	require.NoError(t, err)
	return res
}

func TestHiddenStopSeenOnlyIntrabar(t *testing.T) {
	candles := series(7, map[int]types.Candle{4: bar(4, "100", "101", "97", "99.5")})
	d := scripted{buyAt: at(2)}

	intrabar := run(t, execution.PolicyIntrabar, candles, d)
	require.Len(t, intrabar.Trades, 1)
	tr := intrabar.Trades[0]
	assert.Equal(t, ExitStop, tr.ExitReason)
	assert.Equal(t, at(3), tr.EntryTime, "entry at the open after the signal")
	assert.Equal(t, at(4), tr.ExitTime)
	assert.True(t, tr.Entry.Equal(usdt("100")))
	assert.True(t, tr.Exit.Equal(usdt("98")))
	assert.True(t, tr.PnL.Equal(usdt("-2")))
	assert.Equal(t, 1, intrabar.HiddenStops)
	assert.True(t, intrabar.FinalEquity.Equal(dec("9998")))
	assert.InDelta(t, 0.02, intrabar.MaxDrawdownPct, 1e-9)
	assert.Zero(t, intrabar.WinRate)

	closeOnly := run(t, execution.PolicyCloseOnly, candles, d)
	require.Len(t, closeOnly.Trades, 1)
	assert.Equal(t, ExitEnd, closeOnly.Trades[0].ExitReason)
	assert.True(t, closeOnly.Trades[0].PnL.IsZero())
	assert.Equal(t, 1, closeOnly.HiddenStops)
	assert.True(t, closeOnly.PnL.IsZero())
}

func TestTargetExit(t *testing.T) {
	candles := series(7, map[int]types.Candle{4: bar(4, "101", "105", "100", "104")})
	res := run(t, execution.PolicyIntrabar, candles, scripted{buyAt: at(2)})

	require.Len(t, res.Trades, 1)
	assert.Equal(t, ExitTarget, res.Trades[0].ExitReason)
	assert.True(t, res.Trades[0].Exit.Equal(usdt("104")))
	assert.Equal(t, 100.0, res.WinRate)
	assert.True(t, res.PnL.Equal(dec("4")))
}

func TestGapThroughStop(t *testing.T) {
	candles := series(7, map[int]types.Candle{4: bar(4, "95", "96", "90", "92")})
	d := scripted{buyAt: at(2)}

	intrabar := run(t, execution.PolicyIntrabar, candles, d)
	require.Len(t, intrabar.Trades, 1)
	assert.True(t, intrabar.Trades[0].Exit.Equal(usdt("95")), "gap fills at the open")
	assert.True(t, intrabar.Trades[0].Slippage.Equal(usdt("3")))

	closeOnly := run(t, execution.PolicyCloseOnly, candles, d)
	require.Len(t, closeOnly.Trades, 1)
	assert.Equal(t, ExitStop, closeOnly.Trades[0].ExitReason)
	assert.True(t, closeOnly.Trades[0].Exit.Equal(usdt("92")))
	assert.Zero(t, closeOnly.HiddenStops)
}

func TestSignalExitAtNextOpen(t *testing.T) {
	candles := series(8, map[int]types.Candle{5: bar(5, "102", "103", "101", "102")})
	res := run(t, execution.PolicyIntrabar, candles, scripted{buyAt: at(2), sellAt: at(4)})

	require.Len(t, res.Trades, 1)
	assert.Equal(t, ExitSignal, res.Trades[0].ExitReason)
	assert.Equal(t, at(5), res.Trades[0].ExitTime)
	assert.True(t, res.Trades[0].Exit.Equal(usdt("102")))
}

func TestAllInSizing(t *testing.T) {
	cfg := testConfig()
	cfg.Qty = decimal.Zero
	cfg.InitialCash = dec("1000")
	cfg.Slippage = dec("0.001")

	res, err := NewRunner(cfg, execution.Intrabar{}, scripted{buyAt: at(2)}, nil).Run(context.Background(), series(6, nil))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Size.Equal(dec("9.99000999")))
	assert.True(t, res.Trades[0].Entry.Equal(usdt("100.1")))
}

func TestRunErrors(t *testing.T) {
	_, err := NewRunner(testConfig(), execution.Intrabar{}, nil, nil).Run(context.Background(), series(2, nil))
	assert.ErrorIs(t, err, ErrNotEnoughCandles)

	_, err = NewRunner(testConfig(), execution.Intrabar{}, failing{}, nil).Run(context.Background(), series(5, nil))
	assert.ErrorContains(t, err, "provider down")
}

func TestScorerDrivenRun(t *testing.T) {
	// slow uptrend with a sharp drop late in the series
	candles := make([]types.Candle, 120)
	for i := range candles {
		p := 100 + float64(i)*0.5 + 2*math.Sin(float64(i)/3)
		if i > 90 {
			p -= float64(i-90) * 2
		}
		o := decimal.NewFromFloat(p - 0.3)
		c := decimal.NewFromFloat(p)
		candles[i] = types.NewCandle(at(i), o, c.Add(dec("1")), o.Sub(dec("1")), c, decimal.NewFromInt(int64(100+i)), "USDT")
	}

	cfg := testConfig()
	cfg.Warmup = 60
	res, err := NewRunner(cfg, execution.Intrabar{}, nil, nil).Run(context.Background(), candles)
	require.NoError(t, err)

	assert.Equal(t, 60, res.Candles)
	assert.NotEmpty(t, res.RunID)
	for _, tr := range res.Trades {
		assert.False(t, tr.ExitTime.Before(tr.EntryTime))
		assert.NotEmpty(t, tr.ID)
	}
	assert.GreaterOrEqual(t, res.MaxDrawdownPct, 0.0)
}

func TestCompare(t *testing.T) {
	candles := series(7, map[int]types.Candle{4: bar(4, "100", "101", "97", "99.5")})
	m := metrics.New(prometheus.NewRegistry())

	cmp, err := Compare(context.Background(), testConfig(), candles, scripted{buyAt: at(2)}, m)
	require.NoError(t, err)

	assert.Equal(t, execution.PolicyCloseOnly, cmp.CloseOnly.Policy)
	assert.Equal(t, execution.PolicyIntrabar, cmp.Intrabar.Policy)
	assert.True(t, cmp.PnLDelta.Equal(dec("-2")))
	assert.Equal(t, 1, cmp.HiddenStops)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BacktestRunsTotal.WithLabelValues(execution.PolicyIntrabar)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BacktestRunsTotal.WithLabelValues(execution.PolicyCloseOnly)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HiddenStopsTotal))
}

func TestCompareSurfacesErrors(t *testing.T) {
	_, err := Compare(context.Background(), testConfig(), series(5, nil), failing{}, nil)
	assert.Error(t, err)
}

func TestMaxDrawdown(t *testing.T) {
	eq := []decimal.Decimal{dec("100"), dec("120"), dec("90"), dec("130"), dec("117")}
	assert.InDelta(t, 25.0, maxDrawdownPct(eq), 1e-9)
	assert.Zero(t, maxDrawdownPct(nil))
}
