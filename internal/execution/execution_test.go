package execution

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func usdt(s string) money.Money { return money.MustParse(s, "USDT") }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func candle(o, h, l, c string) types.Candle {
	return types.NewCandle(t0, dec(o), dec(h), dec(l), dec(c), dec("10"), "USDT")
}

// Low pierces the stop, close recovers above it. Only the intrabar policy sees it.
func TestStopPiercedIntrabarButRecoveredByClose(t *testing.T) {
	c := candle("100", "102", "94", "99")
	stop := usdt("95")

	assert.True(t, Intrabar{}.CheckStopTriggered(stop, c))
	assert.False(t, CloseOnly{}.CheckStopTriggered(stop, c))
}

func TestStopTriggerProperty(t *testing.T) {
	stop := usdt("95")
	for _, low := range []string{"80", "94.99", "95", "95.01", "99"} {
		c := candle("100", "105", low, "101")
		want := dec(low).LessThanOrEqual(stop.Amount())
		assert.Equal(t, want, Intrabar{}.CheckStopTriggered(stop, c), "low=%s", low)
		assert.False(t, CloseOnly{}.CheckStopTriggered(stop, c), "close above stop, low=%s", low)
	}

	closed := candle("100", "101", "90", "95")
	assert.True(t, CloseOnly{}.CheckStopTriggered(stop, closed))
}

func TestTakeProfitTriggerProperty(t *testing.T) {
	target := usdt("110")
	for _, high := range []string{"105", "109.99", "110", "115"} {
		c := candle("100", high, "99", "104")
		want := dec(high).GreaterThanOrEqual(target.Amount())
		assert.Equal(t, want, Intrabar{}.CheckTakeProfitTriggered(target, c), "high=%s", high)
		assert.False(t, CloseOnly{}.CheckTakeProfitTriggered(target, c))
	}

	assert.True(t, CloseOnly{}.CheckTakeProfitTriggered(target, candle("100", "112", "99", "110")))
}

func TestStopExecutionPrice(t *testing.T) {
	stop := usdt("95")

	gap := candle("90", "92", "88", "91")
	assert.True(t, Intrabar{}.StopExecutionPrice(stop, gap).Equal(usdt("90")), "gap down fills at open")

	normal := candle("100", "101", "94", "97")
	assert.True(t, Intrabar{}.StopExecutionPrice(stop, normal).Equal(stop))

	atStop := candle("95", "96", "93", "94")
	assert.True(t, Intrabar{}.StopExecutionPrice(stop, atStop).Equal(stop), "open equal to stop is not a gap")

	assert.True(t, CloseOnly{}.StopExecutionPrice(stop, normal).Equal(usdt("97")))
}

func TestTakeProfitExecutionPrice(t *testing.T) {
	target := usdt("110")

	gap := candle("112", "115", "111", "113")
	assert.True(t, Intrabar{}.TakeProfitExecutionPrice(target, gap).Equal(usdt("112")), "gap up fills at open")

	normal := candle("100", "111", "99", "108")
	assert.True(t, Intrabar{}.TakeProfitExecutionPrice(target, normal).Equal(target))

	assert.True(t, CloseOnly{}.TakeProfitExecutionPrice(target, normal).Equal(usdt("108")))
}

func TestExitPriorityStopWinsWhenBothReachable(t *testing.T) {
	cases := []struct {
		name           string
		stop, target   string
		o, h, l, close string
	}{
		{"equidistant", "95", "105", "100", "106", "94", "100"},
		{"target much closer", "90", "100.5", "100", "101", "89", "100"},
		{"bullish candle", "95", "105", "96", "110", "94", "109"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := candle(tc.o, tc.h, tc.l, tc.close)
			assert.Equal(t, types.ExitStop, Intrabar{}.ExitPriority(usdt(tc.stop), usdt(tc.target), c))
		})
	}
}

func TestExitPriorityTargetAndNone(t *testing.T) {
	stop, target := usdt("95"), usdt("105")
	assert.Equal(t, types.ExitTarget, Intrabar{}.ExitPriority(stop, target, candle("100", "106", "97", "104")))
	assert.Equal(t, types.ExitNone, Intrabar{}.ExitPriority(stop, target, candle("100", "104", "96", "101")))
	assert.Equal(t, types.ExitNone, CloseOnly{}.ExitPriority(stop, target, candle("100", "106", "94", "100")))
}

func TestSimulateExitNoTrigger(t *testing.T) {
	res := Intrabar{}.SimulateExit(usdt("100"), usdt("95"), usdt("105"), candle("100", "104", "96", "101"), dec("1"))
	assert.False(t, res.Success())

	unfilled, ok := res.(types.Unfilled)
	require.True(t, ok)
	assert.Equal(t, "no exit triggered", unfilled.Reason)

	_, filled := types.AsFilled(res)
	assert.False(t, filled)
}

func TestSimulateExitStop(t *testing.T) {
	res := Intrabar{}.SimulateExit(usdt("100"), usdt("95"), usdt("105"), candle("100", "106", "94", "100"), dec("2"))

	f, ok := types.AsFilled(res)
	require.True(t, ok)
	assert.True(t, f.Price.Equal(usdt("95")))
	assert.True(t, f.Size.Equal(dec("2")))
	assert.True(t, f.Slippage.Equal(usdt("5")))
}

func TestSimulateExitStopGap(t *testing.T) {
	res := Intrabar{}.SimulateExit(usdt("100"), usdt("95"), usdt("105"), candle("90", "92", "88", "91"), dec("1"))

	f, ok := types.AsFilled(res)
	require.True(t, ok)
	assert.True(t, f.Price.Equal(usdt("90")))
	assert.True(t, f.Slippage.Equal(usdt("10")))
}

func TestSimulateExitTarget(t *testing.T) {
	res := Intrabar{}.SimulateExit(usdt("100"), usdt("95"), usdt("105"), candle("101", "107", "99", "106"), dec("1"))

	f, ok := types.AsFilled(res)
	require.True(t, ok)
	assert.True(t, f.Price.Equal(usdt("105")))
	assert.True(t, f.Slippage.Equal(usdt("5")))
}

func TestSimulateExitCloseOnlyFillsAtClose(t *testing.T) {
	res := CloseOnly{}.SimulateExit(usdt("100"), usdt("95"), usdt("105"), candle("99", "100", "90", "93"), dec("1"))

	f, ok := types.AsFilled(res)
	require.True(t, ok)
	assert.True(t, f.Price.Equal(usdt("93")))
	assert.True(t, f.Slippage.Equal(usdt("7")))
}

func TestExecuteMarketOrder(t *testing.T) {
	c := candle("100", "101", "99", "100.5")

	buy := Intrabar{}.ExecuteMarketOrder(types.SideBuy, dec("0.5"), usdt("100"), c, DefaultSlippage)
	f, ok := types.AsFilled(buy)
	require.True(t, ok)
	assert.True(t, f.Price.Equal(usdt("100.1")))
	assert.True(t, f.Slippage.Equal(usdt("0.1")))
	assert.True(t, f.Size.Equal(dec("0.5")))

	sell := CloseOnly{}.ExecuteMarketOrder(types.SideSell, dec("0.5"), usdt("100"), c, dec("0.01"))
	f, ok = types.AsFilled(sell)
	require.True(t, ok)
	assert.True(t, f.Price.Equal(usdt("99")))
	assert.True(t, f.Slippage.Equal(usdt("1")))
}

func TestExecuteMarketOrderSlippageIsMagnitude(t *testing.T) {
	// expected above the fill: still a positive magnitude
	res := Intrabar{}.ExecuteMarketOrder(types.SideBuy, dec("1"), usdt("105"), candle("100", "101", "99", "100"), decimal.Zero)
	f, ok := types.AsFilled(res)
	require.True(t, ok)
	assert.True(t, f.Slippage.Equal(usdt("5")))
	assert.False(t, f.Slippage.IsNegative())
}

func TestPoliciesAreInterchangeable(t *testing.T) {
	c := candle("100", "102", "94", "99")
	want := map[string]bool{PolicyIntrabar: true, PolicyCloseOnly: false}

	for _, name := range Policies() {
		sim, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, sim.Name())

		var s interfaces.ExecutionSimulator = sim
		assert.Equal(t, want[name], s.CheckStopTriggered(usdt("95"), c), name)
		assert.True(t, s.ExecuteMarketOrder(types.SideBuy, dec("1"), usdt("100"), c, DefaultSlippage).Success())
	}
}

func TestNewPolicy(t *testing.T) {
	sim, err := New("")
	require.NoError(t, err)
	assert.Equal(t, PolicyIntrabar, sim.Name())

	sim, err = New("NAIVE")
	require.NoError(t, err)
	assert.Equal(t, PolicyCloseOnly, sim.Name())

	_, err = New("vwap")
	assert.Error(t, err)
}

func TestMalformedCandleIsNotRejected(t *testing.T) {
	// low above high: no panic, result follows mechanically from the comparisons
	c := candle("100", "90", "110", "100")
	assert.NotPanics(t, func() {
		Intrabar{}.SimulateExit(usdt("100"), usdt("95"), usdt("105"), c, dec("1"))
	})
	assert.Equal(t, types.ExitNone, Intrabar{}.ExitPriority(usdt("95"), usdt("105"), c))
}
