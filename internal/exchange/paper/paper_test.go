package paper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/execution"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func feed(n int) []types.Candle {
	t0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.Candle, n)
	for i := range out {
		p := decimal.NewFromInt(int64(100 + i))
		out[i] = types.NewCandle(t0.Add(time.Duration(i)*time.Minute), p, p.Add(dec("1")), p.Sub(dec("1")), p, dec("3"), "USDT")
	}
	return out
}

func started(t *testing.T, n, warmup int) *Exchange {
	t.Helper()
	x := New(Params{
		Currency: "USDT",
		Feeds:    map[string][]types.Candle{"BTCUSDT": feed(n)},
		Warmup:   warmup,
		Slippage: execution.DefaultSlippage,
		Sim:      execution.Intrabar{},
	})
	require.NoError(t, x.Start(context.Background(), []string{"BTCUSDT"}))
	return x
}

func TestRecentCandlesRevealsOneCandlePerCall(t *testing.T) {
	ctx := context.Background()
	x := started(t, 5, 2)

	cs, err := x.RecentCandles(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	assert.Len(t, cs, 3)
	assert.True(t, cs[2].Close.Equal(money.MustParse("102", "USDT")))

	cs, err = x.RecentCandles(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	assert.Len(t, cs, 2)
	assert.True(t, cs[1].Close.Equal(money.MustParse("103", "USDT")))

	_, err = x.RecentCandles(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	_, err = x.RecentCandles(ctx, "BTCUSDT", 2)
	assert.ErrorIs(t, err, ErrExhausted)

	price, err := x.LastPrice(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, price.Equal(money.MustParse("104", "USDT")))
}

func TestPlaceOrderFillsThroughSimulator(t *testing.T) {
	ctx := context.Background()
	x := started(t, 3, 1)

	resp, err := x.PlaceOrder(ctx, types.OrderReq{Symbol: "BTCUSDT", Side: types.SideBuy, Qty: dec("2"), Tag: "LLM"})
	require.NoError(t, err)
	assert.Equal(t, "FILLED", resp.Status)
	assert.True(t, resp.Price.Equal(money.MustParse("100.1", "USDT")))
	assert.True(t, resp.Qty.Equal(dec("2")))
	_, err = uuid.Parse(resp.OrderID)
	assert.NoError(t, err)

	resp, err = x.PlaceOrder(ctx, types.OrderReq{Symbol: "BTCUSDT", Side: types.SideSell, Qty: dec("1")})
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(money.MustParse("99.9", "USDT")))
	assert.Len(t, x.Orders(), 2)
}

func usdt(s string) money.Money { return money.MustParse(s, "USDT") }

func single(t *testing.T, o, h, l, c string) *Exchange {
	t.Helper()
	bar := types.NewCandle(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), dec(o), dec(h), dec(l), dec(c), dec("3"), "USDT")
	x := New(Params{
		Currency: "USDT",
		Feeds:    map[string][]types.Candle{"BTCUSDT": {bar}},
		Warmup:   1,
		Slippage: execution.DefaultSlippage,
		Sim:      execution.Intrabar{},
	})
	require.NoError(t, x.Start(context.Background(), []string{"BTCUSDT"}))
	return x
}

// The decision saw the close, so the fill must not use the earlier open.
func TestMarketOrderFillsAtCloseOfDecisionCandle(t *testing.T) {
	x := single(t, "100", "106", "99", "105")

	resp, err := x.PlaceOrder(context.Background(), types.OrderReq{Symbol: "BTCUSDT", Side: types.SideBuy, Qty: dec("1"), Tag: "LLM"})
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(usdt("105.105")), resp.Price.String())

	resp, err = x.PlaceOrder(context.Background(), types.OrderReq{Symbol: "BTCUSDT", Side: types.SideSell, Qty: dec("1"), Tag: "LLM"})
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(usdt("104.895")), resp.Price.String())
}

func TestExitOrderFillsWhereLevelTraded(t *testing.T) {
	ctx := context.Background()
	stop := func(level string) types.OrderReq {
		return types.OrderReq{Symbol: "BTCUSDT", Side: types.SideSell, Qty: dec("1"), Tag: "SL", Exit: types.ExitStop, Level: usdt(level)}
	}

	// low pierces the stop, close recovers: fill at the stop, not the close
	x := single(t, "100", "101", "97", "99.5")
	resp, err := x.PlaceOrder(ctx, stop("98"))
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(usdt("98")), resp.Price.String())
	assert.Contains(t, resp.Message, "slippage 0")

	// gap through the stop fills at the open
	x = single(t, "95", "96", "94", "95.5")
	resp, err = x.PlaceOrder(ctx, stop("98"))
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(usdt("95")), resp.Price.String())
	assert.Contains(t, resp.Message, "slippage 3")

	x = single(t, "100", "106", "99", "104")
	resp, err = x.PlaceOrder(ctx, types.OrderReq{Symbol: "BTCUSDT", Side: types.SideSell, Qty: dec("1"), Tag: "TP", Exit: types.ExitTarget, Level: usdt("105")})
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(usdt("105")), resp.Price.String())
}

func TestExitOrderRejectedWhenLevelNotReached(t *testing.T) {
	x := single(t, "100", "101", "99", "100")

	_, err := x.PlaceOrder(context.Background(), types.OrderReq{Symbol: "BTCUSDT", Side: types.SideSell, Qty: dec("1"), Exit: types.ExitStop, Level: usdt("98")})
	assert.ErrorContains(t, err, "stop not reached")

	_, err = x.PlaceOrder(context.Background(), types.OrderReq{Symbol: "BTCUSDT", Side: types.SideBuy, Qty: dec("1"), Exit: types.ExitStop, Level: usdt("100")})
	assert.ErrorContains(t, err, "exit orders must sell")
	assert.Empty(t, x.Orders())
}

func TestPlaceOrderRejectsBadRequests(t *testing.T) {
	x := started(t, 3, 1)

	_, err := x.PlaceOrder(context.Background(), types.OrderReq{Symbol: "BTCUSDT", Side: types.SideBuy, Qty: decimal.Zero})
	assert.Error(t, err)

	_, err = x.PlaceOrder(context.Background(), types.OrderReq{Symbol: "DOGEUSDT", Side: types.SideBuy, Qty: dec("1")})
	assert.Error(t, err)
}

func TestStartLoadsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eth.csv")
	csv := "time,open,high,low,close,volume\n" +
		"2024-01-01T00:00:00Z,10,11,9,10.5,100\n" +
		"2024-01-01T00:01:00Z,10.5,12,10,11,120\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	x := New(Params{Currency: "USDT", CSV: map[string]string{"ETHUSDT": path}, Warmup: 1, Sim: execution.CloseOnly{}})
	require.NoError(t, x.Start(context.Background(), []string{"ETHUSDT"}))

	cs, err := x.RecentCandles(context.Background(), "ETHUSDT", 5)
	require.NoError(t, err)
	assert.Len(t, cs, 2)
}

func TestStartErrors(t *testing.T) {
	x := New(Params{Sim: execution.Intrabar{}})
	assert.Error(t, x.Start(context.Background(), []string{"BTCUSDT"}))

	x = New(Params{Feeds: map[string][]types.Candle{"BTCUSDT": feed(1)}})
	assert.Error(t, x.Start(context.Background(), []string{"BTCUSDT"}), "simulator is required")
}
