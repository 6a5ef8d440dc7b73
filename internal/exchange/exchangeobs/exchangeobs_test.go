package exchangeobs

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

type mockExchange struct{ mock.Mock }

func (m *mockExchange) LastPrice(ctx context.Context, symbol string) (money.Money, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(money.Money), args.Error(1)
}

func (m *mockExchange) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	args := m.Called(ctx, symbol, n)
	cs, _ := args.Get(0).([]types.Candle)
	return cs, args.Error(1)
}

func (m *mockExchange) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(types.OrderResp), args.Error(1)
}

func (m *mockExchange) Start(ctx context.Context, symbols []string) error {
	return m.Called(ctx, symbols).Error(0)
}

func (m *mockExchange) Stop(ctx context.Context) { m.Called(ctx) }

func TestWrapForwardsCalls(t *testing.T) {
	inner := &mockExchange{}
	price := money.MustParse("42000", "USDT")
	req := types.OrderReq{Symbol: "BTCUSDT", Side: types.SideBuy, Qty: decimal.NewFromFloat(0.01), Tag: "LLM"}
	resp := types.OrderResp{OrderID: "abc", Status: "FILLED", Price: price, Qty: req.Qty}

	inner.On("LastPrice", mock.Anything, "BTCUSDT").Return(price, nil)
	inner.On("PlaceOrder", mock.Anything, req).Return(resp, nil)
	inner.On("Start", mock.Anything, []string{"BTCUSDT"}).Return(nil)
	inner.On("Stop", mock.Anything).Return()

	x := Wrap(inner)
	ctx := context.Background()

	require.NoError(t, x.Start(ctx, []string{"BTCUSDT"}))
	got, err := x.LastPrice(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, got.Equal(price))

	r, err := x.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "abc", r.OrderID)

	x.Stop(ctx)
	inner.AssertExpectations(t)
}

func TestWrapPropagatesErrors(t *testing.T) {
	inner := &mockExchange{}
	boom := errors.New("boom")
	inner.On("RecentCandles", mock.Anything, "ETHUSDT", 50).Return(nil, boom)
	inner.On("Start", mock.Anything, mock.Anything).Return(boom)

	x := Wrap(inner)
	_, err := x.RecentCandles(context.Background(), "ETHUSDT", 50)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, x.Start(context.Background(), []string{"ETHUSDT"}), boom)
}
