package interfaces

import (
	"context"

	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

type Exchange interface {
	LastPrice(ctx context.Context, symbol string) (money.Money, error)
	RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	Start(ctx context.Context, symbols []string) error
	Stop(ctx context.Context)
}
