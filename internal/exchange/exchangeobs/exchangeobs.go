package exchangeobs

import (
	"context"
	"fmt"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/types"
)

// observableExchange wraps an Exchange with logging and tracing.
type observableExchange struct {
	exchange interfaces.Exchange
}

var _ interfaces.Exchange = (*observableExchange)(nil)

func Wrap(exchange interfaces.Exchange) interfaces.Exchange {
	return &observableExchange{
		exchange: exchange,
	}
}

func (ox *observableExchange) LastPrice(ctx context.Context, symbol string) (money.Money, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.LastPrice")
	defer span.End()

	price, err := ox.exchange.LastPrice(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch last price", err, "symbol", symbol)
		return money.Money{}, err
	}

	logger.DebugSkip(ctx, 1, "Last price fetched", "symbol", symbol, "price", price.String())
	return price, nil
}

func (ox *observableExchange) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.RecentCandles")
	defer span.End()

	candles, err := ox.exchange.RecentCandles(ctx, symbol, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "count", n)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "requested", n, "count", len(candles))
	return candles, nil
}

func (ox *observableExchange) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.PlaceOrder")
	defer span.End()

	resp, err := ox.exchange.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", string(req.Side),
			"qty", req.Qty.String(),
			"tag", req.Tag,
		)
		return types.OrderResp{}, err
	}

	logger.Trade(ctx, req.Symbol, string(req.Side), resp.Qty, resp.Price, resp.OrderID,
		"tag", req.Tag,
		"status", resp.Status,
	)
	return resp, nil
}

func (ox *observableExchange) Start(ctx context.Context, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "exchange.Start")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting exchange", "symbols", symbols, "count", len(symbols))

	if err := ox.exchange.Start(ctx, symbols); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start exchange", err, "symbols", symbols)
		return fmt.Errorf("exchange start failed: %w", err)
	}
	return nil
}

func (ox *observableExchange) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "exchange.Stop")
	defer span.End()

	ox.exchange.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Exchange stopped")
}
