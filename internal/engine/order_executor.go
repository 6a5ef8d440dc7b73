package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/tradelog"
	"llm-crypto-trader/internal/types"
)

// Order tags recorded with every order.
const (
	tagDecision   = "LLM"
	tagStopLoss   = "SL"
	tagTakeProfit = "TP"
)

// orderExecutor handles order placement and trade logging.
type orderExecutor struct {
	exchange interfaces.Exchange
	log      *tradelog.Log
}

func newOrderExecutor(exchange interfaces.Exchange, log *tradelog.Log) *orderExecutor {
	return &orderExecutor{
		exchange: exchange,
		log:      log,
	}
}

// place sends a market order and appends the fill to the trade log.
//
// Parameters:
//   - ctx: Context for logging and tracing
//   - req: Symbol, side, quantity and tag
//   - ref: Price used when the exchange does not report a fill price
//   - at: Time recorded in the trade log
//   - reason: Reason for the trade
//   - confidence: Decider confidence level
//
// Returns:
//   - resp: Order response with the fill price filled in
//   - err: Error if order placement failed
func (oe *orderExecutor) place(ctx context.Context, req types.OrderReq, ref money.Money, at time.Time, reason string, confidence float64) (types.OrderResp, error) {
	resp, err := oe.exchange.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", string(req.Side),
			"qty", req.Qty.String(),
			"price", ref.String(),
		)
		return types.OrderResp{}, err
	}

	if resp.Price.IsZero() {
		resp.Price = ref
	}
	if resp.Qty.IsZero() {
		resp.Qty = req.Qty
	}

	if oe.log != nil {
		entry := tradelog.Entry{
			Time:       at,
			Symbol:     req.Symbol,
			Side:       string(req.Side),
			Qty:        resp.Qty,
			Price:      resp.Price,
			OrderID:    resp.OrderID,
			Reason:     reason,
			Confidence: confidence,
			Extra:      map[string]any{"tag": req.Tag},
		}
		if err := oe.log.Append(entry); err != nil {
			logger.Warn(ctx, "Failed to append trade log", "symbol", req.Symbol, "error", err)
		}
	}

	return resp, nil
}

func (oe *orderExecutor) placeBuyOrder(ctx context.Context, symbol string, qty decimal.Decimal, price money.Money, at time.Time, reason string, confidence float64) (types.OrderResp, error) {
	req := types.OrderReq{Symbol: symbol, Side: types.SideBuy, Qty: qty, Tag: tagDecision}
	return oe.place(ctx, req, price, at, reason, confidence)
}

// placeSellOrder executes a market SELL for a decider exit.
func (oe *orderExecutor) placeSellOrder(ctx context.Context, symbol string, qty decimal.Decimal, price money.Money, at time.Time, reason string, confidence float64) (types.OrderResp, error) {
	req := types.OrderReq{Symbol: symbol, Side: types.SideSell, Qty: qty, Tag: tagDecision}
	return oe.place(ctx, req, price, at, reason, confidence)
}

// placeExitOrder sells the position at its stop or target. The exchange
// decides the fill from level and the triggering candle; expected is only
// used when it reports no price.
func (oe *orderExecutor) placeExitOrder(ctx context.Context, symbol string, qty decimal.Decimal, kind types.ExitPriority, level, expected money.Money, at time.Time, reason string) (types.OrderResp, error) {
	tag := tagStopLoss
	if kind == types.ExitTarget {
		tag = tagTakeProfit
	}
	req := types.OrderReq{Symbol: symbol, Side: types.SideSell, Qty: qty, Tag: tag, Exit: kind, Level: level}
	return oe.place(ctx, req, expected, at, reason, 1.0)
}

// logDecision appends the decider's verdict and the indicator snapshot it saw.
func (oe *orderExecutor) logDecision(ctx context.Context, symbol string, decision types.Decision, price money.Money, at time.Time, indicators types.Indicators) {
	if oe.log == nil {
		return
	}
	err := oe.log.AppendDecision(tradelog.DecisionEntry{
		Time:       at,
		Symbol:     symbol,
		Action:     decision.Action,
		Confidence: decision.Confidence,
		Reason:     decision.Reason,
		Price:      price,
		Indicators: indicators,
	})
	if err != nil {
		logger.Warn(ctx, "Failed to append decision log", "symbol", symbol, "error", err)
	}
}
