// Package execution simulates order fills against historical OHLCV candles.
//
// Two policies implement interfaces.ExecutionSimulator:
//
//   - CloseOnly looks at the candle close and nothing else. It hides every
//     stop that was pierced intrabar and recovered before the close, and exists
//     so that backtests can show how much risk that simplification hides.
//   - Intrabar uses the candle's high and low, which is how resting stop and
//     limit orders behave on a real exchange.
//
// When a candle's range reaches both the stop and the target, OHLC data cannot
// tell which came first. Both policies assume the stop fired first. This is a
// deliberately pessimistic modeling choice for the position holder, not an
// estimate of intrabar order flow.
//
// Nothing here validates candles. A candle with low > high yields whatever the
// comparisons produce; reject malformed data at ingestion (see marketdata).
package execution

import (
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

// DefaultSlippage is the fractional market-order slippage used when the caller
// has no better estimate: 0.001 is 0.1%.
var DefaultSlippage = decimal.RequireFromString("0.001")

// levelPolicy is the part of a policy that differs between implementations.
type levelPolicy interface {
	CheckStopTriggered(stop money.Money, candle types.Candle) bool
	CheckTakeProfitTriggered(target money.Money, candle types.Candle) bool
	StopExecutionPrice(stop money.Money, candle types.Candle) money.Money
	TakeProfitExecutionPrice(target money.Money, candle types.Candle) money.Money
}

// marketFill holds the behavior shared by every policy.
type marketFill struct{}

// ExecuteMarketOrder fills at the candle open moved against the order by the
// slippage fraction: up for buys, down for sells. Market orders always fill.
func (marketFill) ExecuteMarketOrder(side types.Side, size decimal.Decimal, expected money.Money, candle types.Candle, slippage decimal.Decimal) types.ExecutionResult {
	open := candle.Open.Amount()
	adj := decimal.NewFromInt(1)
	if side == types.SideSell {
		adj = adj.Sub(slippage)
	} else {
		adj = adj.Add(slippage)
	}
	price := candle.Open.WithAmount(open.Mul(adj))

	return types.Filled{
		Price:    price,
		Size:     size,
		Slippage: price.WithAmount(expected.Amount().Sub(price.Amount()).Abs()),
	}
}

func exitPriority(p levelPolicy, stop, target money.Money, candle types.Candle) types.ExitPriority {
	// Stop is checked first: on a simultaneous hit the worse outcome wins.
	if p.CheckStopTriggered(stop, candle) {
		return types.ExitStop
	}
	if p.CheckTakeProfitTriggered(target, candle) {
		return types.ExitTarget
	}
	return types.ExitNone
}

func simulateExit(p levelPolicy, entry, stop, target money.Money, candle types.Candle, size decimal.Decimal) types.ExecutionResult {
	var fill money.Money
	var moved decimal.Decimal

	switch exitPriority(p, stop, target, candle) {
	case types.ExitStop:
		fill = p.StopExecutionPrice(stop, candle)
		moved = entry.Amount().Sub(fill.Amount())
	case types.ExitTarget:
		fill = p.TakeProfitExecutionPrice(target, candle)
		moved = fill.Amount().Sub(entry.Amount())
	default:
		return types.Unfilled{Reason: types.ReasonNoExit}
	}

	return types.Filled{
		Price:    fill,
		Size:     size,
		Slippage: fill.WithAmount(moved.Abs()),
	}
}
