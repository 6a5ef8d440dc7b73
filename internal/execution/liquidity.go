package execution

import (
	"errors"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

var ErrNoLiquidity = errors.New("execution: empty order book side")

// Level is one price level of an order book.
type Level struct {
	Price money.Money
	Qty   decimal.Decimal
}

// DepthFill is the result of walking the book for a market order.
type DepthFill struct {
	AvgPrice    money.Money
	Filled      decimal.Decimal
	SlippagePct decimal.Decimal // vs. the best level, in percent
	Complete    bool
}

// EstimateDepthSlippage walks levels, best first, until size is filled. For a
// buy pass the asks sorted ascending, for a sell the bids sorted descending.
// When the book runs out the partial fill is returned with Complete=false.
func EstimateDepthSlippage(side types.Side, size decimal.Decimal, levels []Level) (DepthFill, error) {
	if len(levels) == 0 {
		return DepthFill{}, ErrNoLiquidity
	}

	best := levels[0].Price
	remaining := size
	notional := decimal.Zero
	filled := decimal.Zero

	for _, lvl := range levels {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, lvl.Qty)
		notional = notional.Add(take.Mul(lvl.Price.Amount()))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
	}

	if filled.IsZero() {
		return DepthFill{AvgPrice: best, Complete: false}, nil
	}

	avg := notional.Div(filled)
	var pct decimal.Decimal
	if !best.IsZero() {
		diff := avg.Sub(best.Amount())
		if side == types.SideSell {
			diff = diff.Neg()
		}
		pct = diff.Div(best.Amount()).Mul(decimal.NewFromInt(100))
	}

	return DepthFill{
		AvgPrice:    best.WithAmount(avg),
		Filled:      filled,
		SlippagePct: pct,
		Complete:    !remaining.IsPositive(),
	}, nil
}
