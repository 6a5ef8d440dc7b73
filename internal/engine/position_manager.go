package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/money"
)

// position represents an open long position for a symbol.
type position struct {
	qty       decimal.Decimal // Current quantity held
	avg       money.Money     // Average entry price
	stop      money.Money     // Stop-loss price
	target    money.Money     // Take-profit price
	lastATR   float64         // Last ATR value for stop calculation
	entryTime time.Time       // Time of the first fill
}

// positionManager handles all position tracking and updates.
type positionManager struct {
	positions map[string]*position
}

func newPositionManager() *positionManager {
	return &positionManager{
		positions: make(map[string]*position),
	}
}

// get retrieves the current position for a symbol.
// Returns nil if no position exists.
func (pm *positionManager) get(symbol string) *position {
	return pm.positions[symbol]
}

func (pm *positionManager) has(symbol string) bool {
	return pm.positions[symbol] != nil
}

// addBuy updates position after a BUY fill.
// Calculates new average price and quantity.
//
// Parameters:
//   - symbol: Trading symbol
//   - qty: Quantity bought
//   - price: Execution price
//   - atr: Current ATR value
//   - stop, target: Exit levels computed from the new average
//   - at: Fill time
func (pm *positionManager) addBuy(symbol string, qty decimal.Decimal, price money.Money, atr float64, stop, target money.Money, at time.Time) *position {
	p := pm.positions[symbol]
	if p == nil {
		p = &position{
			qty:       qty,
			avg:       price,
			stop:      stop,
			target:    target,
			lastATR:   atr,
			entryTime: at,
		}
		pm.positions[symbol] = p
		return p
	}

	cost := p.avg.Amount().Mul(p.qty).Add(price.Amount().Mul(qty))
	p.qty = p.qty.Add(qty)
	p.avg = price.WithAmount(cost.Div(p.qty))
	p.lastATR = atr
	p.target = target

	// Only raise the stop when scaling in
	if stop.Amount().GreaterThan(p.stop.Amount()) {
		p.stop = stop
	}
	return p
}

// reduceSell updates position after a SELL fill.
// Calculates realized P&L and removes position if fully closed.
//
// Returns:
//   - realizedPnL: Profit or loss on the sold quantity
func (pm *positionManager) reduceSell(ctx context.Context, symbol string, qty decimal.Decimal, price money.Money) money.Money {
	p := pm.positions[symbol]
	if p == nil {
		logger.Warn(ctx, "Attempted to sell with no position", "symbol", symbol, "qty", qty.String())
		return money.Zero(price.Currency())
	}

	sold := decimal.Min(qty, p.qty)
	realized := price.WithAmount(price.Amount().Sub(p.avg.Amount()).Mul(sold))
	p.qty = p.qty.Sub(sold)

	if !p.qty.IsPositive() {
		delete(pm.positions, symbol)
	}
	return realized
}

// updateTrailingStop raises the stop to newStop when it is higher.
//
// Returns:
//   - updated: true if stop was updated
func (pm *positionManager) updateTrailingStop(symbol string, newStop money.Money, atr float64) bool {
	p := pm.positions[symbol]
	if p == nil || !p.qty.IsPositive() {
		return false
	}

	p.lastATR = atr
	if newStop.Amount().GreaterThan(p.stop.Amount()) {
		p.stop = newStop
		return true
	}
	return false
}
