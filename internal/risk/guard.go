package risk

import (
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
)

// Guard caps the notional of a single trade as a percentage of account value.
type Guard struct {
	accountValue decimal.Decimal
	maxPct       float64
}

// NewGuard creates a guard. A non-positive maxPct disables the cap.
func NewGuard(accountValue decimal.Decimal, maxPct float64) *Guard {
	return &Guard{accountValue: accountValue, maxPct: maxPct}
}

// Exceeds reports whether buying qty at price breaks the per-trade cap.
//
// Returns:
//   - exceeded: true if the trade's exposure is above the limit
//   - exposurePct: exposure as a percentage of the account
func (g *Guard) Exceeds(price money.Money, qty decimal.Decimal) (exceeded bool, exposurePct float64) {
	if g.maxPct <= 0 || !g.accountValue.IsPositive() {
		return false, 0
	}
	exposure := price.Amount().Mul(qty)
	exposurePct = exposure.Div(g.accountValue).Mul(decimal.NewFromInt(100)).InexactFloat64()
	return exposurePct > g.maxPct, exposurePct
}

func (g *Guard) SetAccountValue(v decimal.Decimal) {
	g.accountValue = v
}

func (g *Guard) AccountValue() decimal.Decimal {
	return g.accountValue
}
