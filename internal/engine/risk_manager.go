package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/risk"
)

// riskManager logs and enforces the per-trade exposure cap.
type riskManager struct {
	guard *risk.Guard
}

func newRiskManager(accountValue decimal.Decimal, maxRiskPct float64) *riskManager {
	return &riskManager{guard: risk.NewGuard(accountValue, maxRiskPct)}
}

// validateTrade checks if a BUY exceeds the allowed exposure.
//
// Returns:
//   - exceeded: true if the trade must be blocked
func (rm *riskManager) validateTrade(ctx context.Context, symbol string, price money.Money, qty decimal.Decimal) bool {
	exceeded, pct := rm.guard.Exceeds(price, qty)
	if exceeded {
		logger.Risk(ctx, symbol, "TRADE_BLOCKED_RISK_CAP",
			"qty", qty.String(),
			"price", price.String(),
			"exposure_pct", pct,
			"account_value", rm.guard.AccountValue().String(),
		)
	}
	return exceeded
}
