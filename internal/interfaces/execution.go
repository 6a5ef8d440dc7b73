package interfaces

import (
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

// ExecutionSimulator decides how pending exits and market orders would have
// filled inside one historical candle. Implementations are stateless and safe
// for concurrent use; the runner picks one at construction time.
type ExecutionSimulator interface {
	Name() string
	ExecuteMarketOrder(side types.Side, size decimal.Decimal, expected money.Money, candle types.Candle, slippage decimal.Decimal) types.ExecutionResult
	CheckStopTriggered(stop money.Money, candle types.Candle) bool
	CheckTakeProfitTriggered(target money.Money, candle types.Candle) bool
	StopExecutionPrice(stop money.Money, candle types.Candle) money.Money
	TakeProfitExecutionPrice(target money.Money, candle types.Candle) money.Money
	ExitPriority(stop, target money.Money, candle types.Candle) types.ExitPriority
	SimulateExit(entry, stop, target money.Money, candle types.Candle, size decimal.Decimal) types.ExecutionResult
}
