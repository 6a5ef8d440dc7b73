package types

import (
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
)

// ReasonNoExit is the failure reason reported when neither a stop nor a target
// was reached inside the candle.
const ReasonNoExit = "no exit triggered"

// ExecutionResult is the outcome of one fill attempt. It is either a Filled or
// an Unfilled value; use a type switch to read the variant-specific fields.
type ExecutionResult interface {
	Success() bool
	isExecutionResult()
}

// Filled is the success variant of ExecutionResult.
type Filled struct {
	Price    money.Money
	Size     decimal.Decimal
	Slippage money.Money // always a non-negative magnitude
}

func (Filled) Success() bool { return true }
func (Filled) isExecutionResult() {}

// Unfilled is the failure variant of ExecutionResult. It carries no price.
type Unfilled struct {
	Reason string
}

func (Unfilled) Success() bool { return false }
func (Unfilled) isExecutionResult() {}

// AsFilled returns the fill and true when r is a success.
func AsFilled(r ExecutionResult) (Filled, bool) {
	f, ok := r.(Filled)
	return f, ok
}
