package interfaces

import (
	"context"

	"llm-crypto-trader/internal/types"
)

// Decider turns the latest closed candle and its indicator snapshot into a
// trading decision. contextData carries engine state such as the open position.
type Decider interface {
	Decide(ctx context.Context, symbol string, latest types.Candle, inds types.Indicators, contextData map[string]any) (types.Decision, error)
}
