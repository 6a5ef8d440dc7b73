package noop

import (
	"context"

	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/types"
)

// Decider always holds. It is the fallback when the configured provider is
// "noop".
type Decider struct{}

func New() *Decider {
	return &Decider{}
}

func (d *Decider) Decide(ctx context.Context, symbol string, _ types.Candle, _ types.Indicators, _ map[string]any) (types.Decision, error) {
	logger.Debug(ctx, "Noop decider called - always returns HOLD", "symbol", symbol)
	return types.Decision{
		Action:     string(types.ActionHold),
		Reason:     "noop_decider_fallback",
		Confidence: 0.0,
	}, nil
}
