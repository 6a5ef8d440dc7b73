package llmobs

import (
	"context"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/types"
)

// observableDecider wraps a Decider with logging, tracing and a decision counter
type observableDecider struct {
	decider interfaces.Decider
	metrics *metrics.Metrics
}

// Compile-time interface check
var _ interfaces.Decider = (*observableDecider)(nil)

// Wrap wraps a decider with observability middleware. m may be nil.
func Wrap(decider interfaces.Decider, m *metrics.Metrics) interfaces.Decider {
	return &observableDecider{
		decider: decider,
		metrics: m,
	}
}

func (od *observableDecider) Decide(
	ctx context.Context,
	symbol string,
	latest types.Candle,
	indicators types.Indicators,
	contextData map[string]any,
) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Decide")
	defer span.End()

	rsi, _ := indicators.Get(types.IndRSI)
	logger.DebugSkip(ctx, 1, "Requesting trading decision",
		"symbol", symbol,
		"price", latest.Close.String(),
		"candle_time", latest.Time,
		"indicators", len(indicators),
		"rsi", rsi,
	)

	decision, err := od.decider.Decide(ctx, symbol, latest, indicators, contextData)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trading decision", err,
			"symbol", symbol,
			"price", latest.Close.String(),
		)
		return types.Decision{}, err
	}

	od.metrics.ObserveDecision(decision.Action)
	logger.Decision(ctx, symbol, decision.Action, decision.Confidence, decision.Reason)
	return decision, nil
}
