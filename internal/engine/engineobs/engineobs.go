package engineobs

import (
	"context"
	"time"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/types"
)

type observableEngine struct {
	engine  interfaces.Engine
	metrics *metrics.Metrics
}

var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap adds a span, cycle logs and step timing around eng. m may be nil.
func Wrap(eng interfaces.Engine, m *metrics.Metrics) interfaces.Engine {
	return &observableEngine{
		engine:  eng,
		metrics: m,
	}
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()
	defer func() { oe.metrics.ObserveStep(time.Since(start)) }()

	logger.DebugSkip(ctx, 1, "Starting trading cycle", "symbol", symbol)

	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"symbol", symbol,
		"action", result.Decision.Action,
		"confidence", result.Decision.Confidence,
		"price", result.Price.String(),
		"orders", len(result.Orders),
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
