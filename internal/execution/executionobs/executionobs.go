package executionobs

import (
	"context"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/trace"
	"llm-crypto-trader/internal/types"
)

// observableSimulator wraps an ExecutionSimulator with tracing, logging and
// metrics. The trigger and price predicates are forwarded untouched; only the
// two fill operations are instrumented.
type observableSimulator struct {
	sim     interfaces.ExecutionSimulator
	ctx     context.Context
	metrics *metrics.Metrics
}

// Compile-time interface check
var _ interfaces.ExecutionSimulator = (*observableSimulator)(nil)

// Wrap wraps sim. The simulator contract carries no context, so spans and
// logs are parented to ctx (typically the backtest run span). m may be nil.
func Wrap(ctx context.Context, sim interfaces.ExecutionSimulator, m *metrics.Metrics) interfaces.ExecutionSimulator {
	if ctx == nil {
		ctx = context.Background()
	}
	return &observableSimulator{sim: sim, ctx: ctx, metrics: m}
}

func (o *observableSimulator) Name() string { return o.sim.Name() }

func (o *observableSimulator) ExecuteMarketOrder(side types.Side, size decimal.Decimal, expected money.Money, candle types.Candle, slippage decimal.Decimal) types.ExecutionResult {
	ctx, span := trace.StartSpan(o.ctx, "execution.ExecuteMarketOrder")
	defer span.End()

	res := o.sim.ExecuteMarketOrder(side, size, expected, candle, slippage)
	if f, ok := types.AsFilled(res); ok {
		o.metrics.ObserveMarketFill(o.sim.Name(), string(side))
		logger.DebugSkip(ctx, 1, "Market order filled",
			"policy", o.sim.Name(),
			"side", side,
			"size", size.String(),
			"expected", expected.String(),
			"price", f.Price.String(),
			"slippage", f.Slippage.String(),
			"candle_time", candle.Time,
		)
	}
	return res
}

func (o *observableSimulator) CheckStopTriggered(stop money.Money, candle types.Candle) bool {
	return o.sim.CheckStopTriggered(stop, candle)
}

func (o *observableSimulator) CheckTakeProfitTriggered(target money.Money, candle types.Candle) bool {
	return o.sim.CheckTakeProfitTriggered(target, candle)
}

func (o *observableSimulator) StopExecutionPrice(stop money.Money, candle types.Candle) money.Money {
	return o.sim.StopExecutionPrice(stop, candle)
}

func (o *observableSimulator) TakeProfitExecutionPrice(target money.Money, candle types.Candle) money.Money {
	return o.sim.TakeProfitExecutionPrice(target, candle)
}

func (o *observableSimulator) ExitPriority(stop, target money.Money, candle types.Candle) types.ExitPriority {
	return o.sim.ExitPriority(stop, target, candle)
}

func (o *observableSimulator) SimulateExit(entry, stop, target money.Money, candle types.Candle, size decimal.Decimal) types.ExecutionResult {
	ctx, span := trace.StartSpan(o.ctx, "execution.SimulateExit")
	defer span.End()

	kind := o.sim.ExitPriority(stop, target, candle)
	res := o.sim.SimulateExit(entry, stop, target, candle, size)

	f, ok := types.AsFilled(res)
	if !ok {
		return res
	}

	o.metrics.ObserveExit(o.sim.Name(), kind.String())
	logger.InfoSkip(ctx, 1, "Exit simulated",
		"policy", o.sim.Name(),
		"kind", kind.String(),
		"entry", entry.String(),
		"price", f.Price.String(),
		"slippage", f.Slippage.String(),
		"size", f.Size.String(),
		"candle_time", candle.Time,
	)
	return res
}
