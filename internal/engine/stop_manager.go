package engine

import (
	"context"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/risk"
	"llm-crypto-trader/internal/types"
)

// stopManager computes exit levels and checks them against the latest candle
// with the configured execution policy. A position without levels never exits
// here.
type stopManager struct {
	stops    *risk.Stops
	sim      interfaces.ExecutionSimulator
	trailing bool
}

func newStopManager(stops *risk.Stops, sim interfaces.ExecutionSimulator, trailing bool) *stopManager {
	return &stopManager{stops: stops, sim: sim, trailing: trailing}
}

func (sm *stopManager) levels(entry money.Money, atr float64) (stop, target money.Money, ok bool) {
	return sm.stops.Levels(entry, atr)
}

// checkExit asks the simulator whether the candle reached the position's
// stop or target. With both reachable the stop wins.
//
// Returns:
//   - kind: ExitStop, ExitTarget or ExitNone
//   - level: the stop or target that fired
//   - price: where the simulator expects the exit to fill
func (sm *stopManager) checkExit(ctx context.Context, symbol string, pos *position, candle types.Candle) (kind types.ExitPriority, level, price money.Money) {
	if pos == nil || !pos.qty.IsPositive() || pos.stop.IsZero() {
		return types.ExitNone, money.Money{}, money.Money{}
	}

	kind = sm.sim.ExitPriority(pos.stop, pos.target, candle)
	switch kind {
	case types.ExitStop:
		level = pos.stop
		price = sm.sim.StopExecutionPrice(pos.stop, candle)
	case types.ExitTarget:
		level = pos.target
		price = sm.sim.TakeProfitExecutionPrice(pos.target, candle)
	default:
		return types.ExitNone, money.Money{}, money.Money{}
	}

	logger.Risk(ctx, symbol, kind.String()+"_TRIGGERED",
		"policy", sm.sim.Name(),
		"stop", pos.stop.String(),
		"target", pos.target.String(),
		"expected_fill", price.String(),
		"position_qty", pos.qty.String(),
		"position_avg", pos.avg.String(),
		"candle_low", candle.Low.String(),
		"candle_high", candle.High.String(),
	)
	return kind, level, price
}

func (sm *stopManager) trail(current money.Money, atr float64, existing money.Money) (money.Money, bool) {
	if !sm.trailing {
		return existing, false
	}
	return sm.stops.Trail(current, atr, existing)
}
