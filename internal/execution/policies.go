package execution

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

const (
	PolicyCloseOnly = "close_only"
	PolicyIntrabar  = "intrabar"
)

// CloseOnly triggers exits on the candle close only and always fills there.
type CloseOnly struct{ marketFill }

var _ interfaces.ExecutionSimulator = CloseOnly{}

func (CloseOnly) Name() string { return PolicyCloseOnly }

func (CloseOnly) CheckStopTriggered(stop money.Money, candle types.Candle) bool {
	return candle.Close.Amount().LessThanOrEqual(stop.Amount())
}

func (CloseOnly) CheckTakeProfitTriggered(target money.Money, candle types.Candle) bool {
	return candle.Close.Amount().GreaterThanOrEqual(target.Amount())
}

func (CloseOnly) StopExecutionPrice(_ money.Money, candle types.Candle) money.Money {
	return candle.Close
}

func (CloseOnly) TakeProfitExecutionPrice(_ money.Money, candle types.Candle) money.Money {
	return candle.Close
}

func (p CloseOnly) ExitPriority(stop, target money.Money, candle types.Candle) types.ExitPriority {
	return exitPriority(p, stop, target, candle)
}

func (p CloseOnly) SimulateExit(entry, stop, target money.Money, candle types.Candle, size decimal.Decimal) types.ExecutionResult {
	return simulateExit(p, entry, stop, target, candle, size)
}

// Intrabar triggers a stop when the low reaches it and a target when the high
// reaches it, regardless of where the candle closed.
type Intrabar struct{ marketFill }

var _ interfaces.ExecutionSimulator = Intrabar{}

func (Intrabar) Name() string { return PolicyIntrabar }

func (Intrabar) CheckStopTriggered(stop money.Money, candle types.Candle) bool {
	return candle.Low.Amount().LessThanOrEqual(stop.Amount())
}

func (Intrabar) CheckTakeProfitTriggered(target money.Money, candle types.Candle) bool {
	return candle.High.Amount().GreaterThanOrEqual(target.Amount())
}

// StopExecutionPrice fills at the open when the market gapped down through the
// stop, otherwise exactly at the stop.
func (Intrabar) StopExecutionPrice(stop money.Money, candle types.Candle) money.Money {
	if candle.Open.Amount().LessThan(stop.Amount()) {
		return candle.Open
	}
	return stop
}

// TakeProfitExecutionPrice fills at the open when the market gapped up through
// the target, otherwise exactly at the target.
func (Intrabar) TakeProfitExecutionPrice(target money.Money, candle types.Candle) money.Money {
	if candle.Open.Amount().GreaterThan(target.Amount()) {
		return candle.Open
	}
	return target
}

func (p Intrabar) ExitPriority(stop, target money.Money, candle types.Candle) types.ExitPriority {
	return exitPriority(p, stop, target, candle)
}

func (p Intrabar) SimulateExit(entry, stop, target money.Money, candle types.Candle, size decimal.Decimal) types.ExecutionResult {
	return simulateExit(p, entry, stop, target, candle, size)
}

// New returns the simulator registered under policy. An empty policy selects
// the intrabar model.
func New(policy string) (interfaces.ExecutionSimulator, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyIntrabar:
		return Intrabar{}, nil
	case PolicyCloseOnly, "naive":
		return CloseOnly{}, nil
	default:
		return nil, fmt.Errorf("unknown execution policy %q", policy)
	}
}

// Policies lists the registered policy names.
func Policies() []string {
	return []string{PolicyCloseOnly, PolicyIntrabar}
}
