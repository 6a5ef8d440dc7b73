package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/risk"
	"llm-crypto-trader/internal/store"
	"llm-crypto-trader/internal/ta"
	"llm-crypto-trader/internal/tradelog"
	"llm-crypto-trader/internal/types"
)

// minCandles is the shortest history the indicator snapshot is useful on.
const minCandles = 30

var ErrNotEnoughCandles = errors.New("not enough candles")

type engine struct {
	cfg      *store.Config
	exchange interfaces.Exchange
	decider  interfaces.Decider
	periods  ta.Periods

	positions *positionManager
	orders    *orderExecutor
	stops     *stopManager
	risk      *riskManager

	// realized P&L of the current UTC day, keyed by candle time
	day    string
	dayPnL decimal.Decimal
}

func newEngine(cfg *store.Config, exch interfaces.Exchange, d interfaces.Decider, sim interfaces.ExecutionSimulator, log *tradelog.Log) *engine {
	stops := risk.NewStops(cfg.Stop.Mode, cfg.Stop.Pct, cfg.Stop.ATRMult, cfg.Stop.TakeProfitRR, cfg.Stop.MinTick)
	return &engine{
		cfg:       cfg,
		exchange:  exch,
		decider:   d,
		periods:   cfg.Periods(),
		positions: newPositionManager(),
		orders:    newOrderExecutor(exch, log),
		stops:     newStopManager(stops, sim, cfg.Stop.Trailing),
		risk:      newRiskManager(decimal.NewFromFloat(cfg.Risk.AccountValue), cfg.Risk.PerTradeRiskPct),
	}
}

// Step runs one decision cycle for symbol on the latest closed candle.
//
// Order of work:
//  1. protective exits for an open position (stop wins over target)
//  2. decider verdict and decision log
//  3. BUY / SELL / CLOSE execution with the per-trade cap
//  4. trailing stop update
func (e *engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	candles, err := e.exchange.RecentCandles(ctx, symbol, e.cfg.Indicators.Lookback)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch candles", err, "symbol", symbol)
		return nil, err
	}
	if len(candles) < minCandles {
		logger.Error(ctx, "Insufficient candle data", "symbol", symbol, "received", len(candles), "required", minCandles)
		return nil, fmt.Errorf("%w: %s has %d, need %d", ErrNotEnoughCandles, symbol, len(candles), minCandles)
	}

	inds := ta.Snapshot(candles, e.periods)
	latest := candles[len(candles)-1]
	price := latest.Close
	atr, _ := inds.Get(types.IndATR)
	e.rollDay(latest.Time)

	logger.Debug(ctx, "Current market state",
		"symbol", symbol,
		"price", price.String(),
		"candle_time", latest.Time,
		"indicators", len(inds),
	)

	if res, done := e.protectiveExit(ctx, symbol, latest); done {
		return res, nil
	}

	decision, err := e.decider.Decide(ctx, symbol, latest, inds, e.decisionContext(symbol, price))
	if err != nil {
		logger.ErrorWithErr(ctx, "Decision failed", err, "symbol", symbol)
		return nil, err
	}
	e.orders.logDecision(ctx, symbol, decision, price, latest.Time, inds)

	action := types.ParseAction(decision.Action)
	orders := []types.OrderResp{}
	reason := decision.Reason

	switch action {
	case types.ActionBuy:
		qty := e.pickQty(symbol, decision)
		if !qty.IsPositive() {
			break
		}
		if e.dailyLossExceeded() {
			logger.Risk(ctx, symbol, "TRADE_BLOCKED_DAILY_DRAWDOWN", "day_pnl", e.dayPnL.String())
			reason += " | blocked: daily drawdown"
			break
		}
		if e.risk.validateTrade(ctx, symbol, price, qty) {
			reason += " | blocked: risk cap"
			break
		}
		resp, err := e.orders.placeBuyOrder(ctx, symbol, qty, price, latest.Time, decision.Reason, decision.Confidence)
		if err != nil {
			reason += " | order_err:" + err.Error()
			break
		}
		orders = append(orders, resp)
		e.openOrAdd(ctx, symbol, resp, atr, latest.Time)

	case types.ActionSell, types.ActionClose:
		p := e.positions.get(symbol)
		if p == nil {
			// long-only: nothing to sell
			logger.Debug(ctx, "Sell decision without position", "symbol", symbol)
			reason += " | no position"
			break
		}
		qty := p.qty
		if action == types.ActionSell {
			qty = decimal.Min(e.pickQty(symbol, decision), p.qty)
		}
		if !qty.IsPositive() {
			break
		}
		resp, err := e.orders.placeSellOrder(ctx, symbol, qty, price, latest.Time, decision.Reason, decision.Confidence)
		if err != nil {
			reason += " | order_err:" + err.Error()
			break
		}
		orders = append(orders, resp)
		e.reduce(ctx, symbol, resp)

	default:
		logger.Debug(ctx, "HOLD decision - no action taken", "symbol", symbol, "reason", decision.Reason)
	}

	e.trail(ctx, symbol, price, atr)

	return &types.StepResult{
		Symbol:   symbol,
		Decision: decision,
		Price:    price,
		Time:     latest.Time,
		Orders:   orders,
		Reason:   reason,
	}, nil
}

// protectiveExit closes the position when the latest candle reached its stop
// or target under the configured execution policy.
func (e *engine) protectiveExit(ctx context.Context, symbol string, latest types.Candle) (*types.StepResult, bool) {
	p := e.positions.get(symbol)
	kind, level, expected := e.stops.checkExit(ctx, symbol, p, latest)
	if kind == types.ExitNone {
		return nil, false
	}

	reason := "STOP_LOSS"
	if kind == types.ExitTarget {
		reason = "TAKE_PROFIT"
	}

	resp, err := e.orders.placeExitOrder(ctx, symbol, p.qty, kind, level, expected, latest.Time, reason)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to execute protective exit", err, "symbol", symbol, "kind", kind.String())
		return nil, false
	}
	e.reduce(ctx, symbol, resp)

	return &types.StepResult{
		Symbol: symbol,
		Decision: types.Decision{
			Action:     string(types.ActionClose),
			Reason:     reason,
			Confidence: 1.0,
		},
		Price:  resp.Price,
		Time:   latest.Time,
		Orders: []types.OrderResp{resp},
		Reason: reason + "_TRIGGERED",
	}, true
}

func (e *engine) openOrAdd(ctx context.Context, symbol string, resp types.OrderResp, atr float64, at time.Time) {
	prev := e.positions.get(symbol)
	entry := resp.Price
	if prev != nil {
		total := prev.qty.Add(resp.Qty)
		cost := prev.avg.Amount().Mul(prev.qty).Add(resp.Price.Amount().Mul(resp.Qty))
		entry = resp.Price.WithAmount(cost.Div(total))
	}

	stop, target, ok := e.stops.levels(entry, atr)
	if !ok {
		// zero levels disable protective exits for this position
		stop, target = money.Zero(entry.Currency()), money.Zero(entry.Currency())
		logger.Warn(ctx, "No protective levels for position", "symbol", symbol, "entry", entry.String(), "atr", atr)
	}

	p := e.positions.addBuy(symbol, resp.Qty, resp.Price, atr, stop, target, at)
	logger.Info(ctx, "Position updated after BUY",
		"symbol", symbol,
		"qty", p.qty.String(),
		"avg", p.avg.String(),
		"stop", p.stop.String(),
		"target", p.target.String(),
		"atr", atr,
	)
}

func (e *engine) reduce(ctx context.Context, symbol string, resp types.OrderResp) {
	realized := e.positions.reduceSell(ctx, symbol, resp.Qty, resp.Price)
	e.dayPnL = e.dayPnL.Add(realized.Amount())
	e.risk.guard.SetAccountValue(e.risk.guard.AccountValue().Add(realized.Amount()))

	fields := []any{"symbol", symbol, "sold", resp.Qty.String(), "price", resp.Price.String(), "realized_pnl", realized.String()}
	if !e.positions.has(symbol) {
		logger.Info(ctx, "Position closed", fields...)
		return
	}
	logger.Info(ctx, "Position reduced", append(fields, "remaining", e.positions.get(symbol).qty.String())...)
}

func (e *engine) trail(ctx context.Context, symbol string, price money.Money, atr float64) {
	p := e.positions.get(symbol)
	if p == nil || p.stop.IsZero() {
		return
	}
	old := p.stop
	next, ok := e.stops.trail(price, atr, p.stop)
	if ok && e.positions.updateTrailingStop(symbol, next, atr) {
		logger.Debug(ctx, "Trailing stop updated",
			"symbol", symbol,
			"old_stop", old.String(),
			"new_stop", next.String(),
			"current_price", price.String(),
		)
	}
}

func (e *engine) decisionContext(symbol string, price money.Money) map[string]any {
	data := map[string]any{
		"price": price.String(),
		"risk": map[string]any{
			"per_trade_risk_pct":     e.cfg.Risk.PerTradeRiskPct,
			"max_daily_drawdown_pct": e.cfg.Risk.MaxDailyDrawdownPct,
			"day_pnl":                e.dayPnL.String(),
		},
	}
	if p := e.positions.get(symbol); p != nil {
		data["position"] = map[string]any{
			"qty":    p.qty.String(),
			"avg":    p.avg.String(),
			"stop":   p.stop.String(),
			"target": p.target.String(),
		}
	}
	return data
}

// rollDay resets the daily P&L when the candle crosses into a new UTC day.
func (e *engine) rollDay(t time.Time) {
	day := t.UTC().Format("2006-01-02")
	if day != e.day {
		e.day = day
		e.dayPnL = decimal.Zero
	}
}

func (e *engine) dailyLossExceeded() bool {
	limit := e.cfg.Risk.MaxDailyDrawdownPct
	acct := decimal.NewFromFloat(e.cfg.Risk.AccountValue)
	if limit <= 0 || !acct.IsPositive() || !e.dayPnL.IsNegative() {
		return false
	}
	lossPct := e.dayPnL.Neg().Div(acct).Mul(decimal.NewFromInt(100)).InexactFloat64()
	return lossPct >= limit
}

// pickQty resolves the order size: the decider's own size first, then the
// per-symbol override, then the side default.
func (e *engine) pickQty(symbol string, d types.Decision) decimal.Decimal {
	if d.Qty.IsPositive() {
		return d.Qty
	}
	if v, ok := e.cfg.Qty.PerSymbol[symbol]; ok {
		return parseQty(v)
	}
	if types.ParseAction(d.Action) == types.ActionBuy {
		return parseQty(e.cfg.Qty.DefaultBuy)
	}
	return parseQty(e.cfg.Qty.DefaultSell)
}

// parseQty reads a validated config quantity.
func parseQty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
