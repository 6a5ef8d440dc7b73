package backtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/execution"
	"llm-crypto-trader/internal/execution/executionobs"
	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/logger"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/scoring"
	"llm-crypto-trader/internal/ta"
	"llm-crypto-trader/internal/types"
)

// Runner replays candles for one execution policy.
type Runner struct {
	cfg     Config
	sim     interfaces.ExecutionSimulator
	decider interfaces.Decider
	metrics *metrics.Metrics
}

// NewRunner creates a runner. With a nil decider the scorer's verdict is
// traded directly. m may be nil.
func NewRunner(cfg Config, sim interfaces.ExecutionSimulator, decider interfaces.Decider, m *metrics.Metrics) *Runner {
	return &Runner{cfg: cfg.withDefaults(), sim: sim, decider: decider, metrics: m}
}

// Run walks candles[Warmup:] in order. A signal seen on candle i is executed
// at the open of candle i+1; protective exits are checked on every candle a
// position is open, including its entry candle. Whatever is still open after
// the last candle is closed at its close.
func (r *Runner) Run(ctx context.Context, candles []types.Candle) (*Result, error) {
	cfg := r.cfg
	if len(candles) <= cfg.Warmup {
		return nil, fmt.Errorf("%w: have %d, warmup %d", ErrNotEnoughCandles, len(candles), cfg.Warmup)
	}

	op := logger.StartOperation(ctx, "backtest.Run",
		"policy", r.sim.Name(),
		"symbol", cfg.Symbol,
		"candles", len(candles),
	)
	ctx = op.Context()
	sim := executionobs.Wrap(ctx, r.sim, r.metrics)

	res := &Result{
		RunID:       uuid.NewString(),
		Policy:      r.sim.Name(),
		Symbol:      cfg.Symbol,
		Start:       candles[cfg.Warmup].Time,
		End:         candles[len(candles)-1].Time,
		Candles:     len(candles) - cfg.Warmup,
		InitialCash: cfg.InitialCash,
	}

	cash := cfg.InitialCash
	var pos *Trade
	var pendingBuy, pendingSell bool
	var signalATR float64
	equity := make([]decimal.Decimal, 0, res.Candles)

	for i := cfg.Warmup; i < len(candles); i++ {
		c := candles[i]

		if pendingSell && pos != nil {
			fill := sim.ExecuteMarketOrder(types.SideSell, pos.Size, c.Open, c, cfg.Slippage)
			if f, ok := types.AsFilled(fill); ok {
				cash = cash.Add(r.close(ctx, res, pos, f.Price, f.Slippage, c, ExitSignal))
				pos = nil
			}
		}
		if pendingBuy && pos == nil {
			if t, cost, ok := r.open(ctx, sim, c, cash, signalATR); ok {
				pos = t
				cash = cash.Sub(cost)
			}
		}
		pendingBuy, pendingSell = false, false

		if pos != nil {
			if hiddenStop(pos.Stop, c) {
				res.HiddenStops++
			}
			if kind := sim.ExitPriority(pos.Stop, pos.Target, c); kind != types.ExitNone {
				exit := sim.SimulateExit(pos.Entry, pos.Stop, pos.Target, c, pos.Size)
				if f, ok := types.AsFilled(exit); ok {
					level, reason := pos.Stop, ExitStop
					if kind == types.ExitTarget {
						level, reason = pos.Target, ExitTarget
					}
					gap := f.Price.WithAmount(f.Price.Amount().Sub(level.Amount()).Abs())
					cash = cash.Add(r.close(ctx, res, pos, f.Price, gap, c, reason))
					pos = nil
				}
			}
		}

		if i < len(candles)-1 {
			action, atr, err := r.signal(ctx, candles, i, pos != nil)
			if err != nil {
				op.EndWithError(err)
				return nil, err
			}
			switch {
			case pos == nil && action == types.ActionBuy:
				pendingBuy, signalATR = true, atr
			case pos != nil && (action == types.ActionSell || action == types.ActionClose):
				pendingSell = true
			}
		}

		equity = append(equity, markToMarket(cash, pos, c))
	}

	if pos != nil {
		last := candles[len(candles)-1]
		cash = cash.Add(r.close(ctx, res, pos, last.Close, money.Zero(last.Currency()), last, ExitEnd))
		equity[len(equity)-1] = cash
	}

	res.FinalEquity = cash
	res.finish(equity)
	r.metrics.ObserveBacktest(res.Policy, res.HiddenStops)

	op.End(
		"run_id", res.RunID,
		"trades", len(res.Trades),
		"pnl", res.PnL.String(),
		"hidden_stops", res.HiddenStops,
	)
	logger.Info(ctx, "Backtest finished",
		"run_id", res.RunID,
		"policy", res.Policy,
		"symbol", res.Symbol,
		"trades", len(res.Trades),
		"win_rate", res.WinRate,
		"pnl", res.PnL.String(),
		"max_drawdown_pct", res.MaxDrawdownPct,
		"hidden_stops", res.HiddenStops,
	)
	return res, nil
}

// open buys at the candle open. Without usable protective levels the entry
// is skipped.
func (r *Runner) open(ctx context.Context, sim interfaces.ExecutionSimulator, c types.Candle, cash decimal.Decimal, atr float64) (*Trade, decimal.Decimal, bool) {
	size := r.cfg.Qty
	if !size.IsPositive() {
		worst := c.Open.Amount().Mul(decimal.NewFromInt(1).Add(r.cfg.Slippage))
		if !worst.IsPositive() {
			return nil, decimal.Zero, false
		}
		size = cash.Div(worst).Truncate(8)
	}
	if !size.IsPositive() {
		return nil, decimal.Zero, false
	}

	f, ok := types.AsFilled(sim.ExecuteMarketOrder(types.SideBuy, size, c.Open, c, r.cfg.Slippage))
	if !ok {
		return nil, decimal.Zero, false
	}
	cost := f.Price.Amount().Mul(f.Size)
	if cost.GreaterThan(cash) {
		logger.Risk(ctx, r.cfg.Symbol, "ENTRY_SKIPPED_INSUFFICIENT_CASH", "cost", cost.String(), "cash", cash.String())
		return nil, decimal.Zero, false
	}

	stop, target, ok := r.cfg.Stops.Levels(f.Price, atr)
	if !ok {
		logger.Risk(ctx, r.cfg.Symbol, "ENTRY_SKIPPED_NO_STOP", "entry", f.Price.String(), "atr", atr)
		return nil, decimal.Zero, false
	}

	t := &Trade{
		ID:        uuid.NewString(),
		Symbol:    r.cfg.Symbol,
		EntryTime: c.Time,
		Entry:     f.Price,
		Size:      f.Size,
		Stop:      stop,
		Target:    target,
		Slippage:  f.Slippage,
	}
	logger.Trade(ctx, r.cfg.Symbol, string(types.SideBuy), f.Size, f.Price, t.ID,
		"policy", r.sim.Name(),
		"stop", stop.String(),
		"target", target.String(),
		"candle_time", c.Time,
	)
	return t, cost, true
}

// close finalizes t, appends it to res and returns the sale proceeds.
func (r *Runner) close(ctx context.Context, res *Result, t *Trade, price, slippage money.Money, c types.Candle, reason string) decimal.Decimal {
	t.ExitTime = c.Time
	t.Exit = price
	t.ExitReason = reason
	t.PnL = price.WithAmount(price.Amount().Sub(t.Entry.Amount()).Mul(t.Size))
	t.Slippage = t.Slippage.WithAmount(t.Slippage.Amount().Add(slippage.Amount()))
	res.Trades = append(res.Trades, *t)

	logger.Trade(ctx, t.Symbol, string(types.SideSell), t.Size, price, t.ID,
		"policy", r.sim.Name(),
		"reason", reason,
		"pnl", t.PnL.String(),
		"candle_time", c.Time,
	)
	return price.Amount().Mul(t.Size)
}

// signal evaluates candles[:i+1]. The decider, when set, sees the same
// snapshot the scorer would.
func (r *Runner) signal(ctx context.Context, candles []types.Candle, i int, inPosition bool) (types.Action, float64, error) {
	start := i + 1 - r.cfg.Window
	if start < 0 {
		start = 0
	}
	c := candles[i]
	inds := ta.Snapshot(candles[start:i+1], r.cfg.Periods)
	atr, _ := inds.Get(types.IndATR)

	if r.decider == nil {
		return scoring.Score(inds, c.Close.Float64()).Decision.Action(), atr, nil
	}

	d, err := r.decider.Decide(ctx, r.cfg.Symbol, c, inds, map[string]any{
		"price":       c.Close.String(),
		"in_position": inPosition,
		"backtest":    true,
	})
	if err != nil {
		return types.ActionHold, atr, fmt.Errorf("backtest: decide at %s: %w", c.Time, err)
	}
	return types.ParseAction(d.Action), atr, nil
}

// hiddenStop is a stop the low reached while the close finished above it.
func hiddenStop(stop money.Money, c types.Candle) bool {
	return execution.Intrabar{}.CheckStopTriggered(stop, c) && !execution.CloseOnly{}.CheckStopTriggered(stop, c)
}

func markToMarket(cash decimal.Decimal, pos *Trade, c types.Candle) decimal.Decimal {
	if pos == nil {
		return cash
	}
	return cash.Add(c.Close.Amount().Mul(pos.Size))
}
