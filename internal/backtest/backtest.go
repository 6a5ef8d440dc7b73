// Package backtest replays historical candles through the scorer and an
// execution policy. Positions are long-only and one at a time.
package backtest

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/risk"
	"llm-crypto-trader/internal/ta"
)

var ErrNotEnoughCandles = errors.New("backtest: not enough candles after warmup")

// Exit reasons recorded on trades.
const (
	ExitStop   = "STOP"
	ExitTarget = "TARGET"
	ExitSignal = "SIGNAL"
	ExitEnd    = "END"
)

const defaultWindow = 200

type Config struct {
	Symbol      string
	Currency    string
	Warmup      int
	InitialCash decimal.Decimal
	// Qty is a fixed order size. Zero invests all available cash.
	Qty      decimal.Decimal
	Slippage decimal.Decimal
	Periods  ta.Periods
	Stops    *risk.Stops
	// Window caps the candle history handed to the indicator snapshot.
	Window int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = defaultWindow
	}
	if c.Warmup < 1 {
		c.Warmup = 1
	}
	if c.Stops == nil {
		c.Stops = risk.NewStops(risk.StopModePct, 2, 2, 2, 0)
	}
	return c
}

// Trade is one round trip.
type Trade struct {
	ID         string
	Symbol     string
	EntryTime  time.Time
	ExitTime   time.Time
	Entry      money.Money
	Exit       money.Money
	Size       decimal.Decimal
	Stop       money.Money
	Target     money.Money
	PnL        money.Money
	Slippage   money.Money // entry plus exit slippage, per unit
	ExitReason string
}

func (t Trade) IsWin() bool { return t.PnL.IsPositive() }

// Result summarizes one run of one policy.
type Result struct {
	RunID          string
	Policy         string
	Symbol         string
	Start          time.Time
	End            time.Time
	Candles        int
	Trades         []Trade
	InitialCash    decimal.Decimal
	FinalEquity    decimal.Decimal
	PnL            decimal.Decimal
	ReturnPct      float64
	WinRate        float64
	MaxDrawdownPct float64
	// HiddenStops counts candles where an open position's stop was touched
	// intrabar while the close stayed above it.
	HiddenStops int
}

func (r *Result) Wins() int {
	n := 0
	for _, t := range r.Trades {
		if t.IsWin() {
			n++
		}
	}
	return n
}

func (r *Result) Losses() int { return len(r.Trades) - r.Wins() }

// finish derives the aggregate statistics from trades and the equity curve.
func (r *Result) finish(equity []decimal.Decimal) {
	r.PnL = r.FinalEquity.Sub(r.InitialCash)
	if r.InitialCash.IsPositive() {
		r.ReturnPct = r.PnL.Div(r.InitialCash).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	if len(r.Trades) > 0 {
		r.WinRate = float64(r.Wins()) / float64(len(r.Trades)) * 100
	}
	r.MaxDrawdownPct = maxDrawdownPct(equity)
}

func maxDrawdownPct(equity []decimal.Decimal) float64 {
	var peak decimal.Decimal
	worst := 0.0
	for _, e := range equity {
		if e.GreaterThan(peak) {
			peak = e
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(e).Div(peak).Mul(decimal.NewFromInt(100)).InexactFloat64()
		if dd > worst {
			worst = dd
		}
	}
	return worst
}
