package risk

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
)

const (
	StopModePct = "PCT"
	StopModeATR = "ATR"
)

// Stops computes protective stop and take-profit levels for long entries.
type Stops struct {
	mode         string  // "PCT" or "ATR"
	pct          float64 // stop distance in percent (PCT mode)
	atrMult      float64 // ATR multiplier (ATR mode)
	takeProfitRR float64 // target distance as a multiple of the stop distance
	minTick      float64 // price increment; 0 disables rounding
}

// NewStops creates a stop calculator.
func NewStops(mode string, pct, atrMult, takeProfitRR, minTick float64) *Stops {
	return &Stops{
		mode:         strings.ToUpper(mode),
		pct:          pct,
		atrMult:      atrMult,
		takeProfitRR: takeProfitRR,
		minTick:      minTick,
	}
}

// StopPrice computes the stop-loss for an entry.
//
// Two modes:
//   - PCT: entry * (1 - pct/100)
//   - ATR: entry - (atrMult * atr)
//
// Parameters:
//   - entry: Entry price
//   - atr: Average True Range at entry; NaN or non-positive is unusable in ATR mode
//
// Returns:
//   - stop: Stop price rounded to the tick size
//   - ok: false when no stop strictly between zero and entry exists
func (s *Stops) StopPrice(entry money.Money, atr float64) (money.Money, bool) {
	var stop decimal.Decimal
	if s.mode == StopModeATR {
		if math.IsNaN(atr) || atr <= 0 {
			return money.Money{}, false
		}
		stop = entry.Amount().Sub(decimal.NewFromFloat(s.atrMult * atr))
	} else {
		stop = entry.Amount().Mul(decimal.NewFromFloat(1 - s.pct/100))
	}
	stop = roundToTick(stop, s.minTick)
	if !stop.IsPositive() || stop.GreaterThanOrEqual(entry.Amount()) {
		return money.Money{}, false
	}
	return entry.WithAmount(stop), true
}

// TargetPrice places the take-profit takeProfitRR stop-distances above entry.
func (s *Stops) TargetPrice(entry, stop money.Money) money.Money {
	risk := entry.Amount().Sub(stop.Amount())
	target := entry.Amount().Add(risk.Mul(decimal.NewFromFloat(s.takeProfitRR)))
	return entry.WithAmount(roundToTick(target, s.minTick))
}

// Levels returns both exit levels for an entry.
func (s *Stops) Levels(entry money.Money, atr float64) (stop, target money.Money, ok bool) {
	stop, ok = s.StopPrice(entry, atr)
	if !ok {
		return money.Money{}, money.Money{}, false
	}
	return stop, s.TargetPrice(entry, stop), true
}

// Trail returns a stop computed from the current price when it is above
// the existing one. Stops only move up.
func (s *Stops) Trail(current money.Money, atr float64, existing money.Money) (money.Money, bool) {
	cand, ok := s.StopPrice(current, atr)
	if !ok || !cand.Amount().GreaterThan(existing.Amount()) {
		return existing, false
	}
	return cand, true
}

func roundToTick(price decimal.Decimal, tick float64) decimal.Decimal {
	if tick <= 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	return price.Div(t).Round(0).Mul(t)
}
