package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
)

// Action is what a Signal asks the runner to do.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionClose Action = "CLOSE"
	ActionHold  Action = "HOLD"
)

// ParseAction normalizes s. Unknown values map to HOLD.
func ParseAction(s string) Action {
	switch a := Action(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell, ActionClose, ActionHold:
		return a
	default:
		return ActionHold
	}
}

// Signal is a trading intention derived from indicators or a Decider.
//
// Timestamp is nil unless the creator supplies one. Backtests pass the candle
// time; only the live path may pass a clock reading.
type Signal struct {
	Action     Action
	Price      money.Money
	Size       *decimal.Decimal
	StopLoss   *money.Money
	TakeProfit *money.Money
	Reason     map[string]any
	Timestamp  *time.Time
}

// NewSignal requires the timestamp to be passed explicitly, even when nil.
func NewSignal(action Action, price money.Money, ts *time.Time) Signal {
	return Signal{Action: action, Price: price, Reason: map[string]any{}, Timestamp: ts}
}

// WithLevels returns a copy of s carrying the given stop-loss and take-profit.
func (s Signal) WithLevels(stop, target money.Money) Signal {
	s.StopLoss = &stop
	s.TakeProfit = &target
	return s
}

// WithSize returns a copy of s carrying a size.
func (s Signal) WithSize(size decimal.Decimal) Signal {
	s.Size = &size
	return s
}

// RiskReward is (take_profit - price) / (price - stop_loss). It is only
// defined when both levels are set and the stop sits below the price.
func (s Signal) RiskReward() (decimal.Decimal, bool) {
	if s.StopLoss == nil || s.TakeProfit == nil {
		return decimal.Zero, false
	}
	risk := s.Price.Amount().Sub(s.StopLoss.Amount())
	if !risk.IsPositive() {
		return decimal.Zero, false
	}
	reward := s.TakeProfit.Amount().Sub(s.Price.Amount())
	return reward.Div(risk), true
}

// RiskPct is the distance from price down to the stop, in percent of price.
func (s Signal) RiskPct() (decimal.Decimal, bool) {
	if s.StopLoss == nil || s.Price.IsZero() {
		return decimal.Zero, false
	}
	return pctOf(s.Price.Amount().Sub(s.StopLoss.Amount()), s.Price.Amount()), true
}

// RewardPct is the distance from price up to the target, in percent of price.
func (s Signal) RewardPct() (decimal.Decimal, bool) {
	if s.TakeProfit == nil || s.Price.IsZero() {
		return decimal.Zero, false
	}
	return pctOf(s.TakeProfit.Amount().Sub(s.Price.Amount()), s.Price.Amount()), true
}

func pctOf(part, whole decimal.Decimal) decimal.Decimal {
	return part.Div(whole).Mul(decimal.NewFromInt(100))
}

// ToMap flattens s into the legacy key/value shape used by trade logs and
// prompt context. Amounts are written as decimal strings.
func (s Signal) ToMap() map[string]any {
	m := map[string]any{
		"action":   string(s.Action),
		"price":    s.Price.Amount().String(),
		"currency": s.Price.Currency(),
	}
	if s.Size != nil {
		m["size"] = s.Size.String()
	}
	if s.StopLoss != nil {
		m["stop_loss"] = s.StopLoss.Amount().String()
	}
	if s.TakeProfit != nil {
		m["take_profit"] = s.TakeProfit.Amount().String()
	}
	if len(s.Reason) > 0 {
		m["reason"] = s.Reason
	}
	if s.Timestamp != nil {
		m["timestamp"] = s.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// SignalFromMap parses the legacy flat mapping. Numeric fields may be strings,
// float64, int or decimal values. defaultCurrency is used when the map has no
// "currency" key.
func SignalFromMap(m map[string]any, defaultCurrency string) (Signal, error) {
	currency := defaultCurrency
	if c, ok := m["currency"].(string); ok && c != "" {
		currency = c
	}

	action, _ := m["action"].(string)
	price, err := toDecimal(m["price"])
	if err != nil {
		return Signal{}, fmt.Errorf("signal: price: %w", err)
	}

	var ts *time.Time
	if raw, ok := m["timestamp"]; ok && raw != nil {
		t, err := toTime(raw)
		if err != nil {
			return Signal{}, fmt.Errorf("signal: timestamp: %w", err)
		}
		ts = &t
	}

	s := NewSignal(ParseAction(action), money.New(price, currency), ts)

	if raw, ok := m["size"]; ok && raw != nil {
		d, err := toDecimal(raw)
		if err != nil {
			return Signal{}, fmt.Errorf("signal: size: %w", err)
		}
		s.Size = &d
	}
	if raw, ok := m["stop_loss"]; ok && raw != nil {
		d, err := toDecimal(raw)
		if err != nil {
			return Signal{}, fmt.Errorf("signal: stop_loss: %w", err)
		}
		sl := money.New(d, currency)
		s.StopLoss = &sl
	}
	if raw, ok := m["take_profit"]; ok && raw != nil {
		d, err := toDecimal(raw)
		if err != nil {
			return Signal{}, fmt.Errorf("signal: take_profit: %w", err)
		}
		tp := money.New(d, currency)
		s.TakeProfit = &tp
	}
	switch r := m["reason"].(type) {
	case map[string]any:
		s.Reason = r
	case string:
		s.Reason = map[string]any{"summary": r}
	}
	return s, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return time.Parse(time.RFC3339Nano, x)
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case float64:
		return time.Unix(int64(x), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
