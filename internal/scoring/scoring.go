// Package scoring turns a snapshot of technical indicators into a weighted
// buy/sell verdict.
//
// Rules live in a table (rules.go) grouped by family. Each family can be
// evaluated on its own; Score runs all of them and aggregates. Indicators
// missing from the input are skipped, never defaulted. The scorer is pure and
// safe for concurrent use.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"llm-crypto-trader/internal/types"
)

// Decision is the discrete verdict derived from the net score.
type Decision string

const (
	StrongBuy  Decision = "STRONG_BUY"
	Buy        Decision = "BUY"
	Hold       Decision = "HOLD"
	Sell       Decision = "SELL"
	StrongSell Decision = "STRONG_SELL"
)

func (d Decision) IsBuy() bool  { return d == Buy || d == StrongBuy }
func (d Decision) IsSell() bool { return d == Sell || d == StrongSell }

// Action maps the verdict to a signal action.
func (d Decision) Action() types.Action {
	switch {
	case d.IsBuy():
		return types.ActionBuy
	case d.IsSell():
		return types.ActionSell
	default:
		return types.ActionHold
	}
}

// Confidence grades how much evidence backs a verdict.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceVeryLow Confidence = "VERY_LOW"
)

// Result is the aggregate over every family.
type Result struct {
	BuyScore   float64    `json:"buy_score"`
	SellScore  float64    `json:"sell_score"`
	TotalScore float64    `json:"total_score"`
	Strength   float64    `json:"strength"`
	Decision   Decision   `json:"decision"`
	Confidence Confidence `json:"confidence"`
	Signals    []string   `json:"signals"`
}

// ToMap flattens the result for prompt context and trade log reasons.
func (r Result) ToMap() map[string]any {
	return map[string]any{
		"buy_score":   r.BuyScore,
		"sell_score":  r.SellScore,
		"total_score": r.TotalScore,
		"strength":    r.Strength,
		"decision":    string(r.Decision),
		"confidence":  string(r.Confidence),
		"signals":     r.Signals,
	}
}

func Trend(inds types.Indicators, price float64) (buy, sell float64, signals []string) {
	return Evaluate(FamilyTrend, inds, price)
}

func Momentum(inds types.Indicators, price float64) (buy, sell float64, signals []string) {
	return Evaluate(FamilyMomentum, inds, price)
}

func Volatility(inds types.Indicators, price float64) (buy, sell float64, signals []string) {
	return Evaluate(FamilyVolatility, inds, price)
}

func Volume(inds types.Indicators, price float64) (buy, sell float64, signals []string) {
	return Evaluate(FamilyVolume, inds, price)
}

// Evaluate runs one family's rules in table order. An unknown family scores
// nothing.
func Evaluate(family Family, inds types.Indicators, price float64) (buy, sell float64, signals []string) {
	signals = []string{}
	for _, r := range table[family] {
		if !present(inds, r.needs) {
			continue
		}
		for _, c := range r.clauses {
			if !present(inds, c.needs) || !holds(c.when, inds, price) {
				continue
			}
			switch c.side {
			case sideBuy:
				buy += c.weight
			case sideSell:
				sell += c.weight
			case sideLeader:
				switch {
				case buy > sell:
					buy += c.weight
				case sell > buy:
					sell += c.weight
				default:
					continue
				}
			}
			signals = append(signals, narrate(c, inds))
			break
		}
	}
	return buy, sell, signals
}

// Score evaluates every family and aggregates the result.
func Score(inds types.Indicators, price float64) Result {
	res := Result{Signals: []string{}}
	for _, f := range Families {
		b, s, sig := Evaluate(f, inds, price)
		res.BuyScore += b
		res.SellScore += s
		res.Signals = append(res.Signals, sig...)
	}
	res.TotalScore = res.BuyScore - res.SellScore
	res.Strength = math.Abs(res.TotalScore)
	res.Decision = decide(res.TotalScore)
	res.Confidence = grade(res.Strength, len(res.Signals))
	return res
}

func decide(total float64) Decision {
	switch {
	case total > 3:
		return StrongBuy
	case total > 1:
		return Buy
	case total < -3:
		return StrongSell
	case total < -1:
		return Sell
	default:
		return Hold
	}
}

func grade(strength float64, count int) Confidence {
	switch {
	case strength >= 5 && count >= 8:
		return ConfidenceHigh
	case strength >= 3 && count >= 5:
		return ConfidenceMedium
	case strength >= 1:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

func present(inds types.Indicators, keys []string) bool {
	for _, k := range keys {
		if _, ok := inds[k]; !ok {
			return false
		}
	}
	return true
}

func holds(conds []condition, inds types.Indicators, price float64) bool {
	for _, c := range conds {
		l, r := c.l.eval(inds, price), c.r.eval(inds, price)
		var ok bool
		switch c.op {
		case opGT:
			ok = l > r
		case opGE:
			ok = l >= r
		case opLT:
			ok = l < r
		case opLE:
			ok = l <= r
		}
		if !ok {
			return false
		}
	}
	return true
}

func (t term) eval(inds types.Indicators, price float64) float64 {
	switch t.key {
	case "":
		return t.val
	case keyPrice:
		return price * t.scale
	default:
		return inds[t.key] * t.scale
	}
}

func narrate(c clause, inds types.Indicators) string {
	if c.arg == "" {
		return strings.ReplaceAll(c.note, "%%", "%")
	}
	return fmt.Sprintf(c.note, inds[c.arg])
}
