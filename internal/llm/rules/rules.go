// Package rules is a Decider that needs no model: it acts on the signal
// scorer's verdict directly.
package rules

import (
	"context"
	"fmt"
	"strings"

	"llm-crypto-trader/internal/scoring"
	"llm-crypto-trader/internal/types"
)

// maxReasons caps how many narratives end up in Decision.Reason.
const maxReasons = 3

var confidence = map[scoring.Confidence]float64{
	scoring.ConfidenceHigh:    0.9,
	scoring.ConfidenceMedium:  0.7,
	scoring.ConfidenceLow:     0.5,
	scoring.ConfidenceVeryLow: 0.2,
}

// Decider maps STRONG_BUY/BUY to BUY, SELL/STRONG_SELL to SELL and anything
// else to HOLD. Verdicts graded below MinConfidence are downgraded to HOLD.
type Decider struct {
	MinConfidence scoring.Confidence
}

func New() *Decider {
	return &Decider{MinConfidence: scoring.ConfidenceVeryLow}
}

func (d *Decider) Decide(_ context.Context, _ string, latest types.Candle, inds types.Indicators, _ map[string]any) (types.Decision, error) {
	res := scoring.Score(inds, latest.Close.Float64())

	action := res.Decision.Action()
	conf := confidence[res.Confidence]
	if conf < confidence[d.minConfidence()] {
		action = types.ActionHold
	}

	signals := res.Signals
	if len(signals) > maxReasons {
		signals = signals[:maxReasons]
	}
	reason := fmt.Sprintf("%s (score %.1f)", res.Decision, res.TotalScore)
	if len(signals) > 0 {
		reason += ": " + strings.Join(signals, "; ")
	}

	return types.Decision{
		Action:     string(action),
		Reason:     reason,
		Confidence: conf,
	}, nil
}

func (d *Decider) minConfidence() scoring.Confidence {
	if d.MinConfidence == "" {
		return scoring.ConfidenceVeryLow
	}
	return d.MinConfidence
}
