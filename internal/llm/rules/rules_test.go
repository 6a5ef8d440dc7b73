package rules

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/scoring"
	"llm-crypto-trader/internal/types"
)

func latest(close string) types.Candle {
	d := decimal.RequireFromString(close)
	return types.NewCandle(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d, d, d, d, decimal.NewFromInt(1), "USDT")
}

func TestDecideBuyOnOversold(t *testing.T) {
	dec, err := New().Decide(context.Background(), "BTCUSDT", latest("100"), types.Indicators{types.IndRSI: 25}, nil)
	require.NoError(t, err)

	assert.Equal(t, "BUY", dec.Action)
	assert.Equal(t, 0.5, dec.Confidence)
	assert.Contains(t, dec.Reason, "BUY (score 2.0)")
	assert.Contains(t, dec.Reason, "RSI oversold")
}

func TestDecideSell(t *testing.T) {
	inds := types.Indicators{types.IndRSI: 80, types.IndCCI: 150}
	dec, err := New().Decide(context.Background(), "ETHUSDT", latest("100"), inds, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELL", dec.Action)
}

func TestDecideHoldWithoutIndicators(t *testing.T) {
	dec, err := New().Decide(context.Background(), "BTCUSDT", latest("100"), types.Indicators{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "HOLD", dec.Action)
	assert.Equal(t, 0.2, dec.Confidence)
}

func TestDecideMinConfidence(t *testing.T) {
	d := &Decider{MinConfidence: scoring.ConfidenceMedium}
	dec, err := d.Decide(context.Background(), "BTCUSDT", latest("100"), types.Indicators{types.IndRSI: 25}, nil)
	require.NoError(t, err)
	assert.Equal(t, "HOLD", dec.Action, "LOW confidence buy is filtered")
}

func TestDecideCapsReasons(t *testing.T) {
	inds := types.Indicators{
		types.IndRSI: 25, types.IndMFI: 10, types.IndWilliamsR: -90,
		types.IndCCI: -150, types.IndOBVChangePct: 10,
	}
	dec, err := New().Decide(context.Background(), "BTCUSDT", latest("100"), inds, nil)
	require.NoError(t, err)
	assert.Equal(t, "BUY", dec.Action)
	assert.NotContains(t, dec.Reason, "OBV")
}
