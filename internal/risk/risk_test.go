package risk

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm-crypto-trader/internal/money"
)

func usdt(s string) money.Money { return money.MustParse(s, "USDT") }

func TestPctLevels(t *testing.T) {
	s := NewStops("pct", 2, 0, 2, 0)

	stop, target, ok := s.Levels(usdt("100"), math.NaN())
	require.True(t, ok)
	assert.True(t, stop.Equal(usdt("98")))
	assert.True(t, target.Equal(usdt("104")))
}

func TestATRLevelsWithTick(t *testing.T) {
	s := NewStops(StopModeATR, 0, 1.5, 3, 0.5)

	stop, target, ok := s.Levels(usdt("100"), 2.1)
	require.True(t, ok)
	// 100 - 3.15 = 96.85 rounds to 97
	assert.True(t, stop.Equal(usdt("97")))
	assert.True(t, target.Equal(usdt("109")))
	assert.Equal(t, "USDT", target.Currency())
}

func TestATRWithoutATRHasNoStop(t *testing.T) {
	s := NewStops(StopModeATR, 0, 2, 2, 0)
	_, ok := s.StopPrice(usdt("100"), math.NaN())
	assert.False(t, ok)
	_, ok = s.StopPrice(usdt("100"), 0)
	assert.False(t, ok)

	// stop distance larger than the price
	_, ok = s.StopPrice(usdt("1"), 5)
	assert.False(t, ok)
}

func TestTrailOnlyMovesUp(t *testing.T) {
	s := NewStops(StopModePct, 5, 0, 2, 0)

	next, moved := s.Trail(usdt("120"), 0, usdt("95"))
	assert.True(t, moved)
	assert.True(t, next.Equal(usdt("114")))

	next, moved = s.Trail(usdt("90"), 0, usdt("95"))
	assert.False(t, moved)
	assert.True(t, next.Equal(usdt("95")))
}

func TestGuard(t *testing.T) {
	g := NewGuard(decimal.NewFromInt(1000), 10)

	exceeded, pct := g.Exceeds(usdt("50"), decimal.NewFromInt(1))
	assert.False(t, exceeded)
	assert.InDelta(t, 5, pct, 1e-9)

	exceeded, pct = g.Exceeds(usdt("50"), decimal.NewFromInt(3))
	assert.True(t, exceeded)
	assert.InDelta(t, 15, pct, 1e-9)

	off := NewGuard(decimal.NewFromInt(1000), 0)
	exceeded, _ = off.Exceeds(usdt("5000"), decimal.NewFromInt(1))
	assert.False(t, exceeded)
}
