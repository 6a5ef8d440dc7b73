package ta

import (
	"math"

	"llm-crypto-trader/internal/types"
)

// Periods configures the lookbacks used by Snapshot. The moving averages are
// fixed at 5/20/60 and EMAs at 12/26 because the indicator keys name them.
type Periods struct {
	RSI         int
	ATR         int
	ADX         int
	BBWindow    int
	BBStdDev    float64
	MACDSignal  int
	StochK      int
	StochD      int
	MFI         int
	WilliamsR   int
	CCI         int
	OBVLookback int
}

func DefaultPeriods() Periods {
	return Periods{
		RSI:         14,
		ATR:         14,
		ADX:         14,
		BBWindow:    20,
		BBStdDev:    2,
		MACDSignal:  9,
		StochK:      14,
		StochD:      3,
		MFI:         14,
		WilliamsR:   14,
		CCI:         20,
		OBVLookback: 10,
	}
}

// withDefaults fills zero fields from DefaultPeriods.
func (p Periods) withDefaults() Periods {
	d := DefaultPeriods()
	pick := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}
	p.RSI = pick(p.RSI, d.RSI)
	p.ATR = pick(p.ATR, d.ATR)
	p.ADX = pick(p.ADX, d.ADX)
	p.BBWindow = pick(p.BBWindow, d.BBWindow)
	p.MACDSignal = pick(p.MACDSignal, d.MACDSignal)
	p.StochK = pick(p.StochK, d.StochK)
	p.StochD = pick(p.StochD, d.StochD)
	p.MFI = pick(p.MFI, d.MFI)
	p.WilliamsR = pick(p.WilliamsR, d.WilliamsR)
	p.CCI = pick(p.CCI, d.CCI)
	p.OBVLookback = pick(p.OBVLookback, d.OBVLookback)
	if p.BBStdDev <= 0 {
		p.BBStdDev = d.BBStdDev
	}
	return p
}

// Series splits candles into float columns.
func Series(candles []types.Candle) (opens, highs, lows, closes, volumes []float64) {
	n := len(candles)
	opens, highs, lows = make([]float64, n), make([]float64, n), make([]float64, n)
	closes, volumes = make([]float64, n), make([]float64, n)
	for i, c := range candles {
		opens[i] = c.Open.Float64()
		highs[i] = c.High.Float64()
		lows[i] = c.Low.Float64()
		closes[i] = c.Close.Float64()
		volumes[i] = c.Volume.InexactFloat64()
	}
	return
}

// Snapshot computes the indicator map for the last candle of the window.
// Indicators without enough history are left out of the map.
func Snapshot(candles []types.Candle, p Periods) types.Indicators {
	p = p.withDefaults()
	_, highs, lows, closes, volumes := Series(candles)
	out := types.Indicators{}
	put := func(key string, v float64) {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[key] = v
		}
	}

	put(types.IndMA5, SMA(closes, 5))
	put(types.IndMA20, SMA(closes, 20))
	put(types.IndMA60, SMA(closes, 60))
	put(types.IndEMA12, EMA(closes, 12))
	put(types.IndEMA26, EMA(closes, 26))

	line, sig, hist := MACD(closes, 12, 26, p.MACDSignal)
	put(types.IndMACD, line)
	put(types.IndMACDSignal, sig)
	put(types.IndMACDHistogram, hist)

	put(types.IndADX, ADX(highs, lows, closes, p.ADX))
	put(types.IndRSI, RSI(closes, p.RSI))

	k, d := Stochastic(highs, lows, closes, p.StochK, p.StochD)
	put(types.IndStochK, k)
	put(types.IndStochD, d)

	put(types.IndMFI, MFI(highs, lows, closes, volumes, p.MFI))
	put(types.IndWilliamsR, WilliamsR(highs, lows, closes, p.WilliamsR))

	mid, up, low := Bollinger(closes, p.BBWindow, p.BBStdDev)
	put(types.IndBBUpper, up)
	put(types.IndBBMiddle, mid)
	put(types.IndBBLower, low)

	put(types.IndCCI, CCI(highs, lows, closes, p.CCI))
	put(types.IndATR, ATR(highs, lows, closes, p.ATR))
	put(types.IndOBVChangePct, OBVChangePct(closes, volumes, p.OBVLookback))
	return out
}
