package types

// Indicator keys understood by the scorer. The vocabulary is fixed.
const (
	IndMA5           = "ma5"
	IndMA20          = "ma20"
	IndMA60          = "ma60"
	IndEMA12         = "ema12"
	IndEMA26         = "ema26"
	IndMACD          = "macd"
	IndMACDSignal    = "macd_signal"
	IndMACDHistogram = "macd_histogram"
	IndADX           = "adx"
	IndRSI           = "rsi"
	IndStochK        = "stoch_k"
	IndStochD        = "stoch_d"
	IndMFI           = "mfi"
	IndWilliamsR     = "williams_r"
	IndBBUpper       = "bb_upper"
	IndBBMiddle      = "bb_middle"
	IndBBLower       = "bb_lower"
	IndCCI           = "cci"
	IndATR           = "atr"
	IndOBVChangePct  = "obv_change_pct"
)

// IndicatorKeys lists the full vocabulary in a stable order.
var IndicatorKeys = []string{
	IndMA5, IndMA20, IndMA60, IndEMA12, IndEMA26,
	IndMACD, IndMACDSignal, IndMACDHistogram, IndADX,
	IndRSI, IndStochK, IndStochD, IndMFI, IndWilliamsR,
	IndBBUpper, IndBBMiddle, IndBBLower, IndCCI, IndATR, IndOBVChangePct,
}

// Indicators maps indicator keys to values. A missing key means the value was
// not observed; it is never the same as a neutral reading.
type Indicators map[string]float64

// Get returns the value and whether it is present.
func (in Indicators) Get(key string) (float64, bool) {
	v, ok := in[key]
	return v, ok
}
