package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}
func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if len(closes) < n+1 {
		return math.NaN()
	}
	trs := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		tr := math.Max(tr1, math.Max(tr2, tr3))
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, v := range trs {
		sum += v
	}
	return sum / float64(n)
}

func EMASeries(vals []float64, n int) []float64 {
	if len(vals) < n || n <= 0 {
		return nil
	}
	k := 2.0 / float64(n+1)
	out := make([]float64, 0, len(vals)-n+1)
	prev := SMA(vals[:n], n)
	out = append(out, prev)
	for _, v := range vals[n:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

func EMA(vals []float64, n int) float64 {
	s := EMASeries(vals, n)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// MACD returns the last MACD line, signal line and histogram values.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist float64) {
	nan := math.NaN()
	if fast <= 0 || slow <= fast || signal <= 0 {
		return nan, nan, nan
	}
	fastS, slowS := EMASeries(closes, fast), EMASeries(closes, slow)
	if len(slowS) < signal {
		return nan, nan, nan
	}
	// align the fast series to the slow one's tail
	fastS = fastS[len(fastS)-len(slowS):]
	lines := make([]float64, len(slowS))
	for i := range slowS {
		lines[i] = fastS[i] - slowS[i]
	}
	line = lines[len(lines)-1]
	sig = EMA(lines, signal)
	return line, sig, line - sig
}

func highest(vals []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vals {
		m = math.Max(m, v)
	}
	return m
}

func lowest(vals []float64) float64 {
	m := math.Inf(1)
	for _, v := range vals {
		m = math.Min(m, v)
	}
	return m
}

func sameLen(a, b, c []float64) bool {
	return len(a) == len(b) && len(b) == len(c)
}

// Stochastic returns %K over period and %D as the smoothN average of %K.
func Stochastic(highs, lows, closes []float64, period, smoothN int) (k, d float64) {
	nan := math.NaN()
	if !sameLen(highs, lows, closes) || period <= 0 || smoothN <= 0 || len(closes) < period+smoothN-1 {
		return nan, nan
	}
	ks := make([]float64, 0, smoothN)
	for end := len(closes) - smoothN + 1; end <= len(closes); end++ {
		hh, ll := highest(highs[end-period:end]), lowest(lows[end-period:end])
		if hh == ll {
			ks = append(ks, 50)
			continue
		}
		ks = append(ks, (closes[end-1]-ll)/(hh-ll)*100)
	}
	return ks[len(ks)-1], SMA(ks, smoothN)
}

func WilliamsR(highs, lows, closes []float64, period int) float64 {
	if !sameLen(highs, lows, closes) || period <= 0 || len(closes) < period {
		return math.NaN()
	}
	n := len(closes)
	hh, ll := highest(highs[n-period:]), lowest(lows[n-period:])
	if hh == ll {
		return -50
	}
	return (hh - closes[n-1]) / (hh - ll) * -100
}

func typical(highs, lows, closes []float64) []float64 {
	tp := make([]float64, len(closes))
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	return tp
}

func CCI(highs, lows, closes []float64, period int) float64 {
	if !sameLen(highs, lows, closes) || period <= 0 || len(closes) < period {
		return math.NaN()
	}
	tp := typical(highs, lows, closes)
	mean := SMA(tp, period)
	md := 0.0
	for _, v := range tp[len(tp)-period:] {
		md += math.Abs(v - mean)
	}
	md /= float64(period)
	if md == 0 {
		return 0
	}
	return (tp[len(tp)-1] - mean) / (0.015 * md)
}

func MFI(highs, lows, closes, volumes []float64, period int) float64 {
	if !sameLen(highs, lows, closes) || len(volumes) != len(closes) || period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	tp := typical(highs, lows, closes)
	pos, neg := 0.0, 0.0
	for i := len(tp) - period; i < len(tp); i++ {
		flow := tp[i] * volumes[i]
		switch {
		case tp[i] > tp[i-1]:
			pos += flow
		case tp[i] < tp[i-1]:
			neg += flow
		}
	}
	if neg == 0 {
		if pos == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+pos/neg)
}

// ADX is Wilder's average directional index.
func ADX(highs, lows, closes []float64, period int) float64 {
	if !sameLen(highs, lows, closes) || period <= 0 || len(closes) < 2*period+1 {
		return math.NaN()
	}
	n := len(closes)
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
		tr[i] = math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}

	p := float64(period)
	var trS, plusS, minusS float64
	for i := 1; i <= period; i++ {
		trS += tr[i]
		plusS += plusDM[i]
		minusS += minusDM[i]
	}

	dx := func() float64 {
		if trS == 0 {
			return 0
		}
		pdi, mdi := 100*plusS/trS, 100*minusS/trS
		if pdi+mdi == 0 {
			return 0
		}
		return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
	}

	dxs := []float64{dx()}
	for i := period + 1; i < n; i++ {
		trS = trS - trS/p + tr[i]
		plusS = plusS - plusS/p + plusDM[i]
		minusS = minusS - minusS/p + minusDM[i]
		dxs = append(dxs, dx())
	}

	adx := SMA(dxs[:period], period)
	for _, v := range dxs[period:] {
		adx = (adx*(p-1) + v) / p
	}
	return adx
}

// OBVChangePct is the percent change of on-balance volume over lookback bars.
func OBVChangePct(closes, volumes []float64, lookback int) float64 {
	if len(closes) != len(volumes) || lookback <= 0 || len(closes) < lookback+2 {
		return math.NaN()
	}
	obv := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv[i] = obv[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			obv[i] = obv[i-1] - volumes[i]
		default:
			obv[i] = obv[i-1]
		}
	}
	now, then := obv[len(obv)-1], obv[len(obv)-1-lookback]
	if then == 0 {
		return math.NaN()
	}
	return (now - then) / math.Abs(then) * 100
}
