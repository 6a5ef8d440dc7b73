package scoring

import "llm-crypto-trader/internal/types"

// Family groups related indicator rules.
type Family string

const (
	FamilyTrend      Family = "trend"
	FamilyMomentum   Family = "momentum"
	FamilyVolatility Family = "volatility"
	FamilyVolume     Family = "volume"
)

// Families lists the families in evaluation order.
var Families = []Family{FamilyTrend, FamilyMomentum, FamilyVolatility, FamilyVolume}

// keyPrice addresses the current price inside a rule condition.
const keyPrice = "price"

type side int

const (
	sideNone side = iota
	sideBuy
	sideSell
	// sideLeader adds the weight to whichever accumulator is ahead at the
	// moment the rule is evaluated. On a tie the clause does not fire.
	sideLeader
)

type op int

const (
	opGT op = iota
	opGE
	opLT
	opLE
)

// term is either a scaled indicator/price lookup or a constant.
type term struct {
	key   string
	scale float64
	val   float64
}

func ind(key string) term { return term{key: key, scale: 1} }
func scaled(key string, f float64) term { return term{key: key, scale: f} }
func num(v float64) term { return term{val: v} }
func cmp(l term, o op, r term) condition { return condition{l: l, op: o, r: r} }

type condition struct {
	l  term
	op op
	r  term
}

// clause fires when every condition holds. note may contain one %.2f verb,
// filled with the value of arg. A clause whose own needs are absent is passed
// over and the chain moves on.
type clause struct {
	needs  []string
	when   []condition
	side   side
	weight float64
	note   string
	arg    string
}

// rule is an if/else-if chain: the first clause whose conditions hold wins.
// The rule is skipped entirely unless every key in needs is present.
// Clauses reading different keys list them per clause instead.
type rule struct {
	needs   []string
	clauses []clause
}

var table = map[Family][]rule{
	FamilyTrend: {
		{
			needs: []string{types.IndMA5, types.IndMA20},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndMA5), opGT, ind(types.IndMA20))}, side: sideBuy, weight: 1, note: "MA5 above MA20: short-term uptrend"},
				{when: []condition{cmp(ind(types.IndMA5), opLT, ind(types.IndMA20))}, side: sideSell, weight: 1, note: "MA5 below MA20: short-term downtrend"},
			},
		},
		{
			needs: []string{types.IndMA20, types.IndMA60},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndMA20), opGT, ind(types.IndMA60))}, side: sideBuy, weight: 1, note: "MA20 above MA60: medium-term uptrend"},
				{when: []condition{cmp(ind(types.IndMA20), opLT, ind(types.IndMA60))}, side: sideSell, weight: 1, note: "MA20 below MA60: medium-term downtrend"},
			},
		},
		{
			needs: []string{types.IndMA20},
			clauses: []clause{
				{when: []condition{cmp(ind(keyPrice), opGT, ind(types.IndMA20))}, side: sideBuy, weight: 0.5, note: "Price above MA20"},
				{when: []condition{cmp(ind(keyPrice), opLT, ind(types.IndMA20))}, side: sideSell, weight: 0.5, note: "Price below MA20"},
			},
		},
		{
			needs: []string{types.IndEMA12, types.IndEMA26},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndEMA12), opGT, ind(types.IndEMA26))}, side: sideBuy, weight: 1, note: "EMA12 above EMA26"},
				{when: []condition{cmp(ind(types.IndEMA12), opLT, ind(types.IndEMA26))}, side: sideSell, weight: 1, note: "EMA12 below EMA26"},
			},
		},
		{
			needs: []string{types.IndMACD, types.IndMACDSignal},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndMACD), opGT, ind(types.IndMACDSignal))}, side: sideBuy, weight: 1.5, note: "MACD above signal line: bullish"},
				{when: []condition{cmp(ind(types.IndMACD), opLT, ind(types.IndMACDSignal))}, side: sideSell, weight: 1.5, note: "MACD below signal line: bearish"},
			},
		},
		{
			needs: []string{types.IndMACDHistogram},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndMACDHistogram), opGT, num(0))}, side: sideBuy, weight: 0.5, note: "MACD histogram positive (%.2f)", arg: types.IndMACDHistogram},
				{when: []condition{cmp(ind(types.IndMACDHistogram), opLT, num(0))}, side: sideSell, weight: 0.5, note: "MACD histogram negative (%.2f)", arg: types.IndMACDHistogram},
			},
		},
		// Evaluated last so it sees the rest of the family's tally.
		{
			needs: []string{types.IndADX},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndADX), opGE, num(25))}, side: sideLeader, weight: 0.5, note: "Strong trend (ADX %.2f)", arg: types.IndADX},
			},
		},
	},
	FamilyMomentum: {
		{
			needs: []string{types.IndRSI},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndRSI), opLT, num(30))}, side: sideBuy, weight: 2, note: "RSI oversold (%.2f)", arg: types.IndRSI},
				{when: []condition{cmp(ind(types.IndRSI), opLT, num(40))}, side: sideBuy, weight: 1, note: "RSI approaching oversold (%.2f)", arg: types.IndRSI},
				{when: []condition{cmp(ind(types.IndRSI), opGT, num(70))}, side: sideSell, weight: 2, note: "RSI overbought (%.2f)", arg: types.IndRSI},
				{when: []condition{cmp(ind(types.IndRSI), opGT, num(60))}, side: sideSell, weight: 1, note: "RSI approaching overbought (%.2f)", arg: types.IndRSI},
				{side: sideNone, note: "RSI neutral (%.2f)", arg: types.IndRSI},
			},
		},
		{
			needs: []string{types.IndStochK, types.IndStochD},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndStochK), opLT, num(20)), cmp(ind(types.IndStochD), opLT, num(20))}, side: sideBuy, weight: 1.5, note: "Stochastic oversold (%%K %.2f)", arg: types.IndStochK},
				{when: []condition{cmp(ind(types.IndStochK), opGT, num(80)), cmp(ind(types.IndStochD), opGT, num(80))}, side: sideSell, weight: 1.5, note: "Stochastic overbought (%%K %.2f)", arg: types.IndStochK},
				{when: []condition{cmp(ind(types.IndStochK), opGT, ind(types.IndStochD))}, side: sideBuy, weight: 0.5, note: "Stochastic %%K above %%D"},
				{when: []condition{cmp(ind(types.IndStochK), opLT, ind(types.IndStochD))}, side: sideSell, weight: 0.5, note: "Stochastic %%K below %%D"},
			},
		},
		{
			needs: []string{types.IndMFI},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndMFI), opLT, num(20))}, side: sideBuy, weight: 1, note: "MFI oversold (%.2f)", arg: types.IndMFI},
				{when: []condition{cmp(ind(types.IndMFI), opGT, num(80))}, side: sideSell, weight: 1, note: "MFI overbought (%.2f)", arg: types.IndMFI},
			},
		},
		{
			needs: []string{types.IndWilliamsR},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndWilliamsR), opLT, num(-80))}, side: sideBuy, weight: 1, note: "Williams %%R oversold (%.2f)", arg: types.IndWilliamsR},
				{when: []condition{cmp(ind(types.IndWilliamsR), opGT, num(-20))}, side: sideSell, weight: 1, note: "Williams %%R overbought (%.2f)", arg: types.IndWilliamsR},
			},
		},
	},
	FamilyVolatility: {
		{
			clauses: []clause{
				{needs: []string{types.IndBBLower}, when: []condition{cmp(ind(keyPrice), opLE, ind(types.IndBBLower))}, side: sideBuy, weight: 2, note: "Price at or below lower Bollinger band"},
				{needs: []string{types.IndBBUpper}, when: []condition{cmp(ind(keyPrice), opGE, ind(types.IndBBUpper))}, side: sideSell, weight: 2, note: "Price at or above upper Bollinger band"},
				{needs: []string{types.IndBBMiddle}, when: []condition{cmp(ind(keyPrice), opLT, ind(types.IndBBMiddle))}, side: sideBuy, weight: 0.5, note: "Price below Bollinger middle band"},
				{needs: []string{types.IndBBMiddle}, when: []condition{cmp(ind(keyPrice), opGT, ind(types.IndBBMiddle))}, side: sideSell, weight: 0.5, note: "Price above Bollinger middle band"},
			},
		},
		{
			needs: []string{types.IndCCI},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndCCI), opLT, num(-100))}, side: sideBuy, weight: 1, note: "CCI oversold (%.2f)", arg: types.IndCCI},
				{when: []condition{cmp(ind(types.IndCCI), opGT, num(100))}, side: sideSell, weight: 1, note: "CCI overbought (%.2f)", arg: types.IndCCI},
			},
		},
		{
			needs: []string{types.IndATR},
			clauses: []clause{
				{when: []condition{cmp(ind(keyPrice), opGT, num(0)), cmp(ind(types.IndATR), opGT, scaled(keyPrice, 0.05))}, side: sideNone, note: "High volatility (ATR %.2f above 5%% of price)", arg: types.IndATR},
			},
		},
	},
	FamilyVolume: {
		{
			needs: []string{types.IndOBVChangePct},
			clauses: []clause{
				{when: []condition{cmp(ind(types.IndOBVChangePct), opGT, num(5))}, side: sideBuy, weight: 1, note: "OBV rising (%.2f%%): accumulation", arg: types.IndOBVChangePct},
				{when: []condition{cmp(ind(types.IndOBVChangePct), opLT, num(-5))}, side: sideSell, weight: 1, note: "OBV falling (%.2f%%): distribution", arg: types.IndOBVChangePct},
			},
		},
	},
}
