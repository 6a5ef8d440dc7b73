package types

import (
	"time"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/money"
)

// Candle is one OHLCV bar. Time is the bar's opening time as reported by the
// data source, never the wall clock.
type Candle struct {
	Time   time.Time
	Open   money.Money
	High   money.Money
	Low    money.Money
	Close  money.Money
	Volume decimal.Decimal
}

// NewCandle builds a candle whose prices share one quote currency.
func NewCandle(t time.Time, open, high, low, close, volume decimal.Decimal, currency string) Candle {
	return Candle{
		Time:   t,
		Open:   money.New(open, currency),
		High:   money.New(high, currency),
		Low:    money.New(low, currency),
		Close:  money.New(close, currency),
		Volume: volume,
	}
}

func (c Candle) Currency() string { return c.Close.Currency() }

// Range is high - low.
func (c Candle) Range() money.Money {
	return c.Close.WithAmount(c.High.Amount().Sub(c.Low.Amount()))
}

// Body is |close - open|.
func (c Candle) Body() money.Money {
	return c.Close.WithAmount(c.Close.Amount().Sub(c.Open.Amount()).Abs())
}

func (c Candle) IsBullish() bool { return c.Close.Amount().GreaterThan(c.Open.Amount()) }
func (c Candle) IsBearish() bool { return c.Close.Amount().LessThan(c.Open.Amount()) }
func (c Candle) IsDoji() bool { return c.Close.Amount().Equal(c.Open.Amount()) }

// Side of a market order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ExitPriority names which pending level fires first within a candle.
type ExitPriority int

const (
	ExitNone ExitPriority = iota
	ExitStop
	ExitTarget
)

func (p ExitPriority) String() string {
	switch p {
	case ExitStop:
		return "STOP"
	case ExitTarget:
		return "TARGET"
	default:
		return "NONE"
	}
}

// Decision is the verdict returned by a Decider.
type Decision struct {
	Action     string          `json:"action"`
	Reason     string          `json:"reason"`
	Confidence float64         `json:"confidence"`
	Qty        decimal.Decimal `json:"qty,omitempty"`
}

type StepResult struct {
	Symbol   string      `json:"symbol"`
	Decision Decision    `json:"decision"`
	Price    money.Money `json:"price"`
	Time     time.Time   `json:"time"`
	Orders   []OrderResp `json:"orders"`
	Reason   string      `json:"reason"`
}

type OrderReq struct {
	Symbol string
	Side   Side
	Qty    decimal.Decimal
	Tag    string
	// Exit marks a protective sell resting at Level. ExitNone is a plain
	// market order.
	Exit  ExitPriority
	Level money.Money
}

type OrderResp struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Price   money.Money     `json:"price"`
	Qty     decimal.Decimal `json:"qty"`
}
