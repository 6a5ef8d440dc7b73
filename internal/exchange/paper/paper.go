// Package paper is an exchange that replays recorded candles and fills market
// orders through an execution simulator. No order leaves the process.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/marketdata"
	"llm-crypto-trader/internal/money"
	"llm-crypto-trader/internal/types"
)

// ErrExhausted is returned by RecentCandles once a symbol's feed has no more
// candles to reveal.
var ErrExhausted = errors.New("paper: candle feed exhausted")

const defaultMaxCandles = 500

type Params struct {
	Currency string
	// CSV maps a symbol to its candle file. Feeds takes precedence.
	CSV   map[string]string
	Feeds map[string][]types.Candle
	// Warmup candles are revealed at Start so the first step has history.
	Warmup     int
	MaxCandles int
	Slippage   decimal.Decimal
	Sim        interfaces.ExecutionSimulator
}

// Exchange replays one candle per RecentCandles call for each symbol.
type Exchange struct {
	p     Params
	cache *candleCache

	mu     sync.Mutex
	orders []types.OrderResp
}

var _ interfaces.Exchange = (*Exchange)(nil)

func New(p Params) *Exchange {
	if p.MaxCandles <= 0 {
		p.MaxCandles = defaultMaxCandles
	}
	return &Exchange{p: p, cache: newCandleCache()}
}

// Start loads the feed of every symbol and reveals its warmup window.
func (x *Exchange) Start(ctx context.Context, symbols []string) error {
	if x.p.Sim == nil {
		return errors.New("paper: execution simulator is required")
	}
	for _, sym := range symbols {
		feed, err := x.feed(sym)
		if err != nil {
			return err
		}
		if len(feed) == 0 {
			return fmt.Errorf("paper: no candles for %s", sym)
		}
		x.cache.load(sym, feed, x.p.Warmup, x.p.MaxCandles)
	}
	return nil
}

func (x *Exchange) feed(symbol string) ([]types.Candle, error) {
	if cs, ok := x.p.Feeds[symbol]; ok {
		return cs, nil
	}
	path, ok := x.p.CSV[symbol]
	if !ok {
		return nil, fmt.Errorf("paper: no feed configured for %s", symbol)
	}
	cs, err := marketdata.LoadCSV(path, x.p.Currency)
	if err != nil {
		return nil, fmt.Errorf("paper: load %s: %w", symbol, err)
	}
	return cs, nil
}

func (x *Exchange) Stop(ctx context.Context) {
	x.cache.clear()
}

func (x *Exchange) LastPrice(ctx context.Context, symbol string) (money.Money, error) {
	c, err := x.cache.latest(symbol)
	if err != nil {
		return money.Money{}, err
	}
	return c.Close, nil
}

// RecentCandles reveals the next candle and returns up to n of the most
// recent ones. After the feed ends it returns ErrExhausted.
func (x *Exchange) RecentCandles(ctx context.Context, symbol string, n int) ([]types.Candle, error) {
	more, err := x.cache.advance(symbol)
	if err != nil {
		return nil, err
	}
	if !more {
		return nil, ErrExhausted
	}
	return x.cache.getRecent(symbol, n)
}

// PlaceOrder fills against the latest revealed candle, the one the caller
// just decided on. Market orders fill at its close adjusted by slippage,
// never at the earlier open. Exit orders fill where the simulator says the
// stop or target traded inside that candle, and are rejected when the
// candle never reached the level.
func (x *Exchange) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if !req.Qty.IsPositive() {
		return types.OrderResp{}, fmt.Errorf("paper: quantity must be positive, got %s", req.Qty)
	}
	c, err := x.cache.latest(req.Symbol)
	if err != nil {
		return types.OrderResp{}, err
	}

	var res types.ExecutionResult
	if req.Exit == types.ExitNone {
		res = x.p.Sim.ExecuteMarketOrder(req.Side, req.Qty, c.Close, atClose(c), x.p.Slippage)
	} else {
		res = x.exitFill(req, c)
	}

	f, ok := types.AsFilled(res)
	if !ok {
		reason := "unfilled"
		if u, isU := res.(types.Unfilled); isU {
			reason = u.Reason
		}
		return types.OrderResp{Status: "REJECTED", Message: reason}, fmt.Errorf("paper: order not filled: %s", reason)
	}

	resp := types.OrderResp{
		OrderID: uuid.NewString(),
		Status:  "FILLED",
		Message: fmt.Sprintf("%s %s (slippage %s)", req.Tag, x.p.Sim.Name(), f.Slippage),
		Price:   f.Price,
		Qty:     f.Size,
	}

	x.mu.Lock()
	x.orders = append(x.orders, resp)
	x.mu.Unlock()
	return resp, nil
}

// exitFill prices a long position's protective sell. Slippage is the
// distance between the level and the fill, nonzero only on a gap.
func (x *Exchange) exitFill(req types.OrderReq, c types.Candle) types.ExecutionResult {
	if req.Side != types.SideSell {
		return types.Unfilled{Reason: "exit orders must sell"}
	}
	if req.Level.Currency() != c.Close.Currency() || !req.Level.IsPositive() {
		return types.Unfilled{Reason: "exit level missing or in another currency"}
	}

	sim := x.p.Sim
	var price money.Money
	switch req.Exit {
	case types.ExitStop:
		if !sim.CheckStopTriggered(req.Level, c) {
			return types.Unfilled{Reason: "stop not reached"}
		}
		price = sim.StopExecutionPrice(req.Level, c)
	case types.ExitTarget:
		if !sim.CheckTakeProfitTriggered(req.Level, c) {
			return types.Unfilled{Reason: "target not reached"}
		}
		price = sim.TakeProfitExecutionPrice(req.Level, c)
	default:
		return types.Unfilled{Reason: "unknown exit kind " + req.Exit.String()}
	}

	gap := price.WithAmount(price.Amount().Sub(req.Level.Amount()).Abs())
	return types.Filled{Price: price, Size: req.Qty, Slippage: gap}
}

// atClose collapses c onto its close so a market order placed after the
// candle closed cannot fill at a price seen before the decision.
func atClose(c types.Candle) types.Candle {
	px := c.Close.Amount()
	return types.NewCandle(c.Time, px, px, px, px, c.Volume, c.Close.Currency())
}

// Orders returns a copy of every fill so far.
func (x *Exchange) Orders() []types.OrderResp {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]types.OrderResp(nil), x.orders...)
}
