package paper

import (
	"fmt"
	"sync"

	"llm-crypto-trader/internal/types"
)

// candleCache holds the replay queue and the revealed window for each symbol.
type candleCache struct {
	buffers map[string]*candleBuffer
	mu      sync.RWMutex
}

// candleBuffer keeps the most recent revealed candles, capped at maxSize.
type candleBuffer struct {
	pending []types.Candle
	candles []types.Candle
	maxSize int
}

func newCandleCache() *candleCache {
	return &candleCache{
		buffers: make(map[string]*candleBuffer),
	}
}

// load replaces the symbol's feed and reveals the first warmup candles.
func (cc *candleCache) load(symbol string, feed []types.Candle, warmup, maxSize int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if warmup > len(feed) {
		warmup = len(feed)
	}
	buf := &candleBuffer{
		pending: feed[warmup:],
		candles: make([]types.Candle, 0, maxSize),
		maxSize: maxSize,
	}
	for _, c := range feed[:warmup] {
		buf.push(c)
	}
	cc.buffers[symbol] = buf
}

func (b *candleBuffer) push(c types.Candle) {
	b.candles = append(b.candles, c)
	if len(b.candles) > b.maxSize {
		b.candles = b.candles[1:]
	}
}

// advance reveals the next pending candle. It returns false once the feed is
// exhausted.
func (cc *candleCache) advance(symbol string) (bool, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	buf, ok := cc.buffers[symbol]
	if !ok {
		return false, fmt.Errorf("no candle data for symbol %s", symbol)
	}
	if len(buf.pending) == 0 {
		return false, nil
	}
	buf.push(buf.pending[0])
	buf.pending = buf.pending[1:]
	return true, nil
}

// getRecent retrieves the last n revealed candles for a symbol.
func (cc *candleCache) getRecent(symbol string, n int) ([]types.Candle, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	buf, ok := cc.buffers[symbol]
	if !ok {
		return nil, fmt.Errorf("no candle data for symbol %s", symbol)
	}
	if len(buf.candles) == 0 {
		return nil, fmt.Errorf("no candles available for %s", symbol)
	}

	out := buf.candles
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return append([]types.Candle(nil), out...), nil
}

func (cc *candleCache) latest(symbol string) (types.Candle, error) {
	cs, err := cc.getRecent(symbol, 1)
	if err != nil {
		return types.Candle{}, err
	}
	return cs[0], nil
}

func (cc *candleCache) clear() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.buffers = make(map[string]*candleBuffer)
}
