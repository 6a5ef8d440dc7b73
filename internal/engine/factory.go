package engine

import (
	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/store"
	"llm-crypto-trader/internal/tradelog"
)

// New builds the trading engine. log may be nil to skip the trade log.
func New(cfg *store.Config, exch interfaces.Exchange, d interfaces.Decider, sim interfaces.ExecutionSimulator, log *tradelog.Log) interfaces.Engine {
	return newEngine(cfg, exch, d, sim, log)
}
