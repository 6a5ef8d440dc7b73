package backtest

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"llm-crypto-trader/internal/execution"
	"llm-crypto-trader/internal/interfaces"
	"llm-crypto-trader/internal/metrics"
	"llm-crypto-trader/internal/types"
)

// Comparison is the same candle series replayed under both execution policies.
type Comparison struct {
	CloseOnly *Result
	Intrabar  *Result
	// PnLDelta is intrabar PnL minus close-only PnL. Negative means the
	// close-only model was too optimistic.
	PnLDelta decimal.Decimal
	// HiddenStops is the number of stop touches the close-only run never saw.
	HiddenStops int
}

// Compare runs both policies concurrently over the same candles. The
// simulators are stateless, so only the decider must be safe for concurrent use.
func Compare(ctx context.Context, cfg Config, candles []types.Candle, decider interfaces.Decider, m *metrics.Metrics) (*Comparison, error) {
	sims := []interfaces.ExecutionSimulator{execution.CloseOnly{}, execution.Intrabar{}}
	results := make([]*Result, len(sims))
	errs := make([]error, len(sims))

	var wg sync.WaitGroup
	for i, sim := range sims {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = NewRunner(cfg, sim, decider, m).Run(ctx, candles)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	closeOnly, intrabar := results[0], results[1]
	return &Comparison{
		CloseOnly:   closeOnly,
		Intrabar:    intrabar,
		PnLDelta:    intrabar.PnL.Sub(closeOnly.PnL),
		HiddenStops: closeOnly.HiddenStops,
	}, nil
}
