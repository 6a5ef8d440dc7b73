package interfaces

import (
	"context"

	"llm-crypto-trader/internal/types"
)

// Engine runs one decision cycle for a symbol.
type Engine interface {
	Step(ctx context.Context, symbol string) (*types.StepResult, error)
}
