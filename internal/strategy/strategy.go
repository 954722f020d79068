// Package strategy contains trading signal generation logic wired into ticks.
package strategy

import (
	"strings"

	"github.com/williamsryan/OptiTrade/internal/market"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// Strategy turns ticks into trade intents. Implementations must be
// deterministic and free of I/O: replaying the same tick sequence has to
// produce the same signal sequence.
type Strategy interface {
	OnTick(t market.Tick) *sig.TradeSignal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	Qty int64
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "crossover", "ma_crossover":
		return NewCrossover(params.Qty)
	case "noop", "none":
		return Noop{}
	default:
		return NewCrossover(params.Qty)
	}
}
