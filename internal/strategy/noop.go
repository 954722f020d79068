package strategy

import (
	"github.com/williamsryan/OptiTrade/internal/market"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// Noop never trades. Useful for soak-testing the data path.
type Noop struct{}

func (Noop) Name() string { return "Noop" }

func (Noop) OnTick(market.Tick) *sig.TradeSignal { return nil }
