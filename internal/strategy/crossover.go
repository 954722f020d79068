package strategy

import (
	"github.com/williamsryan/OptiTrade/internal/market"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// Crossover emits a Buy when price trades above the 50-period moving average
// and a Sell when it trades below the 200-period one. Ticks without the
// relevant average produce nothing; the strategy holds no state of its own.
type Crossover struct {
	qty int64
}

// NewCrossover builds the crossover strategy with the configured order size.
func NewCrossover(qty int64) *Crossover {
	if qty <= 0 {
		qty = 10
	}
	return &Crossover{qty: qty}
}

// Name returns the identifier for logging.
func (c *Crossover) Name() string { return "Crossover" }

// OnTick compares the tick price against its moving averages.
func (c *Crossover) OnTick(t market.Tick) *sig.TradeSignal {
	if t.Symbol == "" || t.Price <= 0 {
		return nil
	}
	if t.MA50 != nil && t.Price > *t.MA50 {
		return &sig.TradeSignal{
			Symbol:   t.Symbol,
			Qty:      c.qty,
			Side:     sig.Buy,
			Price:    t.Price,
			TickTime: t.Ts,
		}
	}
	if t.MA200 != nil && t.Price < *t.MA200 {
		return &sig.TradeSignal{
			Symbol:   t.Symbol,
			Qty:      c.qty,
			Side:     sig.Sell,
			Price:    t.Price,
			TickTime: t.Ts,
		}
	}
	return nil
}
