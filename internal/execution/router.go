package execution

import (
	"context"

	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// Router is the single interface both execution paths implement: live
// placement through a Backend, or simulated fills against the portfolio.
type Router interface {
	// Submit turns an accepted Buy/Sell signal into an order. The returned
	// order carries its settled or in-flight state; a non-nil error explains
	// a rejection. Retrying is the caller's decision.
	Submit(ctx context.Context, s sig.TradeSignal) (*Order, error)
	// Cancel pulls the oldest in-flight order for the symbol. When there is
	// none it returns ErrOrderNotFound, which callers treat as a no-op.
	Cancel(ctx context.Context, symbol string) (*Order, error)
}
