// Package sim is the simulated execution path: orders fill immediately at
// the price of the tick that generated the signal, directly against the
// portfolio ledger.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/williamsryan/OptiTrade/internal/execution"
	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/metrics"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// Router implements execution.Router against a ledger.Portfolio.
type Router struct {
	portfolio *ledger.Portfolio
	log       zerolog.Logger
}

// NewRouter wires the simulated router to its portfolio.
func NewRouter(portfolio *ledger.Portfolio, log zerolog.Logger) *Router {
	return &Router{portfolio: portfolio, log: log}
}

// Submit books the signal as an immediate fill at the signal's tick price.
// Ledger rejections settle the order as Rejected and surface the ledger
// error; the caller logs and moves on.
func (r *Router) Submit(ctx context.Context, s sig.TradeSignal) (*execution.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	order := execution.NewOrder(s, now)
	if err := order.Transition(execution.StateSubmitted, now); err != nil {
		return order, err
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()

	price := decimal.NewFromFloat(s.Price)
	trade, err := r.portfolio.ApplyFill(order, price)
	if err != nil {
		_ = order.Transition(execution.StateRejected, time.Now())
		return order, fmt.Errorf("simulated fill: %w", err)
	}
	if err := order.Transition(execution.StateFilled, time.Now()); err != nil {
		return order, err
	}
	metrics.FillsTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	r.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).
		Int64("qty", order.Qty).Str("px", price.String()).Str("trade_id", trade.ID).Msg("simulated fill")
	return order, nil
}

// Cancel always reports ErrOrderNotFound: simulated orders settle the moment
// they are submitted, so nothing is ever in flight.
func (r *Router) Cancel(ctx context.Context, symbol string) (*execution.Order, error) {
	return nil, fmt.Errorf("%w: no in-flight order for %s", execution.ErrOrderNotFound, symbol)
}
