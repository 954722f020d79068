// Package pipeline wires ticks through strategy, risk, and execution.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/williamsryan/OptiTrade/internal/bus"
	"github.com/williamsryan/OptiTrade/internal/execution"
	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/metrics"
	"github.com/williamsryan/OptiTrade/internal/risk"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
	"github.com/williamsryan/OptiTrade/internal/strategy"
)

// Engine drives one tick at a time through the strategy, the risk gate, and
// the order router. It holds no tick state of its own; per-symbol state lives
// in the enricher and the strategy.
type Engine struct {
	strat    strategy.Strategy
	gate     risk.Gate
	router   execution.Router
	enricher *market.Enricher
	log      zerolog.Logger
}

// NewEngine assembles a pipeline. The enricher may be nil when ticks already
// carry their moving averages, as replayed historical rows do.
func NewEngine(strat strategy.Strategy, gate risk.Gate, router execution.Router, enricher *market.Enricher, log zerolog.Logger) *Engine {
	return &Engine{strat: strat, gate: gate, router: router, enricher: enricher, log: log}
}

// Step processes a single tick. Business rejections (risk rules, ledger
// refusals, cancels with nothing in flight) are logged and counted but do not
// return an error; only infrastructure failures propagate.
func (e *Engine) Step(ctx context.Context, tick market.Tick) error {
	if e.enricher != nil {
		tick = e.enricher.Apply(tick)
	}

	s := e.strat.OnTick(tick)
	if s == nil {
		return nil
	}
	metrics.SignalsTotal.WithLabelValues(s.Symbol, string(s.Side)).Inc()

	// Cancels route straight to the venue; the risk gate only guards
	// orders that add exposure.
	if s.Side == sig.Cancel {
		order, err := e.router.Cancel(ctx, s.Symbol)
		if err != nil {
			if errors.Is(err, execution.ErrOrderNotFound) {
				e.log.Debug().Str("symbol", s.Symbol).Msg("cancel with no in-flight order")
				return nil
			}
			return err
		}
		e.log.Info().Str("symbol", s.Symbol).Str("order_id", order.ID).Msg("order canceled")
		return nil
	}

	if v := e.gate.Validate(*s); v != nil {
		metrics.SignalRejectsTotal.WithLabelValues(v.Rule).Inc()
		e.log.Warn().
			Str("symbol", s.Symbol).
			Str("side", string(s.Side)).
			Int64("qty", s.Qty).
			Str("rule", v.Rule).
			Msg("signal rejected by risk gate")
		return nil
	}

	order, err := e.router.Submit(ctx, *s)
	if err != nil {
		if reason, ok := ledgerReason(err); ok {
			metrics.SignalRejectsTotal.WithLabelValues(reason).Inc()
			e.log.Warn().
				Str("symbol", s.Symbol).
				Str("side", string(s.Side)).
				Int64("qty", s.Qty).
				Err(err).
				Msg("order rejected by ledger")
			return nil
		}
		return err
	}

	e.log.Debug().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Int64("qty", order.Qty).
		Str("state", string(order.State)).
		Msg("order submitted")
	return nil
}

// Run consumes ticks from a bus subscription until the channel closes or the
// context is canceled.
func (e *Engine) Run(ctx context.Context, sub *bus.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := e.Step(ctx, tick); err != nil {
				return err
			}
		}
	}
}

// ledgerReason maps ledger refusals to reject reason labels. Anything else is
// an infrastructure failure the caller must handle.
func ledgerReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientCash):
		return "INSUFFICIENT_CASH", true
	case errors.Is(err, ledger.ErrInsufficientPosition):
		return "INSUFFICIENT_POSITION", true
	case errors.Is(err, ledger.ErrUnsupportedSide):
		return "UNSUPPORTED_SIDE", true
	}
	return "", false
}
