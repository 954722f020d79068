package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/replay"
)

// BacktestResult reports what a replay run did to the portfolio.
type BacktestResult struct {
	Ticks   int
	Empty   bool
	Summary ledger.Snapshot
}

// Backtest replays historical ticks through an engine at the replay clock's
// pace and reports the resulting portfolio state.
type Backtest struct {
	clock     *replay.Clock
	engine    *Engine
	portfolio *ledger.Portfolio
	log       zerolog.Logger
}

// NewBacktest pairs a replay clock with an engine.
func NewBacktest(clock *replay.Clock, engine *Engine, portfolio *ledger.Portfolio, log zerolog.Logger) *Backtest {
	return &Backtest{clock: clock, engine: engine, portfolio: portfolio, log: log}
}

// Run drives the full replay. A data source with no rows is reported as an
// empty result, not an error; the portfolio is left untouched in that case.
func (b *Backtest) Run(ctx context.Context) (BacktestResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks := make(chan market.Tick, 64)
	clockErr := make(chan error, 1)
	go func() {
		clockErr <- b.clock.Run(ctx, ticks)
	}()

	var (
		processed int
		stepErr   error
	)
	for tick := range ticks {
		if stepErr != nil {
			continue // drain so the clock can finish
		}
		if err := b.engine.Step(ctx, tick); err != nil {
			stepErr = err
			cancel()
			continue
		}
		processed++
	}

	err := <-clockErr
	if stepErr != nil {
		return BacktestResult{Ticks: processed, Summary: b.portfolio.Summary()}, stepErr
	}
	switch {
	case errors.Is(err, replay.ErrNoData):
		b.log.Warn().Msg("backtest ran against an empty data set")
		return BacktestResult{Empty: true, Summary: b.portfolio.Summary()}, nil
	case err != nil && !errors.Is(err, context.Canceled):
		return BacktestResult{Ticks: processed, Summary: b.portfolio.Summary()}, err
	}

	res := BacktestResult{Ticks: processed, Summary: b.portfolio.Summary()}
	b.log.Info().
		Int("ticks", res.Ticks).
		Int("trades", res.Summary.TradeCount).
		Str("cash", res.Summary.Cash.String()).
		Msg("backtest complete")
	return res, nil
}
