// Package replay drives backtests by feeding historical ticks into the
// pipeline at a configurable pace.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamsryan/OptiTrade/internal/market"
)

var (
	// ErrNoData reports a zero-length historical dataset. Callers surface an
	// empty backtest to the operator; it is not a crash.
	ErrNoData = errors.New("replay: no historical data")
	// ErrOutOfOrder reports a tick sequence that violates per-symbol
	// timestamp ordering. The source contract is ascending order, so this
	// is a data bug worth stopping on.
	ErrOutOfOrder = errors.New("replay: ticks out of order")
)

// Sleeper abstracts the pacing delay so tests can run instantly.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Clock emits an ordered historical tick sequence, pausing between ticks to
// simulate real-time pacing.
type Clock struct {
	ticks    []market.Tick
	interval time.Duration
	sleeper  Sleeper
	log      zerolog.Logger
}

// New builds a clock over a tick sequence already sorted ascending by
// timestamp per symbol. interval <= 0 replays as fast as possible.
func New(ticks []market.Tick, interval time.Duration, log zerolog.Logger) *Clock {
	return &Clock{ticks: ticks, interval: interval, sleeper: realSleeper{}, log: log}
}

// WithSleeper swaps the pacing implementation, for deterministic tests.
func (c *Clock) WithSleeper(s Sleeper) *Clock {
	if s != nil {
		c.sleeper = s
	}
	return c
}

// Run emits every tick into out in order, then closes out so consumers can
// tell "stream ended" from "no tick yet". A zero-length dataset returns
// ErrNoData with nothing emitted.
func (c *Clock) Run(ctx context.Context, out chan<- market.Tick) error {
	defer close(out)

	if len(c.ticks) == 0 {
		c.log.Warn().Msg("historical dataset is empty, terminating replay")
		return ErrNoData
	}

	lastSeen := make(map[string]time.Time)
	for i, tick := range c.ticks {
		if last, ok := lastSeen[tick.Symbol]; ok && tick.Ts.Before(last) {
			return fmt.Errorf("%w: %s at index %d", ErrOutOfOrder, tick.Symbol, i)
		}
		lastSeen[tick.Symbol] = tick.Ts

		if i > 0 && c.interval > 0 {
			if err := c.sleeper.Sleep(ctx, c.interval); err != nil {
				return err
			}
		}
		select {
		case out <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.log.Info().Int("ticks", len(c.ticks)).Msg("replay complete")
	return nil
}
