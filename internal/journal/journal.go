// Package journal persists executed trades and ticks outside the core
// pipeline. Writers consume plain serializable records; schema is theirs.
package journal

import (
	"github.com/rs/zerolog"

	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
)

// TradeWriter stores executed trades.
type TradeWriter interface {
	RecordTrade(ledger.ExecutedTrade) error
	Close() error
}

// TickWriter stores market ticks for later replay or analysis.
type TickWriter interface {
	RecordTick(market.Tick) error
}

// Sink adapts a TradeWriter to the ledger's fire-and-forget recorder hook.
// Write failures are logged, never propagated into the fill path.
type Sink struct {
	w   TradeWriter
	log zerolog.Logger
}

// NewSink wraps a writer for use as a ledger.TradeRecorder.
func NewSink(w TradeWriter, log zerolog.Logger) *Sink {
	return &Sink{w: w, log: log}
}

// Record implements ledger.TradeRecorder.
func (s *Sink) Record(t ledger.ExecutedTrade) {
	if err := s.w.RecordTrade(t); err != nil {
		s.log.Error().Err(err).Str("trade_id", t.ID).Msg("journal write failed")
	}
}
