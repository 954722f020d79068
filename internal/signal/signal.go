// Package signal standardizes payloads shared between strategy, risk, and execution layers.
package signal

import "time"

// Side enumerates the intents a strategy can express for a symbol.
type Side string

const (
	// Buy opens or adds to a long position.
	Buy Side = "BUY"
	// Sell reduces or closes a long position.
	Sell Side = "SELL"
	// Cancel asks the execution layer to pull a matching in-flight order.
	Cancel Side = "CANCEL"
)

// Valid reports whether the side is one of the known values.
func (s Side) Valid() bool {
	switch s {
	case Buy, Sell, Cancel:
		return true
	}
	return false
}

// TradeSignal expresses a strategy-generated intent to trade. It is immutable
// once emitted; risk and execution read it, never rewrite it.
type TradeSignal struct {
	Symbol string
	Qty    int64
	Side   Side
	// Price is the price of the tick that generated the signal. The simulated
	// execution path fills at this price.
	Price float64
	// TickTime is the timestamp of the originating tick.
	TickTime time.Time
}
