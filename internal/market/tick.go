// Package market defines the canonical tick shape and the normalization step
// that converts provider-specific payloads into it.
package market

import "time"

// Tick is a single normalized market-data observation. Optional fields are
// nil when the provider did not supply them; they are never defaulted.
type Tick struct {
	Symbol string
	Price  float64
	Bid    *float64
	Ask    *float64
	MA50   *float64
	MA200  *float64
	Ts     time.Time
}

// Float is a small helper for building optional fields in literals and tests.
func Float(v float64) *float64 { return &v }
