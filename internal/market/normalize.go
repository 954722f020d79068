package market

import (
	"encoding/json"
	"fmt"
	"time"
)

// Format identifies the wire shape a raw payload is expected to be in.
type Format string

const (
	// FormatAlpaca decodes Alpaca-style stream messages ({"T":"t","S":...}).
	FormatAlpaca Format = "alpaca"
	// FormatIB decodes Interactive Brokers style bar messages.
	FormatIB Format = "ib"
)

// NormalizationError reports a payload that failed schema validation.
// Callers drop the payload, log, and continue the stream.
type NormalizationError struct {
	Format Format
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s payload: field %q %s", e.Format, e.Field, e.Reason)
}

func malformed(format Format, field, reason string) error {
	return &NormalizationError{Format: format, Field: field, Reason: reason}
}

type alpacaMessage struct {
	Type   string   `json:"T"`
	Symbol string   `json:"S"`
	Price  *float64 `json:"p"`
	Bid    *float64 `json:"bp"`
	Ask    *float64 `json:"ap"`
	Ts     string   `json:"t"`
}

type ibBar struct {
	Close *float64 `json:"close"`
	Time  int64    `json:"time"` // unix milliseconds
}

type ibMessage struct {
	Symbol string   `json:"symbol"`
	Bar    *ibBar   `json:"bar"`
	Bid    *float64 `json:"bid"`
	Ask    *float64 `json:"ask"`
}

// Normalize converts one raw provider payload into a canonical Tick. Missing
// required fields or unparsable values fail closed; optional fields stay nil.
func Normalize(format Format, raw []byte) (Tick, error) {
	switch format {
	case FormatAlpaca:
		return normalizeAlpaca(raw)
	case FormatIB:
		return normalizeIB(raw)
	default:
		return Tick{}, malformed(format, "format", "is not a known provider format")
	}
}

func normalizeAlpaca(raw []byte) (Tick, error) {
	var msg alpacaMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Tick{}, malformed(FormatAlpaca, "payload", "is not valid JSON")
	}
	if msg.Type != "t" {
		return Tick{}, malformed(FormatAlpaca, "T", fmt.Sprintf("has unsupported message type %q", msg.Type))
	}
	if msg.Symbol == "" {
		return Tick{}, malformed(FormatAlpaca, "S", "is missing")
	}
	if msg.Price == nil {
		return Tick{}, malformed(FormatAlpaca, "p", "is missing")
	}
	if *msg.Price <= 0 {
		return Tick{}, malformed(FormatAlpaca, "p", "must be positive")
	}
	ts, err := time.Parse(time.RFC3339Nano, msg.Ts)
	if err != nil {
		return Tick{}, malformed(FormatAlpaca, "t", "is not an RFC3339 timestamp")
	}
	return Tick{
		Symbol: msg.Symbol,
		Price:  *msg.Price,
		Bid:    msg.Bid,
		Ask:    msg.Ask,
		Ts:     ts,
	}, nil
}

func normalizeIB(raw []byte) (Tick, error) {
	var msg ibMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Tick{}, malformed(FormatIB, "payload", "is not valid JSON")
	}
	if msg.Symbol == "" {
		return Tick{}, malformed(FormatIB, "symbol", "is missing")
	}
	if msg.Bar == nil {
		return Tick{}, malformed(FormatIB, "bar", "is missing")
	}
	if msg.Bar.Close == nil {
		return Tick{}, malformed(FormatIB, "bar.close", "is missing")
	}
	if *msg.Bar.Close <= 0 {
		return Tick{}, malformed(FormatIB, "bar.close", "must be positive")
	}
	if msg.Bar.Time <= 0 {
		return Tick{}, malformed(FormatIB, "bar.time", "is missing")
	}
	return Tick{
		Symbol: msg.Symbol,
		Price:  *msg.Bar.Close,
		Bid:    msg.Bid,
		Ask:    msg.Ask,
		Ts:     time.UnixMilli(msg.Bar.Time).UTC(),
	}, nil
}

// SplitEnvelope breaks an Alpaca stream frame (a JSON array of message
// objects) into individual payloads for Normalize. A frame that is not an
// array fails closed.
func SplitEnvelope(raw []byte) ([]json.RawMessage, error) {
	var msgs []json.RawMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, malformed(FormatAlpaca, "envelope", "is not a JSON array")
	}
	return msgs, nil
}
