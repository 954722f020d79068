package market

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeAlpacaTrade(t *testing.T) {
	raw := []byte(`{"T":"t","S":"AAPL","p":189.25,"bp":189.2,"ap":189.3,"t":"2024-01-02T15:04:05.123Z"}`)
	tick, err := Normalize(FormatAlpaca, raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if tick.Symbol != "AAPL" {
		t.Fatalf("unexpected symbol: %s", tick.Symbol)
	}
	if tick.Price != 189.25 {
		t.Fatalf("unexpected price: %.2f", tick.Price)
	}
	if tick.Bid == nil || *tick.Bid != 189.2 {
		t.Fatalf("expected bid 189.2, got %+v", tick.Bid)
	}
	if tick.Ask == nil || *tick.Ask != 189.3 {
		t.Fatalf("expected ask 189.3, got %+v", tick.Ask)
	}
	if tick.MA50 != nil || tick.MA200 != nil {
		t.Fatalf("moving averages should stay nil when absent")
	}
	want := time.Date(2024, 1, 2, 15, 4, 5, 123_000_000, time.UTC)
	if !tick.Ts.Equal(want) {
		t.Fatalf("unexpected timestamp: %s", tick.Ts)
	}
}

func TestNormalizeAlpacaOptionalFieldsStayNil(t *testing.T) {
	raw := []byte(`{"T":"t","S":"TSLA","p":240.0,"t":"2024-01-02T15:04:05Z"}`)
	tick, err := Normalize(FormatAlpaca, raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if tick.Bid != nil || tick.Ask != nil {
		t.Fatalf("bid/ask must not be fabricated: %+v", tick)
	}
}

func TestNormalizeAlpacaMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing symbol": `{"T":"t","p":10,"t":"2024-01-02T15:04:05Z"}`,
		"missing price":  `{"T":"t","S":"AAPL","t":"2024-01-02T15:04:05Z"}`,
		"zero price":     `{"T":"t","S":"AAPL","p":0,"t":"2024-01-02T15:04:05Z"}`,
		"bad timestamp":  `{"T":"t","S":"AAPL","p":10,"t":"yesterday"}`,
		"quote message":  `{"T":"q","S":"AAPL","bp":10,"ap":11,"t":"2024-01-02T15:04:05Z"}`,
	}
	for name, raw := range cases {
		if _, err := Normalize(FormatAlpaca, []byte(raw)); err == nil {
			t.Fatalf("%s: expected normalization error", name)
		} else {
			var nerr *NormalizationError
			if !errors.As(err, &nerr) {
				t.Fatalf("%s: expected NormalizationError, got %T", name, err)
			}
		}
	}
}

func TestNormalizeIBBar(t *testing.T) {
	raw := []byte(`{"symbol":"NVDA","bar":{"close":901.5,"time":1704207845000}}`)
	tick, err := Normalize(FormatIB, raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if tick.Symbol != "NVDA" || tick.Price != 901.5 {
		t.Fatalf("unexpected tick: %+v", tick)
	}
	if tick.Ts.IsZero() {
		t.Fatalf("timestamp not set")
	}
}

func TestNormalizeIBMissingBar(t *testing.T) {
	if _, err := Normalize(FormatIB, []byte(`{"symbol":"NVDA"}`)); err == nil {
		t.Fatalf("expected error for missing bar")
	}
}

func TestNormalizeUnknownFormat(t *testing.T) {
	if _, err := Normalize(Format("csv"), []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestSplitEnvelope(t *testing.T) {
	msgs, err := SplitEnvelope([]byte(`[{"T":"t"},{"T":"q"}]`))
	if err != nil {
		t.Fatalf("SplitEnvelope returned error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(msgs))
	}
	if _, err := SplitEnvelope([]byte(`{"T":"t"}`)); err == nil {
		t.Fatalf("expected error for non-array frame")
	}
}
