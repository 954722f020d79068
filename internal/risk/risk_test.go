package risk

import (
	"testing"

	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

func TestValidatePasses(t *testing.T) {
	gate := Gate{MaxOrderQty: 1000, BlockedPrefixes: []string{"OTC"}}
	if v := gate.Validate(sig.TradeSignal{Symbol: "AAPL", Qty: 10, Side: sig.Buy}); v != nil {
		t.Fatalf("expected pass, got %v", v)
	}
}

func TestValidateQtyCeiling(t *testing.T) {
	gate := Gate{MaxOrderQty: 1000}
	v := gate.Validate(sig.TradeSignal{Symbol: "AAPL", Qty: 1001, Side: sig.Buy})
	if v == nil {
		t.Fatalf("expected violation")
	}
	if v.Rule != RuleMaxQty {
		t.Fatalf("expected %s, got %s", RuleMaxQty, v.Rule)
	}
}

func TestValidateBlockedPrefix(t *testing.T) {
	gate := Gate{BlockedPrefixes: []string{"OTC"}}
	v := gate.Validate(sig.TradeSignal{Symbol: "OTCMKTS", Qty: 10, Side: sig.Buy})
	if v == nil || v.Rule != RuleBlockedSymbol {
		t.Fatalf("expected blocked symbol violation, got %v", v)
	}
}

func TestValidateNonPositiveQty(t *testing.T) {
	gate := Gate{MaxOrderQty: 1000}
	if v := gate.Validate(sig.TradeSignal{Symbol: "AAPL", Qty: 0, Side: sig.Buy}); v == nil || v.Rule != RuleQtyPositive {
		t.Fatalf("expected qty violation, got %v", v)
	}
}

func TestValidateZeroCeilingDisabled(t *testing.T) {
	gate := Gate{}
	if v := gate.Validate(sig.TradeSignal{Symbol: "AAPL", Qty: 1_000_000, Side: sig.Buy}); v != nil {
		t.Fatalf("zero ceiling should disable the check, got %v", v)
	}
}
