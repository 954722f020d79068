package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/williamsryan/OptiTrade/internal/execution"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

func order(symbol string, side sig.Side, qty int64) *execution.Order {
	o := execution.NewOrder(sig.TradeSignal{Symbol: symbol, Qty: qty, Side: side}, time.Now())
	_ = o.Transition(execution.StateSubmitted, time.Now())
	return o
}

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestBuyThenSell(t *testing.T) {
	p := New(d(10_000), nil)

	// Buy 10 at 105.
	trade, err := p.ApplyFill(order("AAPL", sig.Buy, 10), d(105))
	if err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	if trade.ID == "" {
		t.Fatalf("trade id not assigned")
	}
	if !p.Cash().Equal(d(8_950)) {
		t.Fatalf("expected cash 8950, got %s", p.Cash())
	}
	if p.Position("AAPL") != 10 {
		t.Fatalf("expected position 10, got %d", p.Position("AAPL"))
	}

	// Sell 10 at 90 after buying at 105.
	if _, err := p.ApplyFill(order("AAPL", sig.Sell, 10), d(90)); err != nil {
		t.Fatalf("unexpected sell error: %v", err)
	}
	if !p.Cash().Equal(d(9_850)) {
		t.Fatalf("expected cash 9850, got %s", p.Cash())
	}
	if p.Position("AAPL") != 0 {
		t.Fatalf("expected flat position, got %d", p.Position("AAPL"))
	}

	snap := p.Summary()
	if snap.TradeCount != 2 {
		t.Fatalf("expected 2 trades, got %d", snap.TradeCount)
	}
	if !snap.RealizedPnL.Equal(d(-150)) {
		t.Fatalf("expected realized pnl -150, got %s", snap.RealizedPnL)
	}
}

func TestInsufficientPositionLeavesLedgerUntouched(t *testing.T) {
	// Stale sell with no position.
	p := New(d(1_000), nil)
	_, err := p.ApplyFill(order("AAPL", sig.Sell, 10), d(90))
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Fatalf("expected ErrInsufficientPosition, got %v", err)
	}
	if !p.Cash().Equal(d(1_000)) || p.Position("AAPL") != 0 {
		t.Fatalf("rejected fill must not mutate the ledger")
	}
	if p.Summary().TradeCount != 0 {
		t.Fatalf("rejected fill must not append a trade")
	}
}

func TestInsufficientCashLeavesLedgerUntouched(t *testing.T) {
	// Buy 10 at 50 with only 100 cash.
	p := New(d(100), nil)
	_, err := p.ApplyFill(order("AAPL", sig.Buy, 10), d(50))
	if !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("expected ErrInsufficientCash, got %v", err)
	}
	if !p.Cash().Equal(d(100)) {
		t.Fatalf("cash changed on rejected buy: %s", p.Cash())
	}
	if p.Summary().TradeCount != 0 {
		t.Fatalf("rejected fill must not append a trade")
	}
}

func TestCashNeverNegativeAcrossSequence(t *testing.T) {
	p := New(d(1_000), nil)
	prices := []float64{100, 260, 90, 450, 30}
	for _, px := range prices {
		_, _ = p.ApplyFill(order("AAPL", sig.Buy, 3), d(px))
		if p.Cash().IsNegative() {
			t.Fatalf("cash went negative after buy at %.2f: %s", px, p.Cash())
		}
	}
	for i := 0; i < 5; i++ {
		_, _ = p.ApplyFill(order("AAPL", sig.Sell, 4), d(50))
		if p.Position("AAPL") < 0 {
			t.Fatalf("position went negative")
		}
	}
}

func TestExactNotionalSpendsAllCash(t *testing.T) {
	p := New(d(1_050), nil)
	if _, err := p.ApplyFill(order("AAPL", sig.Buy, 10), d(105)); err != nil {
		t.Fatalf("a buy costing exactly the cash balance must pass: %v", err)
	}
	if !p.Cash().Equal(decimal.Zero) {
		t.Fatalf("expected zero cash, got %s", p.Cash())
	}
}

func TestUnsupportedSide(t *testing.T) {
	p := New(d(1_000), nil)
	if _, err := p.ApplyFill(order("AAPL", sig.Cancel, 10), d(10)); !errors.Is(err, ErrUnsupportedSide) {
		t.Fatalf("expected ErrUnsupportedSide, got %v", err)
	}
}

func TestInvalidFill(t *testing.T) {
	p := New(d(1_000), nil)
	if _, err := p.ApplyFill(order("AAPL", sig.Buy, 10), d(0)); !errors.Is(err, ErrInvalidFill) {
		t.Fatalf("expected ErrInvalidFill for zero price, got %v", err)
	}
}

type captureRecorder struct {
	trades []ExecutedTrade
}

func (c *captureRecorder) Record(t ExecutedTrade) { c.trades = append(c.trades, t) }

func TestRecorderSeesEveryBookedTrade(t *testing.T) {
	rec := &captureRecorder{}
	p := New(d(10_000), rec)
	_, _ = p.ApplyFill(order("AAPL", sig.Buy, 10), d(100))
	_, _ = p.ApplyFill(order("AAPL", sig.Sell, 100), d(100)) // rejected
	if len(rec.trades) != 1 {
		t.Fatalf("recorder should see exactly the booked trades, got %d", len(rec.trades))
	}
}

func TestSummaryIsACopy(t *testing.T) {
	p := New(d(10_000), nil)
	_, _ = p.ApplyFill(order("AAPL", sig.Buy, 10), d(100))
	snap := p.Summary()
	snap.Positions["AAPL"] = PositionSnapshot{Qty: 999}
	if p.Position("AAPL") != 10 {
		t.Fatalf("summary must not expose internal state")
	}
}
