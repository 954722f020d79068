// Package ledger is the authoritative record of cash, positions, and trade
// history. It is the only shared mutable state in the pipeline; every
// mutation happens under one mutex so no partial fill is ever observable.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/williamsryan/OptiTrade/internal/execution"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

var (
	// ErrInsufficientCash rejects a Buy that would take cash negative.
	ErrInsufficientCash = errors.New("ledger: insufficient cash")
	// ErrInsufficientPosition rejects a Sell larger than the held position.
	ErrInsufficientPosition = errors.New("ledger: insufficient position")
	// ErrUnsupportedSide rejects fills for sides the ledger cannot book.
	ErrUnsupportedSide = errors.New("ledger: unsupported side")
	// ErrInvalidFill rejects non-positive quantities or prices.
	ErrInvalidFill = errors.New("ledger: invalid fill")
)

// ExecutedTrade is one append-only trade log entry. Never mutated after
// creation.
type ExecutedTrade struct {
	ID     string          `json:"id"`
	Symbol string          `json:"symbol"`
	Qty    int64           `json:"qty"`
	Price  decimal.Decimal `json:"price"`
	Side   sig.Side        `json:"side"`
	Ts     time.Time       `json:"ts"`
}

// TradeRecorder receives every booked trade, typically a journal writer.
type TradeRecorder interface {
	Record(ExecutedTrade)
}

// PositionSnapshot is a read-only view of one symbol position.
type PositionSnapshot struct {
	Qty     int64
	AvgCost decimal.Decimal
}

// Snapshot is a point-in-time read-only view of the portfolio.
type Snapshot struct {
	Cash        decimal.Decimal
	Positions   map[string]PositionSnapshot
	TradeCount  int
	RealizedPnL decimal.Decimal
}

type position struct {
	qty     int64
	avgCost decimal.Decimal
}

// Portfolio tracks cash and positions mutated only by accepted fills.
type Portfolio struct {
	mu          sync.Mutex
	cash        decimal.Decimal
	positions   map[string]position
	trades      []ExecutedTrade
	realizedPnL decimal.Decimal
	recorder    TradeRecorder
}

// New constructs a portfolio with starting cash. The recorder may be nil.
func New(startingCash decimal.Decimal, recorder TradeRecorder) *Portfolio {
	return &Portfolio{
		cash:      startingCash,
		positions: make(map[string]position),
		recorder:  recorder,
	}
}

// ApplyFill books a filled order at the given price. The balance check and
// the mutation happen under one lock; a rejected fill leaves the ledger
// exactly as it was.
func (p *Portfolio) ApplyFill(order *execution.Order, price decimal.Decimal) (ExecutedTrade, error) {
	if order.Qty <= 0 {
		return ExecutedTrade{}, fmt.Errorf("%w: quantity %d", ErrInvalidFill, order.Qty)
	}
	if !price.IsPositive() {
		return ExecutedTrade{}, fmt.Errorf("%w: price %s", ErrInvalidFill, price)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	notional := price.Mul(decimal.NewFromInt(order.Qty))
	pos := p.positions[order.Symbol]

	switch order.Side {
	case sig.Buy:
		if notional.GreaterThan(p.cash) {
			return ExecutedTrade{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, notional, p.cash)
		}
		newQty := pos.qty + order.Qty
		totalCost := pos.avgCost.Mul(decimal.NewFromInt(pos.qty)).Add(notional)
		p.cash = p.cash.Sub(notional)
		p.positions[order.Symbol] = position{
			qty:     newQty,
			avgCost: totalCost.Div(decimal.NewFromInt(newQty)),
		}

	case sig.Sell:
		if order.Qty > pos.qty {
			return ExecutedTrade{}, fmt.Errorf("%w: selling %d, holding %d", ErrInsufficientPosition, order.Qty, pos.qty)
		}
		realized := price.Sub(pos.avgCost).Mul(decimal.NewFromInt(order.Qty))
		p.realizedPnL = p.realizedPnL.Add(realized)
		p.cash = p.cash.Add(notional)
		remaining := pos.qty - order.Qty
		if remaining == 0 {
			delete(p.positions, order.Symbol)
		} else {
			p.positions[order.Symbol] = position{qty: remaining, avgCost: pos.avgCost}
		}

	default:
		return ExecutedTrade{}, fmt.Errorf("%w: %s", ErrUnsupportedSide, order.Side)
	}

	trade := ExecutedTrade{
		ID:     ulid.Make().String(),
		Symbol: order.Symbol,
		Qty:    order.Qty,
		Price:  price,
		Side:   order.Side,
		Ts:     order.UpdatedAt,
	}
	p.trades = append(p.trades, trade)
	if p.recorder != nil {
		p.recorder.Record(trade)
	}
	return trade, nil
}

// Summary returns a read-only snapshot. It never mutates the ledger and is
// safe to call concurrently with fills.
func (p *Portfolio) Summary() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(p.positions))
	for symbol, pos := range p.positions {
		positions[symbol] = PositionSnapshot{Qty: pos.qty, AvgCost: pos.avgCost}
	}
	return Snapshot{
		Cash:        p.cash,
		Positions:   positions,
		TradeCount:  len(p.trades),
		RealizedPnL: p.realizedPnL,
	}
}

// Position returns the held quantity for one symbol.
func (p *Portfolio) Position(symbol string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol].qty
}

// Cash returns the current free cash.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Trades returns a copy of the trade log in execution order.
func (p *Portfolio) Trades() []ExecutedTrade {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ExecutedTrade, len(p.trades))
	copy(out, p.trades)
	return out
}
