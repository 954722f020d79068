package journal

import (
	"sync"

	"github.com/williamsryan/OptiTrade/internal/ledger"
)

// Memory keeps trades in memory for quick inspection in tests and tools.
type Memory struct {
	mu     sync.Mutex
	trades []ledger.ExecutedTrade
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory { return &Memory{} }

// RecordTrade appends a trade.
func (m *Memory) RecordTrade(t ledger.ExecutedTrade) error {
	m.mu.Lock()
	m.trades = append(m.trades, t)
	m.mu.Unlock()
	return nil
}

// Trades returns a copy of the recorded trades.
func (m *Memory) Trades() []ledger.ExecutedTrade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ledger.ExecutedTrade, len(m.trades))
	copy(out, m.trades)
	return out
}

// Reset clears all stored trades.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.trades = m.trades[:0]
	m.mu.Unlock()
}

// Close implements TradeWriter; nothing to release.
func (m *Memory) Close() error { return nil }
