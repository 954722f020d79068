package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

func trade(id, symbol string, side sig.Side, qty int64, price float64) ledger.ExecutedTrade {
	return ledger.ExecutedTrade{
		ID:     id,
		Symbol: symbol,
		Qty:    qty,
		Price:  decimal.NewFromFloat(price),
		Side:   side,
		Ts:     time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
	}
}

func TestJSONLWriterAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fills", "trades.jsonl")
	w, err := NewJSONLWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.RecordTrade(trade("t1", "AAPL", sig.Buy, 10, 105)))
	require.NoError(t, w.RecordTrade(trade("t2", "AAPL", sig.Sell, 10, 90)))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "double close must be safe")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var got ledger.ExecutedTrade
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
		lines++
	}
	require.Equal(t, 2, lines)
}

func TestSQLiteJournalRoundTrip(t *testing.T) {
	j, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordTrade(trade("t1", "AAPL", sig.Buy, 10, 105.25)))
	require.NoError(t, j.RecordTrade(trade("t2", "AAPL", sig.Sell, 10, 90)))

	trades, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, "t1", trades[0].ID)
	require.True(t, trades[0].Price.Equal(decimal.NewFromFloat(105.25)),
		"price must survive the round trip exactly, got %s", trades[0].Price)
	require.Equal(t, sig.Sell, trades[1].Side)
}

func TestSQLiteJournalRecordsTicks(t *testing.T) {
	j, err := OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordTick(market.Tick{
		Symbol: "AAPL", Price: 105, Bid: market.Float(104.9), Ts: time.Now(),
	}))
	require.NoError(t, j.RecordTick(market.Tick{Symbol: "AAPL", Price: 106, Ts: time.Now()}))
}

func TestMemoryJournal(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.RecordTrade(trade("t1", "AAPL", sig.Buy, 10, 105)))
	require.Len(t, m.Trades(), 1)
	m.Reset()
	require.Empty(t, m.Trades())
}

func TestSinkSwallowsWriterErrors(t *testing.T) {
	w, err := NewJSONLWriter(filepath.Join(t.TempDir(), "trades.jsonl"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Writer is closed: Record must log, not panic or propagate.
	sink := NewSink(w, zerolog.Nop())
	sink.Record(trade("t1", "AAPL", sig.Buy, 10, 105))
}
