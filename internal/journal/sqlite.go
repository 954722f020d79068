package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price TEXT NOT NULL,
	side TEXT NOT NULL,
	ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS market_data (
	symbol TEXT NOT NULL,
	bid REAL,
	ask REAL,
	last_price REAL NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(ts);
CREATE INDEX IF NOT EXISTS idx_market_data_symbol_ts ON market_data(symbol, timestamp);
`

// SQLiteJournal stores trades and ticks in a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens the journal database and ensures the schema exists.
func OpenSQLite(path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// RecordTrade inserts one executed trade.
func (j *SQLiteJournal) RecordTrade(t ledger.ExecutedTrade) error {
	_, err := j.db.Exec(`
		INSERT INTO trades (trade_id, symbol, qty, price, side, ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Symbol, t.Qty, t.Price.String(), string(t.Side), t.Ts.UnixMilli(),
	)
	return err
}

// RecordTick inserts one tick into the market_data table.
func (j *SQLiteJournal) RecordTick(t market.Tick) error {
	var bid, ask any
	if t.Bid != nil {
		bid = *t.Bid
	}
	if t.Ask != nil {
		ask = *t.Ask
	}
	_, err := j.db.Exec(`
		INSERT INTO market_data (symbol, bid, ask, last_price, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		t.Symbol, bid, ask, t.Price, t.Ts.UnixMilli(),
	)
	return err
}

// ListTrades returns all stored trades ordered by timestamp.
func (j *SQLiteJournal) ListTrades() ([]ledger.ExecutedTrade, error) {
	rows, err := j.db.Query(`SELECT trade_id, symbol, qty, price, side, ts FROM trades ORDER BY ts ASC, trade_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.ExecutedTrade
	for rows.Next() {
		var (
			t        ledger.ExecutedTrade
			price    string
			side     string
			tsMillis int64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Qty, &price, &side, &tsMillis); err != nil {
			return nil, err
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad price in journal: %w", err)
		}
		t.Side = sig.Side(side)
		t.Ts = time.UnixMilli(tsMillis).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (j *SQLiteJournal) Close() error { return j.db.Close() }
