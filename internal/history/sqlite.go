// Package history supplies ordered historical tick sequences for backtests.
// Sources return an explicit empty slice when no rows match; retry and
// backoff are not their problem.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/williamsryan/OptiTrade/internal/market"
)

// Schema creates the historical price table. Moving averages and quotes are
// nullable: a NULL stays a nil optional on the tick, never a zero.
const Schema = `
CREATE TABLE IF NOT EXISTS historical_prices (
	symbol TEXT NOT NULL,
	price REAL NOT NULL,
	bid REAL,
	ask REAL,
	ma_50 REAL,
	ma_200 REAL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_historical_symbol_ts ON historical_prices(symbol, timestamp);
`

// SQLiteSource reads historical ticks from a SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the database and ensures the schema exists.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// Insert writes one tick, mostly used by tests and data loaders.
func (s *SQLiteSource) Insert(ctx context.Context, t market.Tick) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO historical_prices (symbol, price, bid, ask, ma_50, ma_200, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Symbol, t.Price, toNull(t.Bid), toNull(t.Ask), toNull(t.MA50), toNull(t.MA200), t.Ts.UnixMilli(),
	)
	return err
}

// Load returns the symbol's ticks in the time range, sorted ascending by
// timestamp. An empty result is returned as an empty slice, not an error.
func (s *SQLiteSource) Load(ctx context.Context, symbol string, start, end time.Time) ([]market.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, price, bid, ask, ma_50, ma_200, timestamp
		FROM historical_prices
		WHERE symbol = ? AND timestamp BETWEEN ? AND ?
		ORDER BY timestamp ASC`,
		symbol, start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query historical prices: %w", err)
	}
	defer rows.Close()

	ticks := []market.Tick{}
	for rows.Next() {
		var (
			t                    market.Tick
			bid, ask, ma50, ma200 sql.NullFloat64
			tsMillis             int64
		)
		if err := rows.Scan(&t.Symbol, &t.Price, &bid, &ask, &ma50, &ma200, &tsMillis); err != nil {
			return nil, fmt.Errorf("scan historical row: %w", err)
		}
		t.Bid = fromNull(bid)
		t.Ask = fromNull(ask)
		t.MA50 = fromNull(ma50)
		t.MA200 = fromNull(ma200)
		t.Ts = time.UnixMilli(tsMillis).UTC()
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ticks, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
