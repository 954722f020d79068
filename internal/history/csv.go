package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/williamsryan/OptiTrade/internal/market"
)

// csv columns: symbol,price,ma_50,ma_200,timestamp (RFC3339).
// ma_50 and ma_200 may be empty; they stay nil on the tick.

// LoadCSV reads a historical tick file. Rows must already be sorted
// ascending by timestamp; a malformed row fails the whole load.
func LoadCSV(path string) ([]market.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return []market.Tick{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 5 {
		return nil, fmt.Errorf("csv header needs 5 columns, got %d", len(header))
	}

	ticks := []market.Tick{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		line++

		price, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price %q", line, record[1])
		}
		ts, err := time.Parse(time.RFC3339, record[4])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad timestamp %q", line, record[4])
		}
		tick := market.Tick{Symbol: record[0], Price: price, Ts: ts}
		if tick.MA50, err = parseOptional(record[2]); err != nil {
			return nil, fmt.Errorf("line %d: bad ma_50 %q", line, record[2])
		}
		if tick.MA200, err = parseOptional(record[3]); err != nil {
			return nil, fmt.Errorf("line %d: bad ma_200 %q", line, record[3])
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
