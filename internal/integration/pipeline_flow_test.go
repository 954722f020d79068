package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/williamsryan/OptiTrade/internal/bus"
	"github.com/williamsryan/OptiTrade/internal/execution"
	"github.com/williamsryan/OptiTrade/internal/feed"
	"github.com/williamsryan/OptiTrade/internal/history"
	"github.com/williamsryan/OptiTrade/internal/journal"
	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/pipeline"
	"github.com/williamsryan/OptiTrade/internal/replay"
	"github.com/williamsryan/OptiTrade/internal/risk"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
	"github.com/williamsryan/OptiTrade/internal/sim"
	"github.com/williamsryan/OptiTrade/internal/strategy"
)

func TestBacktestFlowFromSQLiteHistory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	src, err := history.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer src.Close()

	rows := []market.Tick{
		// Above the fast average: buy 10 @ 105.
		{Symbol: "AAPL", Price: 105, MA50: market.Float(100), MA200: market.Float(110), Ts: base},
		// Between the averages: no signal.
		{Symbol: "AAPL", Price: 104, MA50: market.Float(110), MA200: market.Float(100), Ts: base.Add(time.Minute)},
		// Below the slow average: sell 10 @ 90.
		{Symbol: "AAPL", Price: 90, MA50: market.Float(100), MA200: market.Float(100), Ts: base.Add(2 * time.Minute)},
	}
	for _, row := range rows {
		if err := src.Insert(ctx, row); err != nil {
			t.Fatalf("insert row: %v", err)
		}
	}

	ticks, err := src.Load(ctx, "AAPL", base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(ticks) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(ticks))
	}

	jrnl, err := journal.OpenSQLite(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer jrnl.Close()

	portfolio := ledger.New(decimal.NewFromFloat(10000), journal.NewSink(jrnl, zerolog.Nop()))
	router := sim.NewRouter(portfolio, zerolog.Nop())
	gate := risk.Gate{MaxOrderQty: 1000, BlockedPrefixes: []string{"OTC"}}
	engine := pipeline.NewEngine(strategy.NewCrossover(10), gate, router, nil, zerolog.Nop())
	clock := replay.New(ticks, 0, zerolog.Nop())

	res, err := pipeline.NewBacktest(clock, engine, portfolio, zerolog.Nop()).Run(ctx)
	if err != nil {
		t.Fatalf("backtest returned error: %v", err)
	}
	if res.Empty {
		t.Fatal("expected a non-empty run")
	}
	if res.Ticks != 3 {
		t.Fatalf("expected 3 ticks processed, got %d", res.Ticks)
	}
	if res.Summary.TradeCount != 2 {
		t.Fatalf("expected 2 trades, got %d", res.Summary.TradeCount)
	}
	if !res.Summary.Cash.Equal(decimal.NewFromFloat(9850)) {
		t.Fatalf("expected cash 9850 after round trip, got %s", res.Summary.Cash)
	}
	if !res.Summary.RealizedPnL.Equal(decimal.NewFromFloat(-150)) {
		t.Fatalf("expected realized pnl -150, got %s", res.Summary.RealizedPnL)
	}
	if pos := res.Summary.Positions["AAPL"]; pos.Qty != 0 {
		t.Fatalf("expected flat position, got %d", pos.Qty)
	}

	stored, err := jrnl.ListTrades()
	if err != nil {
		t.Fatalf("list journal trades: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 journaled trades, got %d", len(stored))
	}
	if stored[0].Side != sig.Buy || stored[1].Side != sig.Sell {
		t.Fatalf("unexpected journaled sides: %s, %s", stored[0].Side, stored[1].Side)
	}
	if !stored[1].Ts.After(stored[0].Ts) {
		t.Fatalf("journaled trades out of order: %s then %s", stored[0].Ts, stored[1].Ts)
	}
}

func TestBacktestFlowEmptyRange(t *testing.T) {
	ctx := context.Background()

	src, err := history.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer src.Close()

	ticks, err := src.Load(ctx, "AAPL", time.Unix(0, 0), time.Now())
	if err != nil {
		t.Fatalf("load history: %v", err)
	}

	portfolio := ledger.New(decimal.NewFromFloat(10000), nil)
	router := sim.NewRouter(portfolio, zerolog.Nop())
	engine := pipeline.NewEngine(strategy.NewCrossover(10), risk.Gate{}, router, nil, zerolog.Nop())
	clock := replay.New(ticks, 0, zerolog.Nop())

	res, err := pipeline.NewBacktest(clock, engine, portfolio, zerolog.Nop()).Run(ctx)
	if err != nil {
		t.Fatalf("empty backtest must not error, got %v", err)
	}
	if !res.Empty {
		t.Fatal("expected an empty run report")
	}
	if !res.Summary.Cash.Equal(decimal.NewFromFloat(10000)) {
		t.Fatalf("portfolio must be untouched, got cash %s", res.Summary.Cash)
	}
}

func TestLiveFlowStubFeedToLedger(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mem := journal.NewMemory()
	portfolio := ledger.New(decimal.NewFromFloat(10000), journal.NewSink(mem, zerolog.Nop()))
	router := sim.NewRouter(portfolio, zerolog.Nop())

	// Short windows so the stub's rising prices warm the averages quickly.
	enricher := market.NewEnricher(2, 3)
	engine := pipeline.NewEngine(strategy.NewCrossover(1), risk.Gate{MaxOrderQty: 1000}, router, enricher, zerolog.Nop())

	b := bus.New(bus.Config{})
	sub := b.Subscribe("ticks")

	src := feed.NewFeed(feed.ProviderStub, []string{"AAPL"}, zerolog.Nop(), feed.WithStubInterval(5*time.Millisecond))
	feedCtx, stopFeed := context.WithCancel(ctx)

	ticks := make(chan market.Tick, 64)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		_ = src.Run(feedCtx, ticks)
		close(ticks)
	}()

	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)
		for tick := range ticks {
			if err := b.Publish("ticks", tick.Symbol, tick); err != nil {
				return
			}
		}
	}()

	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Run(context.Background(), sub)
	}()

	// Let enough ticks flow to warm the averages and trade.
	deadline := time.After(5 * time.Second)
	for portfolio.Position("AAPL") == 0 {
		select {
		case <-deadline:
			t.Fatal("no position built from stub feed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Ingestion first, then the bus, then the engine drains out.
	stopFeed()
	<-feedDone
	<-pubDone
	b.Close()
	if err := <-engineDone; err != nil {
		t.Fatalf("engine returned error: %v", err)
	}

	snap := portfolio.Summary()
	if snap.TradeCount == 0 {
		t.Fatal("expected trades booked")
	}
	if snap.Cash.GreaterThan(decimal.NewFromFloat(10000)) {
		t.Fatalf("cash grew without sells: %s", snap.Cash)
	}
	if got := len(mem.Trades()); got != snap.TradeCount {
		t.Fatalf("journal saw %d trades, ledger booked %d", got, snap.TradeCount)
	}
}

type scriptedBackend struct {
	placed   int
	canceled []string
}

func (b *scriptedBackend) Place(ctx context.Context, symbol string, qty int64, side sig.Side) (execution.OrderAck, error) {
	b.placed++
	return execution.OrderAck{BrokerID: "broker-1"}, nil
}

func (b *scriptedBackend) Cancel(ctx context.Context, brokerID string) error {
	b.canceled = append(b.canceled, brokerID)
	return nil
}

func TestLiveRouterFillBooksIntoLedger(t *testing.T) {
	portfolio := ledger.New(decimal.NewFromFloat(10000), nil)
	backend := &scriptedBackend{}
	router := execution.NewLiveRouter(backend, zerolog.Nop(), func(order *execution.Order, price float64) {
		if _, err := portfolio.ApplyFill(order, decimal.NewFromFloat(price)); err != nil {
			t.Errorf("fill not booked: %v", err)
		}
	})

	engine := pipeline.NewEngine(strategy.NewCrossover(10), risk.Gate{}, router, nil, zerolog.Nop())
	tick := market.Tick{Symbol: "AAPL", Price: 105, MA50: market.Float(100), MA200: market.Float(110), Ts: time.Now()}
	if err := engine.Step(context.Background(), tick); err != nil {
		t.Fatalf("step returned error: %v", err)
	}
	if backend.placed != 1 {
		t.Fatalf("expected one placement, got %d", backend.placed)
	}
	if router.Inflight() != 1 {
		t.Fatalf("expected one in-flight order, got %d", router.Inflight())
	}

	// Venue confirms the fill asynchronously.
	order, err := router.HandleFill("broker-1", 105)
	if err != nil {
		t.Fatalf("HandleFill returned error: %v", err)
	}
	if order.State != execution.StateFilled {
		t.Fatalf("expected filled order, got %s", order.State)
	}
	if got := portfolio.Position("AAPL"); got != 10 {
		t.Fatalf("expected position 10, got %d", got)
	}
	if !portfolio.Cash().Equal(decimal.NewFromFloat(8950)) {
		t.Fatalf("expected cash 8950, got %s", portfolio.Cash())
	}
}
