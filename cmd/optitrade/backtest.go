package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/williamsryan/OptiTrade/internal/config"
	"github.com/williamsryan/OptiTrade/internal/history"
	"github.com/williamsryan/OptiTrade/internal/journal"
	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/pipeline"
	"github.com/williamsryan/OptiTrade/internal/replay"
	"github.com/williamsryan/OptiTrade/internal/sim"
	"github.com/williamsryan/OptiTrade/internal/strategy"
	"github.com/williamsryan/OptiTrade/internal/util"
)

func newBacktestCmd(cfgPath *string) *cobra.Command {
	var (
		startingCash float64
		paceMs       int
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical ticks through the strategy against a simulated ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			log := util.NewLogger(cfg.App.Name, cfg.App.LogLevel)

			ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ticks, err := loadHistory(ctx, cfg)
			if err != nil {
				return err
			}

			writer, err := buildJournal(cfg, log)
			if err != nil {
				return err
			}
			var recorder ledger.TradeRecorder
			if writer != nil {
				defer writer.Close()
				recorder = journal.NewSink(writer, log)
			}

			cash := cfg.Portfolio.StartingCash
			if cmd.Flags().Changed("starting-cash") {
				cash = startingCash
			}
			if cash <= 0 {
				return fmt.Errorf("invalid starting cash %.2f", cash)
			}

			pace := cfg.Backtest.PaceMs
			if cmd.Flags().Changed("pace-ms") {
				pace = paceMs
			}

			portfolio := ledger.New(decimal.NewFromFloat(cash), recorder)
			router := sim.NewRouter(portfolio, log)
			strat := strategy.Build(cfg.Strategy.Mode, strategy.Params{Qty: cfg.Strategy.Params.Qty})

			// Historical rows carry their own averages, so no enricher.
			engine := pipeline.NewEngine(strat, buildGate(cfg), router, nil, log)
			clock := replay.New(ticks, time.Duration(pace)*time.Millisecond, log)

			res, err := pipeline.NewBacktest(clock, engine, portfolio, log).Run(ctx)
			if err != nil {
				return err
			}
			if res.Empty {
				fmt.Println("No historical data in the requested range.")
				return nil
			}

			fmt.Printf("Done. ticks=%d trades=%d cash=%s realized_pnl=%s\n",
				res.Ticks, res.Summary.TradeCount, res.Summary.Cash, res.Summary.RealizedPnL)
			for symbol, pos := range res.Summary.Positions {
				fmt.Printf("  %s qty=%d avg_cost=%s\n", symbol, pos.Qty, pos.AvgCost)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&startingCash, "starting-cash", 10000, "override configured starting cash")
	cmd.Flags().IntVar(&paceMs, "pace-ms", 0, "override configured pacing between ticks")
	return cmd
}

func loadHistory(ctx context.Context, cfg *config.Config) ([]market.Tick, error) {
	bt := cfg.Backtest
	switch {
	case bt.CSVPath != "":
		return history.LoadCSV(bt.CSVPath)
	case bt.DBPath != "":
		start, end, err := backtestWindow(bt.Start, bt.End)
		if err != nil {
			return nil, err
		}
		src, err := history.OpenSQLite(bt.DBPath)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.Load(ctx, bt.Symbol, start, end)
	default:
		return nil, fmt.Errorf("backtest requires db_path or csv_path")
	}
}

func backtestWindow(startStr, endStr string) (time.Time, time.Time, error) {
	start := time.Unix(0, 0)
	end := time.Now()
	if startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return start, end, fmt.Errorf("bad backtest.start: %w", err)
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return start, end, fmt.Errorf("bad backtest.end: %w", err)
		}
		end = t
	}
	if start.After(end) {
		return start, end, fmt.Errorf("backtest.start must be before backtest.end")
	}
	return start, end, nil
}
