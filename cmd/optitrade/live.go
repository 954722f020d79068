package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/williamsryan/OptiTrade/internal/bus"
	"github.com/williamsryan/OptiTrade/internal/config"
	"github.com/williamsryan/OptiTrade/internal/execution"
	"github.com/williamsryan/OptiTrade/internal/feed"
	"github.com/williamsryan/OptiTrade/internal/journal"
	"github.com/williamsryan/OptiTrade/internal/ledger"
	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/metrics"
	"github.com/williamsryan/OptiTrade/internal/pipeline"
	"github.com/williamsryan/OptiTrade/internal/sim"
	"github.com/williamsryan/OptiTrade/internal/strategy"
	"github.com/williamsryan/OptiTrade/internal/util"
)

func newLiveCmd(cfgPath *string) *cobra.Command {
	var paper bool

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Stream live ticks through the strategy and route orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			log := util.NewLogger(cfg.App.Name, cfg.App.LogLevel)

			if cfg.App.MetricsAddr != "" {
				_ = metrics.Serve(cfg.App.MetricsAddr)
				log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
			}

			ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			writer, err := buildJournal(cfg, log)
			if err != nil {
				return err
			}
			var recorder ledger.TradeRecorder
			if writer != nil {
				defer writer.Close()
				recorder = journal.NewSink(writer, log)
			}

			portfolio := ledger.New(decimal.NewFromFloat(cfg.Portfolio.StartingCash), recorder)

			var router execution.Router
			var liveRouter *execution.LiveRouter
			var creds feed.Credentials
			needsCreds := cfg.Provider.Use == feed.ProviderAlpaca || !paper
			if needsCreds {
				creds, err = feed.CredentialsFromEnv()
				if err != nil {
					return err
				}
			}
			if paper {
				router = sim.NewRouter(portfolio, log)
			} else {
				backend := execution.NewAlpacaBackend(cfg.Provider.Alpaca.BaseURL, creds.Key, creds.Secret)
				liveRouter = execution.NewLiveRouter(backend, log, func(order *execution.Order, price float64) {
					if _, err := portfolio.ApplyFill(order, decimal.NewFromFloat(price)); err != nil {
						log.Error().Err(err).Str("sym", order.Symbol).Msg("fill not booked")
					}
				})
				router = liveRouter
			}

			fast, slow := cfg.Strategy.Params.FastPeriod, cfg.Strategy.Params.SlowPeriod
			if fast <= 0 {
				fast = 50
			}
			if slow <= 0 {
				slow = 200
			}
			enricher := market.NewEnricher(fast, slow)
			strat := strategy.Build(cfg.Strategy.Mode, strategy.Params{Qty: cfg.Strategy.Params.Qty})
			engine := pipeline.NewEngine(strat, buildGate(cfg), router, enricher, log)

			b := bus.New(bus.Config{
				Shards:           cfg.Bus.Shards,
				ShardBuffer:      cfg.Bus.ShardBuffer,
				SubscriberBuffer: cfg.Bus.SubscriberBuffer,
				Mode:             bus.ParseMode(cfg.Bus.Mode),
			})
			sub := b.Subscribe("ticks")

			src := feed.NewFeed(
				cfg.Provider.Use,
				cfg.Provider.Symbols,
				log,
				feed.WithWebsocketURL(cfg.Provider.Alpaca.WebsocketURL),
				feed.WithCredentials(creds),
			)

			ticks := make(chan market.Tick, 1024)
			feedDone := make(chan error, 1)
			go func() {
				err := src.Run(ctx, ticks)
				close(ticks)
				feedDone <- err
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

			// The engine drains until the bus closes; shutdown below owns
			// the ordering, so it does not watch the signal context.
			engineDone := make(chan error, 1)
			go func() {
				engineDone <- engine.Run(context.Background(), sub)
			}()

			log.Info().Str("provider", cfg.Provider.Use).Strs("symbols", cfg.Provider.Symbols).
				Bool("paper", paper).Str("strategy", strat.Name()).Msg("live engine started")

			<-ctx.Done()
			log.Info().Msg("shutting down")

			// Ingestion first, then the bus, then wait for the engine to
			// finish draining.
			if err := <-feedDone; err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("feed stopped")
			}
			<-pubDone
			b.Close()
			if err := <-engineDone; err != nil {
				log.Error().Err(err).Msg("engine stopped with error")
			}
			if liveRouter != nil && liveRouter.Inflight() > 0 {
				log.Warn().Int("orders", liveRouter.Inflight()).Msg("unresolved in-flight orders at shutdown")
			}

			summary := portfolio.Summary()
			fmt.Printf("Done. cash=%s trades=%d realized_pnl=%s dropped_ticks=%d\n",
				summary.Cash, summary.TradeCount, summary.RealizedPnL, sub.Dropped())
			return nil
		},
	}

	cmd.Flags().BoolVar(&paper, "paper", true, "fill orders against the local ledger instead of the broker")
	return cmd
}
