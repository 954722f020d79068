package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/williamsryan/OptiTrade/internal/config"
	"github.com/williamsryan/OptiTrade/internal/journal"
	"github.com/williamsryan/OptiTrade/internal/risk"

	"github.com/rs/zerolog"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           "optitrade",
		Short:         "Tick pipeline with strategy signals, risk gating, and order routing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config")

	root.AddCommand(
		newLiveCmd(&cfgPath),
		newBacktestCmd(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildGate(cfg *config.Config) risk.Gate {
	return risk.Gate{
		MaxOrderQty:     cfg.Risk.MaxOrderQty,
		BlockedPrefixes: cfg.Risk.BlockedPrefixes,
	}
}

// buildJournal returns nil when journaling is disabled.
func buildJournal(cfg *config.Config, log zerolog.Logger) (journal.TradeWriter, error) {
	switch cfg.Journal.Mode {
	case "", "none":
		return nil, nil
	case "jsonl":
		return journal.NewJSONLWriter(cfg.Journal.Path)
	case "sqlite":
		return journal.OpenSQLite(cfg.Journal.Path)
	case "memory":
		return journal.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown journal mode %q", cfg.Journal.Mode)
	}
}
