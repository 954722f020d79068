// Package config exposes strongly typed application configuration structs loaded from YAML.
// Secrets such as broker API keys are never read from YAML; they come from the
// environment (see the feed package for the variable names).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Alpaca configures the Alpaca market data stream.
type Alpaca struct {
	BaseURL      string `yaml:"base_url"`
	WebsocketURL string `yaml:"websocket_url"`
}

// IB configures the Interactive Brokers gateway connection.
type IB struct {
	Host     string
	Port     int
	ClientID int `yaml:"client_id"`
}

// Provider selects the market data source and the symbols to subscribe.
type Provider struct {
	Use     string
	Symbols []string
	Alpaca  Alpaca `yaml:"alpaca"`
	IB      IB     `yaml:"ib"`
}

// Bus tunes the tick fan-out layer.
type Bus struct {
	Shards           int    `yaml:"shards"`
	ShardBuffer      int    `yaml:"shard_buffer"`
	SubscriberBuffer int    `yaml:"subscriber_buffer"`
	Mode             string `yaml:"mode"`
}

// StrategyParams groups tunable knobs for a strategy implementation.
type StrategyParams struct {
	Qty        int64 `yaml:"qty"`
	FastPeriod int   `yaml:"fast_period"`
	SlowPeriod int   `yaml:"slow_period"`
}

// Strategy specifies which strategy is active along with the parameter bundle.
type Strategy struct {
	Mode   string
	Params StrategyParams
}

// Risk encodes guard-rails for the orders the router may take on.
type Risk struct {
	MaxOrderQty     int64    `yaml:"max_order_qty"`
	BlockedPrefixes []string `yaml:"blocked_prefixes"`
}

// Portfolio captures the ledger's initial state.
type Portfolio struct {
	StartingCash float64 `yaml:"starting_cash"`
}

// Backtest points a replay run at a historical data source and sets its pacing.
// Exactly one of DBPath and CSVPath should be set.
type Backtest struct {
	DBPath  string `yaml:"db_path"`
	CSVPath string `yaml:"csv_path"`
	Symbol  string
	Start   string
	End     string
	PaceMs  int `yaml:"pace_ms"`
}

// Journal selects a trade journal backend ("jsonl", "sqlite", "memory" or empty to disable).
type Journal struct {
	Mode string
	Path string
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Provider  Provider  `yaml:"provider"`
	Bus       Bus       `yaml:"bus"`
	Strategy  Strategy  `yaml:"strategy"`
	Risk      Risk      `yaml:"risk"`
	Portfolio Portfolio `yaml:"portfolio"`
	Backtest  Backtest  `yaml:"backtest"`
	Journal   Journal   `yaml:"journal"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
