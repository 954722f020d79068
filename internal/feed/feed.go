// Package feed hosts connectors for live market data sources.
package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/metrics"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderAlpaca streams live trades from the Alpaca data websocket.
	ProviderAlpaca = "alpaca"
	// ProviderIB names the Interactive Brokers gateway. Bars in its wire
	// format normalize fine, but live gateway ingestion is not wired yet.
	ProviderIB = "ib"
)

// Credentials carries broker API keys, sourced from the environment and
// never from config files.
type Credentials struct {
	Key    string
	Secret string
}

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider     string
	symbols      []string
	log          zerolog.Logger
	websocketURL string
	creds        Credentials
	stubInterval time.Duration
	mu           sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const defaultStubInterval = 500 * time.Millisecond

// WithWebsocketURL overrides the stream endpoint for websocket-based feeds.
func WithWebsocketURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.websocketURL = url
		}
	}
}

// WithCredentials injects broker API keys for authenticated feeds.
func WithCredentials(c Credentials) Option {
	return func(f *Feed) { f.creds = c }
}

// WithStubInterval overrides the synthetic tick cadence.
func WithStubInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		stubInterval: defaultStubInterval,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes normalized ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- market.Tick) error {
	switch f.provider {
	case ProviderAlpaca:
		return f.runAlpaca(ctx, out)
	case ProviderIB:
		return fmt.Errorf("provider %q requires a local gateway and is not wired for live ingestion", f.provider)
	case ProviderStub:
		return f.runStub(ctx, out)
	default:
		return fmt.Errorf("unknown feed provider %q", f.provider)
	}
}

// runStub synthesizes raw trade payloads in the Alpaca wire shape and pushes
// them through the same normalization path the live feed uses.
func (f *Feed) runStub(ctx context.Context, out chan<- market.Tick) error {
	ticker := time.NewTicker(f.stubInterval)
	defer ticker.Stop()

	px := 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			for _, s := range f.snapshotSymbols() {
				raw := fmt.Sprintf(`{"T":"t","S":%q,"p":%.4f,"t":%q}`, s, px, ts.UTC().Format(time.RFC3339Nano))
				tick, err := market.Normalize(market.FormatAlpaca, []byte(raw))
				if err != nil {
					metrics.NormalizeErrorsTotal.Inc()
					f.log.Warn().Err(err).Msg("stub payload failed to normalize")
					continue
				}
				select {
				case out <- tick:
					metrics.TicksTotal.WithLabelValues(s).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
