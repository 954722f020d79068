package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"github.com/williamsryan/OptiTrade/internal/market"
	"github.com/williamsryan/OptiTrade/internal/metrics"
)

type alpacaAuth struct {
	Action string `json:"action"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

type alpacaSubscribe struct {
	Action string   `json:"action"`
	Trades []string `json:"trades"`
	Quotes []string `json:"quotes"`
}

func (f *Feed) runAlpaca(ctx context.Context, out chan<- market.Tick) error {
	if f.websocketURL == "" {
		return fmt.Errorf("alpaca feed requires a websocket url")
	}
	if len(f.snapshotSymbols()) == 0 {
		return fmt.Errorf("alpaca feed requires at least one symbol")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeAlpacaStream(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("alpaca feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeAlpacaStream(ctx context.Context, out chan<- market.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.websocketURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	symbols := f.snapshotSymbols()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(alpacaAuth{Action: "auth", Key: f.creds.Key, Secret: f.creds.Secret}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(alpacaSubscribe{Action: "subscribe", Trades: symbols, Quotes: symbols}); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	f.log.Info().Str("provider", ProviderAlpaca).Strs("symbols", symbols).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("alpaca ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		payloads, err := market.SplitEnvelope(message)
		if err != nil {
			metrics.NormalizeErrorsTotal.Inc()
			f.log.Warn().Err(err).Msg("failed to decode alpaca envelope")
			continue
		}
		for _, raw := range payloads {
			if skipPayload(raw) {
				continue
			}
			tick, err := market.Normalize(market.FormatAlpaca, raw)
			if err != nil {
				metrics.NormalizeErrorsTotal.Inc()
				f.log.Warn().Err(err).Msg("dropped malformed alpaca payload")
				continue
			}
			select {
			case out <- tick:
				metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// skipPayload reports whether the payload is a stream lifecycle message
// (auth ack, subscription ack, errors) or a quote update. Quotes are
// subscribed for book context but only trades drive the pipeline.
func skipPayload(raw json.RawMessage) bool {
	var head struct {
		Type string `json:"T"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return false
	}
	switch head.Type {
	case "success", "subscription", "error", "q":
		return true
	}
	return false
}
