package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// AlpacaBackend places market orders through the Alpaca trading REST API.
type AlpacaBackend struct {
	baseURL string
	key     string
	secret  string
	client  *http.Client
}

// NewAlpacaBackend builds a backend against the given base URL, e.g.
// https://paper-api.alpaca.markets/v2.
func NewAlpacaBackend(baseURL, key, secret string) *AlpacaBackend {
	return &AlpacaBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         int64  `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

type alpacaOrderResponse struct {
	ID string `json:"id"`
}

// Place implements Backend with a market order, good-till-canceled.
func (b *AlpacaBackend) Place(ctx context.Context, symbol string, qty int64, side sig.Side) (OrderAck, error) {
	body, err := json.Marshal(alpacaOrderRequest{
		Symbol:      symbol,
		Qty:         qty,
		Side:        strings.ToLower(string(side)),
		Type:        "market",
		TimeInForce: "gtc",
	})
	if err != nil {
		return OrderAck{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return OrderAck{}, err
	}
	b.setAuth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return OrderAck{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return OrderAck{}, fmt.Errorf("place order: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out alpacaOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return OrderAck{}, fmt.Errorf("decode order response: %w", err)
	}
	if out.ID == "" {
		return OrderAck{}, fmt.Errorf("order response missing id")
	}
	return OrderAck{BrokerID: out.ID}, nil
}

// Cancel implements Backend.
func (b *AlpacaBackend) Cancel(ctx context.Context, brokerID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/orders/"+brokerID, nil)
	if err != nil {
		return err
	}
	b.setAuth(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("cancel order %s: status %d: %s", brokerID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (b *AlpacaBackend) setAuth(req *http.Request) {
	req.Header.Set("APCA-API-KEY-ID", b.key)
	req.Header.Set("APCA-API-SECRET-KEY", b.secret)
}
