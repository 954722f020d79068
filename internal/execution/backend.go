package execution

import (
	"context"

	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// OrderAck is the venue's acceptance of a placement request.
type OrderAck struct {
	BrokerID string
}

// Backend is the broker-side collaborator a live router places orders
// through. Any error is treated as a venue rejection; the router never
// retries on its own.
type Backend interface {
	Place(ctx context.Context, symbol string, qty int64, side sig.Side) (OrderAck, error)
	Cancel(ctx context.Context, brokerID string) error
}
