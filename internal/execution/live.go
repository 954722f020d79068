package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamsryan/OptiTrade/internal/metrics"
	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// FillFunc is invoked when a live order settles as Filled. Live mode hands
// fills to a reconciliation sink (journal, downstream ledger) this way.
type FillFunc func(order *Order, price float64)

// LiveRouter places orders through a broker Backend and tracks them until
// the venue reports a terminal state.
type LiveRouter struct {
	backend Backend
	log     zerolog.Logger
	onFill  FillFunc

	mu       sync.Mutex
	inflight []*Order
}

// NewLiveRouter wires a backend and an optional fill callback.
func NewLiveRouter(backend Backend, log zerolog.Logger, onFill FillFunc) *LiveRouter {
	return &LiveRouter{backend: backend, log: log, onFill: onFill}
}

// Submit places the order. A backend error settles the order as Rejected and
// is reported to the caller; the router never retries.
func (r *LiveRouter) Submit(ctx context.Context, s sig.TradeSignal) (*Order, error) {
	now := time.Now()
	order := NewOrder(s, now)

	ack, err := r.backend.Place(ctx, s.Symbol, s.Qty, s.Side)
	if err != nil {
		_ = order.Transition(StateRejected, time.Now())
		r.log.Warn().Str("sym", s.Symbol).Str("side", string(s.Side)).Err(err).Msg("venue rejected order")
		return order, fmt.Errorf("place order: %w", err)
	}

	order.BrokerID = ack.BrokerID
	if err := order.Transition(StateSubmitted, time.Now()); err != nil {
		return order, err
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	r.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).
		Int64("qty", order.Qty).Str("broker_id", order.BrokerID).Msg("order submitted")

	r.mu.Lock()
	r.inflight = append(r.inflight, order)
	r.mu.Unlock()
	return order, nil
}

// Cancel pulls the oldest in-flight order for the symbol through the
// backend. No match reports ErrOrderNotFound.
func (r *LiveRouter) Cancel(ctx context.Context, symbol string) (*Order, error) {
	r.mu.Lock()
	var order *Order
	for _, o := range r.inflight {
		if o.Symbol == symbol && o.State == StateSubmitted {
			order = o
			break
		}
	}
	r.mu.Unlock()
	if order == nil {
		return nil, fmt.Errorf("%w: no in-flight order for %s", ErrOrderNotFound, symbol)
	}

	if err := r.backend.Cancel(ctx, order.BrokerID); err != nil {
		return order, fmt.Errorf("cancel order %s: %w", order.BrokerID, err)
	}
	if err := r.settle(order.BrokerID, StateCanceledByCaller); err != nil {
		return order, err
	}
	r.log.Info().Str("sym", symbol).Str("broker_id", order.BrokerID).Msg("order canceled")
	return order, nil
}

// HandleFill applies an asynchronous fill confirmation from the venue.
func (r *LiveRouter) HandleFill(brokerID string, price float64) (*Order, error) {
	order, err := r.settleByID(brokerID, StateFilled)
	if err != nil {
		return nil, err
	}
	metrics.FillsTotal.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	if r.onFill != nil {
		r.onFill(order, price)
	}
	return order, nil
}

// HandleVenueCancel applies a venue-side cancellation.
func (r *LiveRouter) HandleVenueCancel(brokerID string) (*Order, error) {
	return r.settleByID(brokerID, StateCanceledByVenue)
}

// HandleReject applies a venue-side rejection of a submitted order.
func (r *LiveRouter) HandleReject(brokerID string) (*Order, error) {
	return r.settleByID(brokerID, StateRejected)
}

// Inflight returns the number of unresolved orders, for shutdown draining.
func (r *LiveRouter) Inflight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

func (r *LiveRouter) settleByID(brokerID string, to State) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.inflight {
		if o.BrokerID == brokerID {
			if err := o.Transition(to, time.Now()); err != nil {
				return o, err
			}
			r.inflight = append(r.inflight[:i], r.inflight[i+1:]...)
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: broker id %s", ErrOrderNotFound, brokerID)
}

func (r *LiveRouter) settle(brokerID string, to State) error {
	_, err := r.settleByID(brokerID, to)
	return err
}
