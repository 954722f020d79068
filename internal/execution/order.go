// Package execution handles order lifecycle and interaction with venues.
package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

var (
	// ErrInvalidTransition reports an illegal order state change. Hitting it
	// is a programming error, not a business outcome.
	ErrInvalidTransition = errors.New("execution: invalid order state transition")
	// ErrOrderNotFound is returned by Cancel when no matching in-flight
	// order exists. Callers treat it as a no-op, not a pipeline failure.
	ErrOrderNotFound = errors.New("execution: order not found")
)

// State is an order's lifecycle stage.
type State string

const (
	StateCreated          State = "CREATED"
	StateSubmitted        State = "SUBMITTED"
	StateFilled           State = "FILLED"
	StateRejected         State = "REJECTED"
	StateCanceledByCaller State = "CANCELED_BY_CALLER"
	StateCanceledByVenue  State = "CANCELED_BY_VENUE"
)

var transitions = map[State][]State{
	StateCreated:   {StateSubmitted, StateRejected},
	StateSubmitted: {StateFilled, StateRejected, StateCanceledByCaller, StateCanceledByVenue},
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool { return len(transitions[s]) == 0 }

// Order is a placement request moving through the lifecycle. It is owned by
// the router that created it; other components read it once it settles.
type Order struct {
	// ID is the client-side identifier, assigned at creation.
	ID string
	// BrokerID is assigned by the venue on acceptance; empty before that.
	BrokerID  string
	Symbol    string
	Qty       int64
	Side      sig.Side
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder builds a Created order from an accepted signal.
func NewOrder(s sig.TradeSignal, now time.Time) *Order {
	return &Order{
		ID:        uuid.NewString(),
		Symbol:    s.Symbol,
		Qty:       s.Qty,
		Side:      s.Side,
		State:     StateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the order to the target state, rejecting illegal changes.
func (o *Order) Transition(to State, now time.Time) error {
	for _, allowed := range transitions[o.State] {
		if allowed == to {
			o.State = to
			o.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.State, to)
}
