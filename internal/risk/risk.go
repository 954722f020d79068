// Package risk gates trade signals against static rules before execution.
package risk

import (
	"fmt"
	"strings"

	sig "github.com/williamsryan/OptiTrade/internal/signal"
)

// Rule codes carried by violations so operators can see which check fired.
const (
	RuleQtyPositive   = "QTY_POSITIVE"
	RuleMaxQty        = "MAX_QTY"
	RuleBlockedSymbol = "BLOCKED_SYMBOL"
)

// Violation names the rule a signal failed.
type Violation struct {
	Rule   string
	Detail string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("risk violation %s: %s", v.Rule, v.Detail)
}

// Gate holds the configured limits. It is stateless; a Gate value can be
// shared across goroutines.
type Gate struct {
	// MaxOrderQty rejects signals above this share count. Zero disables
	// the ceiling.
	MaxOrderQty int64
	// BlockedPrefixes rejects symbols matching any of these prefixes.
	BlockedPrefixes []string
}

// Validate returns nil when the signal may proceed to execution.
func (g Gate) Validate(s sig.TradeSignal) *Violation {
	if s.Qty <= 0 {
		return &Violation{Rule: RuleQtyPositive, Detail: fmt.Sprintf("quantity %d must be positive", s.Qty)}
	}
	if g.MaxOrderQty > 0 && s.Qty > g.MaxOrderQty {
		return &Violation{Rule: RuleMaxQty, Detail: fmt.Sprintf("quantity %d exceeds ceiling %d", s.Qty, g.MaxOrderQty)}
	}
	for _, prefix := range g.BlockedPrefixes {
		if prefix != "" && strings.HasPrefix(s.Symbol, prefix) {
			return &Violation{Rule: RuleBlockedSymbol, Detail: fmt.Sprintf("symbol %s matches blocked prefix %s", s.Symbol, prefix)}
		}
	}
	return nil
}
