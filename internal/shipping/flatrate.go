// Package shipping quotes the delivery charge applied to a cart.
package shipping

import (
	"github.com/shopspring/decimal"
)

// Provider quotes a shipping charge for a cart subtotal.
type Provider interface {
	// Quote returns the shipping charge for the given cart subtotal.
	Quote(subtotal decimal.Decimal) decimal.Decimal
}

// FlatRateProvider charges a single configured amount per cart, optionally
// waived once the subtotal reaches a free-shipping threshold.
type FlatRateProvider struct {
	amount   decimal.Decimal
	freeOver decimal.Decimal
}

// NewFlatRateProvider creates a flat-rate provider. freeOver of zero disables
// the free-shipping threshold.
func NewFlatRateProvider(amount, freeOver decimal.Decimal) Provider {
	return &FlatRateProvider{amount: amount, freeOver: freeOver}
}

// Quote returns the flat charge, or zero once the subtotal qualifies for free
// shipping. An empty cart still quotes the flat charge; the aggregate's
// totals handle the empty case.
func (p *FlatRateProvider) Quote(subtotal decimal.Decimal) decimal.Decimal {
	if p.freeOver.IsPositive() && subtotal.GreaterThanOrEqual(p.freeOver) {
		return decimal.Zero
	}
	return p.amount
}
