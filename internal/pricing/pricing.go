// Package pricing computes the sellable price of a product variant from its
// base price, discount rule, and tax treatment.
//
// All functions are pure and never fail: unknown discount types behave as no
// discount, and over-large discounts clamp the price at zero rather than
// producing a negative amount. Both the storefront display path and the
// cart-add path use FinalPrice, so a shopper never sees a price that differs
// from what lands in their cart.
package pricing

import (
	"fmt"

	"github.com/davortega/attar/internal/domain"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// FinalPrice returns the unit price a shopper pays for the variant.
//
// The computation, in order:
//  1. apply the discount rule to the base price
//  2. clamp at zero
//  3. gross up by TaxPercent when the base price does not already include tax
//  4. round to 2 decimal places, half away from zero
func FinalPrice(v domain.Variant) decimal.Decimal {
	price := applyDiscount(v)

	if price.IsNegative() {
		price = decimal.Zero
	}

	if !v.TaxIncluded && v.TaxPercent.IsPositive() {
		price = price.Add(price.Mul(v.TaxPercent).Div(oneHundred))
	}

	return price.Round(2)
}

func applyDiscount(v domain.Variant) decimal.Decimal {
	switch v.DiscountType {
	case domain.DiscountPercent:
		return v.Price.Mul(oneHundred.Sub(v.DiscountValue)).Div(oneHundred)
	case domain.DiscountFixed:
		return v.Price.Sub(v.DiscountValue)
	case domain.DiscountSale:
		// The sale value is the final price, replacing the base price entirely.
		return v.DiscountValue
	default:
		return v.Price
	}
}

// DiscountLabel returns the short marketing badge for an active discount,
// e.g. "20%" for a percent discount or "150₹" for a fixed one. Sale pricing
// carries no badge since the discounted price stands on its own. The second
// return value reports whether a label applies.
func DiscountLabel(v domain.Variant, currencySymbol string) (string, bool) {
	switch v.DiscountType {
	case domain.DiscountPercent:
		return fmt.Sprintf("%s%%", v.DiscountValue.String()), true
	case domain.DiscountFixed:
		return fmt.Sprintf("%s%s", v.DiscountValue.String(), currencySymbol), true
	default:
		return "", false
	}
}
