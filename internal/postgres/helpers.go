package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// parseDecimal converts a numeric column rendered as text back into a
// decimal. Columns are selected with ::text so no float conversion happens
// on the way out of the database.
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse numeric %q: %w", s, err)
	}
	return d, nil
}
