// Package money implements decimal-string arithmetic for monetary amounts.
// Amounts travel through the system as strings and are only materialized as
// decimals at computation boundaries. All results carry two fractional digits.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Zero is the canonical empty amount.
const Zero = "0.00"

const places = 2

// Parse converts a decimal string into a decimal value, rejecting
// unparseable and negative input.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %q", value)
	}
	return d, nil
}

// Format renders a decimal with exactly two fractional digits, rounding
// half up.
func Format(d decimal.Decimal) string {
	return d.Round(places).StringFixed(places)
}

// Multiply computes unitPrice * quantity rounded to two places.
func Multiply(unitPrice string, quantity int) (string, error) {
	if quantity < 0 {
		return "", fmt.Errorf("negative quantity %d", quantity)
	}
	price, err := Parse(unitPrice)
	if err != nil {
		return "", err
	}
	return Format(price.Mul(decimal.NewFromInt(int64(quantity)))), nil
}

// Add sums a list of amounts rounded to two places. An empty list yields Zero.
func Add(values ...string) (string, error) {
	sum := decimal.Zero
	for _, value := range values {
		d, err := Parse(value)
		if err != nil {
			return "", err
		}
		sum = sum.Add(d)
	}
	return Format(sum), nil
}

// Equal reports whether two amounts represent the same value, ignoring
// formatting differences such as trailing zeros.
func Equal(a, b string) (bool, error) {
	da, err := Parse(a)
	if err != nil {
		return false, err
	}
	db, err := Parse(b)
	if err != nil {
		return false, err
	}
	return da.Equal(db), nil
}
