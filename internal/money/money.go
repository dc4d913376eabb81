// Package money holds the fixed-point currency helpers shared by pricing,
// shipping and order reconciliation.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a currency value in major units (e.g. 121.00 EUR).
type Amount = decimal.Decimal

var (
	// Zero is the zero amount.
	Zero = decimal.Zero
	// Tolerance is the maximum difference two independently rounded amounts may have
	// and still be considered equal.
	Tolerance = decimal.New(1, -2)

	hundred = decimal.NewFromInt(100)
)

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v Amount) Amount {
	return v.Round(2)
}

// WithVAT applies a percentage VAT rate to an ex-VAT amount. Rounding happens once,
// after the multiplication.
func WithVAT(exVAT Amount, ratePercent decimal.Decimal) Amount {
	factor := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	return Round2(exVAT.Mul(factor))
}

// Mul multiplies a unit amount by a quantity and rounds the result.
func Mul(unit Amount, qty int) Amount {
	return Round2(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b Amount) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Parse reads a decimal amount such as "145.20".
func Parse(value string) (Amount, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Zero, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return v, nil
}

// MustParse is Parse for constants and tests.
func MustParse(value string) Amount {
	v, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return v
}
