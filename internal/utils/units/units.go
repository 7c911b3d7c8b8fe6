// internal/utils/units/units.go
package units

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// ToDecimal converts a base-unit amount to display units with the given decimals.
func ToDecimal(amount fixedpoint.Amount, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(amount.Big(), -int32(decimals))
}

// FromDecimal converts display units back to base units. Amounts finer than
// one base unit and negative amounts are rejected.
func FromDecimal(d decimal.Decimal, decimals uint8) (fixedpoint.Amount, error) {
	if d.IsNegative() {
		return fixedpoint.Amount{}, fmt.Errorf("%w: negative amount %s", fixedpoint.ErrInvalidAmount, d)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return fixedpoint.Amount{}, fmt.Errorf("%w: %s has more than %d decimals", fixedpoint.ErrInvalidAmount, d, decimals)
	}
	return fixedpoint.FromBig(scaled.BigInt())
}

// Parse reads a display amount such as "1.5".
func Parse(s string, decimals uint8) (fixedpoint.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w %q: %v", fixedpoint.ErrInvalidAmount, s, err)
	}
	return FromDecimal(d, decimals)
}

// Format renders amount with all decimals, e.g. "0.500000000000000000".
func Format(amount fixedpoint.Amount, decimals uint8) string {
	return ToDecimal(amount, decimals).StringFixed(int32(decimals))
}

// Float64 is a lossy conversion for gauges and counters.
func Float64(amount fixedpoint.Amount, decimals uint8) float64 {
	f, _ := ToDecimal(amount, decimals).Float64()
	return f
}
