// =============================
// File: internal/dex/pumpswap/calculations.go
// =============================
package pumpswap

import (
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// calculateOutput implements the constant product formula
// outputAmount = y * a' / (x + a'), with a' = a * (1 - fee):
// - x - reserves of the input side
// - y - reserves of the output side
// - a - input amount
func calculateOutput(reserves, otherReserves, amount fixedpoint.Amount, feeBps uint32) (fixedpoint.Amount, error) {
	keep := fixedpoint.FromUint64(uint64(curve.BasisPoints - feeBps))
	effective, err := fixedpoint.MulDiv(amount, keep, fixedpoint.FromUint64(curve.BasisPoints))
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	denominator, err := fixedpoint.Add(reserves, effective)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	if denominator.IsZero() {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDiv(otherReserves, effective, denominator)
}

// calculateLPSupply mints sqrt(base * quote) LP tokens for the first deposit.
func calculateLPSupply(base, quote fixedpoint.Amount) (fixedpoint.Amount, error) {
	product, err := fixedpoint.MulDiv(base, quote, fixedpoint.FromUint64(1))
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return fixedpoint.Sqrt(product), nil
}
