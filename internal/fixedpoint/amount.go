// =============================
// File: internal/fixedpoint/amount.go
// =============================
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	// ErrArithmeticOverflow is returned when a result does not fit into 256 bits
	// or a divisor is zero.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("arithmetic underflow")
	// ErrInvalidAmount is returned when a textual amount cannot be parsed.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Amount is an unsigned 256-bit scaled integer. The zero value is 0.
// Amount is a value type: copies never share state.
type Amount struct {
	v uint256.Int
}

// Zero returns 0.
func Zero() Amount { return Amount{} }

// FromUint64 returns an Amount holding n.
func FromUint64(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// FromBig converts a non-negative big.Int. Values wider than 256 bits fail.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative or nil value", ErrInvalidAmount)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, ErrArithmeticOverflow
	}
	return Amount{v: *v}, nil
}

// Parse reads a base-10 integer such as "90000000000000000000000".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w %q: %v", ErrInvalidAmount, s, err)
	}
	return Amount{v: *v}, nil
}

// MustParse is Parse for constants; it panics on malformed input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b or ErrArithmeticOverflow.
func Add(a, b Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrArithmeticOverflow
	}
	return z, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func Sub(a, b Amount) (Amount, error) {
	var z Amount
	if _, underflow := z.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrUnderflow
	}
	return z, nil
}

// MulDiv returns floor(a*b/d). The product is kept at 512 bits, so only the
// final quotient has to fit.
func MulDiv(a, b, d Amount) (Amount, error) {
	if d.v.IsZero() {
		return Amount{}, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	var z Amount
	if _, overflow := z.v.MulDivOverflow(&a.v, &b.v, &d.v); overflow {
		return Amount{}, ErrArithmeticOverflow
	}
	return z, nil
}

// Pow2 returns a*a.
func Pow2(a Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.v.MulOverflow(&a.v, &a.v); overflow {
		return Amount{}, ErrArithmeticOverflow
	}
	return z, nil
}

// Sqrt returns floor(sqrt(a)).
func Sqrt(a Amount) Amount {
	var z Amount
	z.v.Sqrt(&a.v)
	return z
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.Gt(&b.v) }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// Uint64 returns the value when it fits into 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	if !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

// Big returns a fresh big.Int copy of a.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalText encodes the amount as a base-10 string so JSON never loses
// precision.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

// UnmarshalText decodes a base-10 string.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
