// =============================
// File: internal/curve/curve.go
// =============================
package curve

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// BasisPoints is the denominator of FeeBps.
const BasisPoints = 10000

var (
	// ErrOutOfRange is returned for a zero amount or an interval leaving [0, Cap].
	ErrOutOfRange = errors.New("supply interval out of range")
	// ErrInvalidParams is returned by Validate.
	ErrInvalidParams = errors.New("invalid curve parameters")
	// ErrGoalUnreachable is returned when the whole curve cannot raise the goal.
	ErrGoalUnreachable = errors.New("funding goal unreachable within curve cap")
)

// Direction selects which side of the current supply a trade integrates over.
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "buy" or "sell".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Params describe the quadratic curve price(s) = BasePrice + SlopeNumerator*s^2/SlopeDenominator.
// Supply is counted in whole token units, prices in the smallest currency unit.
type Params struct {
	BasePrice        fixedpoint.Amount `json:"base_price"`
	SlopeNumerator   fixedpoint.Amount `json:"slope_numerator"`
	SlopeDenominator fixedpoint.Amount `json:"slope_denominator"`
	FeeBps           uint32            `json:"fee_bps"`
	Cap              fixedpoint.Amount `json:"curve_cap"`
}

// Cost is the result of integrating the curve over one trade.
type Cost struct {
	// Gross is the exact curve integral over the traded interval.
	Gross fixedpoint.Amount `json:"gross"`
	Fee   fixedpoint.Amount `json:"fee"`
}

// Charge is what a buyer pays: the integral plus the fee on top.
func (c Cost) Charge() (fixedpoint.Amount, error) {
	return fixedpoint.Add(c.Gross, c.Fee)
}

// Payout is what a seller receives: the integral minus the fee.
func (c Cost) Payout() (fixedpoint.Amount, error) {
	return fixedpoint.Sub(c.Gross, c.Fee)
}

// Validate checks the parameters and that the antiderivative at Cap is
// representable, so no in-range trade can overflow later.
func (p Params) Validate() error {
	if p.SlopeDenominator.IsZero() {
		return fmt.Errorf("%w: slope denominator is zero", ErrInvalidParams)
	}
	if p.Cap.IsZero() {
		return fmt.Errorf("%w: curve cap is zero", ErrInvalidParams)
	}
	if p.FeeBps >= BasisPoints {
		return fmt.Errorf("%w: fee %d bps must be below %d", ErrInvalidParams, p.FeeBps, BasisPoints)
	}
	top, err := p.Antiderivative(p.Cap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if _, err := p.Fee(top); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// CheckGoal verifies that the goal can be hit: the first unit must fit under
// it and the full curve must raise strictly more than it, so a pool reserve
// always remains at graduation.
func (p Params) CheckGoal(goal fixedpoint.Amount) error {
	if goal.IsZero() {
		return fmt.Errorf("%w: goal is zero", ErrGoalUnreachable)
	}
	top, err := p.Antiderivative(p.Cap)
	if err != nil {
		return err
	}
	if !top.GreaterThan(goal) {
		return fmt.Errorf("%w: curve raises %s, goal %s", ErrGoalUnreachable, top, goal)
	}
	first, err := p.Integral(fixedpoint.Zero(), fixedpoint.FromUint64(1))
	if err != nil {
		return err
	}
	if first.GreaterThan(goal) {
		return fmt.Errorf("%w: first unit costs %s", ErrGoalUnreachable, first)
	}
	return nil
}

// PriceAt returns the instantaneous unit price at supply s.
func (p Params) PriceAt(s fixedpoint.Amount) (fixedpoint.Amount, error) {
	if s.GreaterThan(p.Cap) {
		return fixedpoint.Amount{}, fmt.Errorf("%w: supply %s above cap %s", ErrOutOfRange, s, p.Cap)
	}
	sq, err := fixedpoint.Pow2(s)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	slope, err := fixedpoint.MulDiv(p.SlopeNumerator, sq, p.SlopeDenominator)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return fixedpoint.Add(p.BasePrice, slope)
}

// Antiderivative evaluates F(s) = BasePrice*s + floor(SlopeNumerator*s^3 / (3*SlopeDenominator)).
// Integrals are differences of F, so adjacent intervals add up exactly.
func (p Params) Antiderivative(s fixedpoint.Amount) (fixedpoint.Amount, error) {
	one := fixedpoint.FromUint64(1)

	linear, err := fixedpoint.MulDiv(p.BasePrice, s, one)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	sq, err := fixedpoint.Pow2(s)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	cube, err := fixedpoint.MulDiv(sq, s, one)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	den, err := fixedpoint.MulDiv(p.SlopeDenominator, fixedpoint.FromUint64(3), one)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	cubic, err := fixedpoint.MulDiv(p.SlopeNumerator, cube, den)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return fixedpoint.Add(linear, cubic)
}

// Integral returns F(b) - F(a) for a <= b <= Cap.
func (p Params) Integral(a, b fixedpoint.Amount) (fixedpoint.Amount, error) {
	if a.GreaterThan(b) || b.GreaterThan(p.Cap) {
		return fixedpoint.Amount{}, fmt.Errorf("%w: [%s, %s] cap %s", ErrOutOfRange, a, b, p.Cap)
	}
	fb, err := p.Antiderivative(b)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	fa, err := p.Antiderivative(a)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return fixedpoint.Sub(fb, fa)
}

// Fee returns floor(gross * FeeBps / 10000).
func (p Params) Fee(gross fixedpoint.Amount) (fixedpoint.Amount, error) {
	return fixedpoint.MulDiv(gross, fixedpoint.FromUint64(uint64(p.FeeBps)), fixedpoint.FromUint64(BasisPoints))
}

// Cost integrates the curve for a trade of amount units starting at supply
// from. A buy covers [from, from+amount]; a sell covers [from-amount, from].
func (p Params) Cost(from, amount fixedpoint.Amount, dir Direction) (Cost, error) {
	if amount.IsZero() {
		return Cost{}, fmt.Errorf("%w: amount must be positive", ErrOutOfRange)
	}
	if from.GreaterThan(p.Cap) {
		return Cost{}, fmt.Errorf("%w: supply %s above cap %s", ErrOutOfRange, from, p.Cap)
	}

	var lo, hi fixedpoint.Amount
	switch dir {
	case Buy:
		end, err := fixedpoint.Add(from, amount)
		if err != nil {
			return Cost{}, fmt.Errorf("%w: %v", ErrOutOfRange, err)
		}
		lo, hi = from, end
	case Sell:
		start, err := fixedpoint.Sub(from, amount)
		if err != nil {
			return Cost{}, fmt.Errorf("%w: selling %s from supply %s", ErrOutOfRange, amount, from)
		}
		lo, hi = start, from
	default:
		return Cost{}, fmt.Errorf("unknown direction %d", int(dir))
	}

	gross, err := p.Integral(lo, hi)
	if err != nil {
		return Cost{}, err
	}
	fee, err := p.Fee(gross)
	if err != nil {
		return Cost{}, err
	}
	return Cost{Gross: gross, Fee: fee}, nil
}

// MaxBuyWithin returns the largest m <= limit such that the integral over
// [from, from+m] does not exceed budget. It returns zero when not even one
// unit fits.
func (p Params) MaxBuyWithin(from, limit, budget fixedpoint.Amount) (fixedpoint.Amount, error) {
	room, err := fixedpoint.Sub(p.Cap, from)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: supply %s above cap %s", ErrOutOfRange, from, p.Cap)
	}
	hi := fixedpoint.Min(limit, room)
	lo := fixedpoint.Zero()
	one := fixedpoint.FromUint64(1)
	two := fixedpoint.FromUint64(2)

	for lo.LessThan(hi) {
		// mid = lo + ceil((hi-lo)/2)
		span, _ := fixedpoint.Sub(hi, lo)
		span, _ = fixedpoint.Add(span, one)
		half, err := fixedpoint.MulDiv(span, one, two)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		mid, err := fixedpoint.Add(lo, half)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		end, err := fixedpoint.Add(from, mid)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		gross, err := p.Integral(from, end)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		if gross.GreaterThan(budget) {
			hi, _ = fixedpoint.Sub(mid, one)
		} else {
			lo = mid
		}
	}
	return lo, nil
}
