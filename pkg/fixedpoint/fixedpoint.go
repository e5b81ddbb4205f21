// Package fixedpoint implements the canonical scale-18 decimal domain that
// every pool, tick, and swap-state numeric field lives in.
package fixedpoint

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the canonical number of fractional digits every FixedPoint value
// is reduced to by F18.
const Scale = 18

// FixedPoint is an arbitrary-precision decimal value. The zero value is 0.
type FixedPoint struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = FixedPoint{d: decimal.Zero}

// One is the multiplicative identity.
var One = FixedPoint{d: decimal.NewFromInt(1)}

// FromInt64 builds a FixedPoint from an integer.
func FromInt64(v int64) FixedPoint {
	return FixedPoint{d: decimal.NewFromInt(v)}
}

// FromString parses a canonical decimal string. It never rounds what it
// parses; rounding only ever happens through F18.
func FromString(s string) (FixedPoint, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse fixed-point %q: %w", s, err)
	}
	return FixedPoint{d: d}, nil
}

// MustFromString is FromString but panics on a malformed literal; reserved
// for package-level constants built from known-good strings.
func MustFromString(s string) FixedPoint {
	v, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the value at full precision.
func (f FixedPoint) String() string {
	return f.d.String()
}

// Decimal exposes the underlying decimal.Decimal for packages (tickmath)
// that need to round-trip through big.Int-based lookup tables.
func (f FixedPoint) Decimal() decimal.Decimal {
	return f.d
}

// FromDecimal wraps an already-computed decimal.Decimal.
func FromDecimal(d decimal.Decimal) FixedPoint {
	return FixedPoint{d: d}
}

func (f FixedPoint) Add(g FixedPoint) FixedPoint { return FixedPoint{d: f.d.Add(g.d)} }
func (f FixedPoint) Sub(g FixedPoint) FixedPoint { return FixedPoint{d: f.d.Sub(g.d)} }
func (f FixedPoint) Mul(g FixedPoint) FixedPoint { return FixedPoint{d: f.d.Mul(g.d)} }

// Div divides f by g at extended precision (16 fractional digits of
// headroom above Scale) so that a subsequent F18 truncation absorbs the
// division's trailing digits deterministically rather than losing them to
// an intermediate rounding mode.
func (f FixedPoint) Div(g FixedPoint) FixedPoint {
	return FixedPoint{d: f.d.DivRound(g.d, Scale+16)}
}

func (f FixedPoint) Neg() FixedPoint { return FixedPoint{d: f.d.Neg()} }

func (f FixedPoint) Cmp(g FixedPoint) int   { return f.d.Cmp(g.d) }
func (f FixedPoint) Equal(g FixedPoint) bool { return f.d.Equal(g.d) }
func (f FixedPoint) GT(g FixedPoint) bool   { return f.d.GreaterThan(g.d) }
func (f FixedPoint) GTE(g FixedPoint) bool  { return f.d.GreaterThanOrEqual(g.d) }
func (f FixedPoint) LT(g FixedPoint) bool   { return f.d.LessThan(g.d) }
func (f FixedPoint) LTE(g FixedPoint) bool  { return f.d.LessThanOrEqual(g.d) }
func (f FixedPoint) IsZero() bool           { return f.d.IsZero() }
func (f FixedPoint) IsNegative() bool       { return f.d.IsNegative() }
func (f FixedPoint) IsPositive() bool       { return f.d.IsPositive() }

// Min and Max are plain value comparisons, used by the swap engine's
// target-price clamp.
func Min(a, b FixedPoint) FixedPoint {
	if a.LTE(b) {
		return a
	}
	return b
}

func Max(a, b FixedPoint) FixedPoint {
	if a.GTE(b) {
		return a
	}
	return b
}

// F18 truncates (round-toward-zero, never banker's rounding) to the
// canonical 18 fractional digits. Every comparison of a remaining-amount
// against zero in the swap engine passes through F18 first, to absorb
// trailing dust left behind by Div.
func (f FixedPoint) F18() FixedPoint {
	return FixedPoint{d: f.d.Truncate(Scale)}
}
