// Package fixedpoint provides deterministic 18-decimal fixed-point
// arithmetic for fee fractions and winnings splits. Amounts are plain
// int64 unit counts; only fractions carry the 1e18 mantissa.
// All rounding is half-up, never banker's rounding, because fee amounts
// at the unit level depend on it.
package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Scale is the fixed-point mantissa: one whole unit.
const Scale = int64(1_000_000_000_000_000_000)

// MaxAmount is the largest amount the library can represent. Values
// derived from external balances are clamped to it before any
// fixed-point multiplication.
const MaxAmount = int64(math.MaxInt64)

var (
	// ErrOverflow indicates a multiply or divide whose result exceeds
	// the representable range.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrInvalidFraction indicates a malformed or out-of-range fraction.
	ErrInvalidFraction = errors.New("invalid fraction")

	bigScale     = big.NewInt(Scale)
	bigHalfScale = big.NewInt(Scale / 2)
	bigMaxInt64  = big.NewInt(math.MaxInt64)
)

// Fraction is a non-negative ratio with 18 decimal digits of precision.
// The zero value is the fraction 0.
type Fraction int64

// Zero and One are the bounds of a valid fee fraction.
const (
	Zero Fraction = 0
	One  Fraction = Fraction(Scale)
)

// NewFraction builds the fraction part/total rounded half-up.
func NewFraction(part, total int64) (Fraction, error) {
	if part < 0 || total <= 0 {
		return 0, fmt.Errorf("%w: %d/%d", ErrInvalidFraction, part, total)
	}

	// part * Scale may exceed int64, so go through big.Int.
	num := new(big.Int).Mul(big.NewInt(part), bigScale)
	q, r := new(big.Int).QuoRem(num, big.NewInt(total), new(big.Int))

	// Round half-up: bump the quotient when 2*remainder >= total.
	if r.Lsh(r, 1).Cmp(big.NewInt(total)) >= 0 {
		q.Add(q, big.NewInt(1))
	}

	if q.Cmp(bigMaxInt64) > 0 {
		return 0, fmt.Errorf("%w: %d/%d", ErrOverflow, part, total)
	}
	return Fraction(q.Int64()), nil
}

// ParseFraction parses a decimal string such as "0.1" or "0.025" into a
// Fraction. At most 18 fractional digits are accepted.
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidFraction)
	}
	// Reject signs up front: "-0" parses as an unsigned zero, which
	// would let "-0.1" through as positive.
	if s[0] == '-' || s[0] == '+' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFraction, s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return 0, fmt.Errorf("%w: more than 18 fractional digits in %q", ErrInvalidFraction, s)
	}

	// Right-pad the fractional part to 18 digits and parse both halves.
	padded := frac + strings.Repeat("0", 18-len(frac))

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFraction, s)
	}
	f := big.NewInt(0)
	if padded != strings.Repeat("0", 18) {
		f, ok = new(big.Int).SetString(padded, 10)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFraction, s)
		}
	}

	v := new(big.Int).Mul(w, bigScale)
	v.Add(v, f)
	if v.Cmp(bigMaxInt64) > 0 {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return Fraction(v.Int64()), nil
}

// MulAmount multiplies an amount by the fraction, rounding half-up.
func (f Fraction) MulAmount(amount int64) (int64, error) {
	if f < 0 || amount < 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrInvalidFraction)
	}

	num := new(big.Int).Mul(big.NewInt(amount), big.NewInt(int64(f)))
	q, r := new(big.Int).QuoRem(num, bigScale, new(big.Int))
	if r.Cmp(bigHalfScale) >= 0 {
		q.Add(q, big.NewInt(1))
	}

	if q.Cmp(bigMaxInt64) > 0 {
		return 0, fmt.Errorf("%w: %d * %s", ErrOverflow, amount, f)
	}
	return q.Int64(), nil
}

// IsZero reports whether the fraction is exactly zero.
func (f Fraction) IsZero() bool {
	return f == 0
}

// Valid reports whether the fraction lies in [0, 1].
func (f Fraction) Valid() bool {
	return f >= Zero && f <= One
}

// Float64 returns an approximate float representation for logging only.
func (f Fraction) Float64() float64 {
	return float64(f) / float64(Scale)
}

// String renders the fraction as a decimal with trailing zeros trimmed.
func (f Fraction) String() string {
	whole := int64(f) / Scale
	frac := int64(f) % Scale
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%018d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, s)
}

// ClampAmount bounds v into [0, MaxAmount]. Used on the yield delta
// before fee multiplication so a misbehaving balance source cannot
// push the reward math out of range.
func ClampAmount(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
