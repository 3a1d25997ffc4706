// Package money provides a fixed-point currency amount stored as integer
// cents. All invoice arithmetic (line totals, tax, discount) goes through
// this type so that no floating-point accumulation ever reaches a stored
// total; rounding happens exactly once per derived value, half-up to two
// decimal places.
package money

import (
	"fmt"
	"math"
	"strconv"
)

// Amount is a currency value in cents.
type Amount int64

// FromFloat converts a decimal currency value (e.g. a parsed form field)
// to an Amount, rounding half-up to the nearest cent.
func FromFloat(v float64) Amount {
	return Amount(math.Round(v * 100))
}

// FromCents wraps a raw cent count.
func FromCents(c int64) Amount { return Amount(c) }

// Cents returns the raw cent count.
func (a Amount) Cents() int64 { return int64(a) }

// Float64 returns the amount as a decimal currency value.
func (a Amount) Float64() float64 { return float64(a) / 100 }

// Mul multiplies the amount by an integer quantity.
func (a Amount) Mul(qty int64) Amount { return Amount(int64(a) * qty) }

// MulRate applies a fractional rate (e.g. 0.08 for an 8% tax) and rounds
// the result half-up to the nearest cent.
func (a Amount) MulRate(rate float64) Amount {
	return Amount(math.Round(float64(a) * rate))
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// ClampZero floors the amount at zero. Totals are never negative.
func (a Amount) ClampZero() Amount {
	if a < 0 {
		return 0
	}
	return a
}

// String renders the amount with two decimal places.
func (a Amount) String() string {
	return fmt.Sprintf("%.2f", a.Float64())
}

// MarshalJSON renders the amount as a JSON number with two decimal places.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number (or numeric string) and rounds it to
// cents.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	*a = FromFloat(v)
	return nil
}
