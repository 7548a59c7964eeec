package simulation

import "github.com/shopspring/decimal"

// FitsScale reports whether d has at most frac fractional digits once
// trailing zeros are dropped. It never rescales d by its raw exponent, so
// inputs like 1e-2000000 are rejected in constant time.
func FitsScale(d decimal.Decimal, frac int32) bool {
	if d.IsZero() || d.Exponent() >= -frac {
		return true
	}
	// trailing zeros of the coefficient can absorb at most NumDigits places
	if int64(-d.Exponent()) > int64(frac)+int64(d.NumDigits()) {
		return false
	}
	return d.Equal(d.Truncate(frac))
}

// WithinMagnitude reports whether |d| <= limit. Callers check FitsScale
// first so the comparison never rescales to a huge negative exponent.
func WithinMagnitude(d, limit decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	digits := int64(d.NumDigits()) + int64(d.Exponent())
	limitDigits := int64(limit.NumDigits()) + int64(limit.Exponent())
	if digits > limitDigits {
		return false
	}
	return !d.Abs().GreaterThan(limit)
}

// Canonical returns d held to frac fractional digits. d must fit the scale.
func Canonical(d decimal.Decimal, frac int32) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return d.Round(frac)
}
