// Package types provides common type aliases and utilities.
package types

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// DefaultScale is the number of fractional digits for most currencies.
const DefaultScale int32 = 2

// threeDecimalCurrencies use fils/baisa (1/1000) as the minor unit.
var threeDecimalCurrencies = map[string]struct{}{
	"BHD": {},
	"KWD": {},
	"OMR": {},
}

// ScaleFor returns the rounding scale for an ISO 4217 currency code.
func ScaleFor(currency string) int32 {
	if _, ok := threeDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return 3
	}
	return DefaultScale
}

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// SafeMoney converts a float to Money, mapping NaN, ±Inf and negatives to zero.
func SafeMoney(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round rounds half away from zero at the given scale.
func Round(m Money, scale int32) Money {
	return m.Round(scale)
}

// NonNegative clamps negative values to zero.
func NonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// Clamp bounds m to [lo, hi].
func Clamp(m, lo, hi Money) Money {
	if m.LessThan(lo) {
		return lo
	}
	if m.GreaterThan(hi) {
		return hi
	}
	return m
}

// Sum adds values without rounding.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
