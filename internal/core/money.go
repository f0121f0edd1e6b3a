// Package core provides money parsing and handling utilities.
//
// Amounts travel through the domain as decimal.Decimal and are persisted as
// integer minor units (cents) so that store-side SUM aggregation stays exact.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount with two fractional digits.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Negative values and non-numeric
// input are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
//	ParseAmount("12.344") -> 12.34, nil (rounds down)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrValidation)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, fmt.Errorf("%w: amount must be unsigned", ErrValidation)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects negative amounts, amounts with sub-cent precision and
// amounts too large to be stored as cents.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	}
	if !d.Equal(d.Truncate(2)) {
		return fmt.Errorf("%w: amount has more than 2 decimal places", ErrValidation)
	}
	if d.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: amount too large", ErrValidation)
	}
	return nil
}

// maxAmount keeps cents well inside int64 even when summed over many rows.
var maxAmount = decimal.New(1, 13)

// ToCents converts an amount to integer minor units.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts integer minor units back to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount with exactly two fractional digits for messages.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
