// Package core provides amount parsing and label helpers.
//
// Amounts are kept as decimals end to end; floats only appear at the
// JSON boundary of third-party services.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs are rejected: direction is carried by IsIncome, not by the amount.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,34") -> 12.34, nil
//   ParseAmount("-1")    -> 0, ErrValidation
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "cannot be empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, NewValidationError("amount", "must not carry a sign")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "not a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "must be positive")
	}
	return d, nil
}

var categoryBoundary = regexp.MustCompile(`([a-z])([A-Z0-9])`)

// FormatCategory inserts a space between a lower-case letter and a following
// upper-case letter or digit, so "FoodAndDrinks" becomes "Food And Drinks".
func FormatCategory(category string) string {
	return categoryBoundary.ReplaceAllString(strings.TrimSpace(category), "${1} ${2}")
}
