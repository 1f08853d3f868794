// Package core holds the domain types shared by storage, HTTP handlers and
// the report builder.
//
// This file contains amount parsing. Amounts are signed decimals in currency
// units: positive = credit/profit, negative = debit/loss.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a form value to a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Zero is a valid amount (a trade with amount 0 is
// neither a win nor a loss but still counts as a trade).
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-12,34") -> -12.34, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
