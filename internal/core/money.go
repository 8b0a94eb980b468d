// Package core provides money parsing and handling utilities.
//
// Amounts are kept as decimals from the moment they leave a cell until a
// total is reported, where they are truncated to whole units.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPrefixes = []string{"¥", "￥", "$", "€"}

// ParseAmount converts a cell string to a non-negative decimal.
//
// Thousands separators (",") and a leading currency sign are stripped.
// Negative, empty, or non-numeric input returns an error.
//
// Examples:
//
//	ParseAmount("1,000")   -> 1000, nil
//	ParseAmount("¥1,200")  -> 1200, nil
//	ParseAmount("12.5")    -> 12.5, nil
//	ParseAmount("-3")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	for _, p := range currencyPrefixes {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Truncate returns the integer part of d, dropping the fraction toward zero.
func Truncate(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

// FormatYen renders a whole amount with thousands separators, e.g. "¥12,345".
func FormatYen(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := decimal.NewFromInt(n).String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-¥" + b.String()
	}
	return "¥" + b.String()
}
