package core

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. ISO forms come first so that ambiguous
// slash dates prefer year-first interpretation.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02T15:04:05",
	"2006年1月2日",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a cell value into a time in loc.
//
// Values carrying their own offset (RFC 3339) keep it; everything else is
// interpreted as wall-clock time in loc. A nil loc means UTC.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseExpenseRow parses a raw row into a typed expense. The row must have at
// least two cells with a valid date and amount.
func ParseExpenseRow(r RawRow, loc *time.Location) (ExpenseRow, error) {
	if len(r) < 2 {
		return ExpenseRow{}, ErrShortRow
	}
	date, err := ParseDate(r[0], loc)
	if err != nil {
		return ExpenseRow{}, err
	}
	amount, err := ParseAmount(r[1])
	if err != nil {
		return ExpenseRow{}, err
	}
	return ExpenseRow{Date: date, Amount: amount, Payer: r.Cell(2)}, nil
}
