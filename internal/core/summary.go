package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodTotal is the answer to an aggregate query.
type PeriodTotal struct {
	Period Period
	Total  int64 // truncated toward zero
	Rows   int   // rows that contributed
}

// SumRows sums the amounts of rows whose date lies in p. The first row is a
// header and is skipped. Rows that cannot be parsed are ignored.
func SumRows(rows []RawRow, p Period, loc *time.Location) PeriodTotal {
	return SumExpenses(ParseRows(DataRows(rows), loc), p)
}

// ParseRows parses data rows (no header), silently dropping invalid ones.
func ParseRows(rows []RawRow, loc *time.Location) []ExpenseRow {
	out := make([]ExpenseRow, 0, len(rows))
	for _, r := range rows {
		e, err := ParseExpenseRow(r, loc)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SumExpenses totals typed rows falling in p.
func SumExpenses(rows []ExpenseRow, p Period) PeriodTotal {
	sum := decimal.Zero
	n := 0
	for _, e := range rows {
		if !p.Contains(e.Date) {
			continue
		}
		sum = sum.Add(e.Amount)
		n++
	}
	return PeriodTotal{Period: p, Total: Truncate(sum), Rows: n}
}
