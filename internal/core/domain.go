package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ArchiveHeader is the fixed header row written when an archive is created.
var ArchiveHeader = RawRow{"date", "amount", "payer"}

type (
	// RawRow is one spreadsheet row as a sequence of cell strings.
	RawRow []string

	// ExpenseRow is a parsed and validated expense entry.
	ExpenseRow struct {
		Date   time.Time
		Amount decimal.Decimal
		Payer  string // optional
	}

	// RejectedRow describes a live-table row dropped during an archive move.
	RejectedRow struct {
		Index  int // 1-based sheet row number, header is row 1
		Cells  RawRow
		Reason string
	}

	// MoveResult is the outcome of moving live rows into the archive.
	MoveResult struct {
		Moved      int
		Rejected   []RejectedRow
		ArchiveRef string
	}
)

var (
	ErrEmptyDate     = errors.New("empty date")
	ErrEmptyAmount   = errors.New("empty amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrShortRow      = errors.New("row has fewer than 2 cells")
)

// Cell returns the trimmed cell at i, or "" when the row is shorter.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// ArchiveCells validates r for archiving and returns the normalized
// (date, amount, payer) triple. Only presence is checked here; parsing is
// left to the aggregation side so the archive keeps the cells as typed.
func (r RawRow) ArchiveCells() (RawRow, error) {
	if len(r) < 2 {
		return nil, ErrShortRow
	}
	date, amount := r.Cell(0), r.Cell(1)
	if date == "" {
		return nil, ErrEmptyDate
	}
	if amount == "" {
		return nil, ErrEmptyAmount
	}
	return RawRow{date, amount, r.Cell(2)}, nil
}

// DataRows drops the header row.
func DataRows(rows []RawRow) []RawRow {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

// ToRows converts a [][]string matrix (as returned by codecs and drivers).
func ToRows(values [][]string) []RawRow {
	out := make([]RawRow, len(values))
	for i, v := range values {
		out[i] = RawRow(v)
	}
	return out
}
