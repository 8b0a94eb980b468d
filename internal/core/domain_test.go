package core

import (
	"errors"
	"testing"
)

func TestRawRowArchiveCells(t *testing.T) {
	tests := []struct {
		name    string
		row     RawRow
		want    RawRow
		wantErr error
	}{
		{"full row", RawRow{"2024-06-01", "1000", "Alice"}, RawRow{"2024-06-01", "1000", "Alice"}, nil},
		{"payer defaults to empty", RawRow{"2024-06-03", "500"}, RawRow{"2024-06-03", "500", ""}, nil},
		{"cells are trimmed", RawRow{" 2024-06-03 ", " 500 ", " Bob "}, RawRow{"2024-06-03", "500", "Bob"}, nil},
		{"extra cells dropped", RawRow{"2024-06-03", "500", "Bob", "note"}, RawRow{"2024-06-03", "500", "Bob"}, nil},
		{"empty amount", RawRow{"2024-06-02", "", ""}, nil, ErrEmptyAmount},
		{"blank date", RawRow{"  ", "100"}, nil, ErrEmptyDate},
		{"single cell", RawRow{"2024-06-02"}, nil, ErrShortRow},
		{"empty row", RawRow{}, nil, ErrShortRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.row.ArchiveCells()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ArchiveCells() error = %v, want %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ArchiveCells() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("cell %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDataRows(t *testing.T) {
	if got := DataRows(nil); got != nil {
		t.Errorf("DataRows(nil) = %v, want nil", got)
	}
	if got := DataRows([]RawRow{ArchiveHeader}); got != nil {
		t.Errorf("DataRows(header only) = %v, want nil", got)
	}
	rows := []RawRow{ArchiveHeader, {"2024-06-01", "1"}, {"2024-06-02", "2"}}
	if got := DataRows(rows); len(got) != 2 || got[0][1] != "1" {
		t.Errorf("DataRows() = %v", got)
	}
}

func TestRawRowCell(t *testing.T) {
	r := RawRow{" a ", "b"}
	if r.Cell(0) != "a" || r.Cell(1) != "b" || r.Cell(2) != "" || r.Cell(-1) != "" {
		t.Fatalf("unexpected cells: %q %q %q", r.Cell(0), r.Cell(1), r.Cell(2))
	}
}
