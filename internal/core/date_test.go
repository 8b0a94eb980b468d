package core

import (
	"errors"
	"testing"
	"time"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"iso", "2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
		{"iso without padding", "2024-6-1", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
		{"slashes", "2024/06/01", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
		{"slashes without padding", "2024/6/1", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
		{"with time", "2024-06-01 13:45:00", time.Date(2024, 6, 1, 13, 45, 0, 0, jst)},
		{"sheets datetime", "2024/6/1 9:05:00", time.Date(2024, 6, 1, 9, 5, 0, 0, jst)},
		{"japanese", "2024年6月1日", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
		{"us", "06/01/2024", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
		{"rfc3339 keeps zone", "2024-05-31T20:00:00Z", time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC)},
		{"surrounding spaces", "  2024-06-01 ", time.Date(2024, 6, 1, 0, 0, 0, 0, jst)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, jst)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDateErrors(t *testing.T) {
	if _, err := ParseDate("", jst); !errors.Is(err, ErrEmptyDate) {
		t.Errorf("empty: got %v, want ErrEmptyDate", err)
	}
	for _, in := range []string{"yesterday", "2024-13-01", "2024-06", "06/2024"} {
		if _, err := ParseDate(in, jst); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestParseDateNilLocationIsUTC(t *testing.T) {
	got, err := ParseDate("2024-06-01", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}

func TestParseExpenseRow(t *testing.T) {
	e, err := ParseExpenseRow(RawRow{"2024-06-01", "1,000", "Alice"}, jst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Amount.IntPart() != 1000 || e.Payer != "Alice" || e.Date.Day() != 1 {
		t.Errorf("unexpected row: %+v", e)
	}

	if _, err := ParseExpenseRow(RawRow{"2024-06-01"}, jst); !errors.Is(err, ErrShortRow) {
		t.Errorf("short row error = %v", err)
	}
	if _, err := ParseExpenseRow(RawRow{"bad", "1"}, jst); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad date error = %v", err)
	}
	if _, err := ParseExpenseRow(RawRow{"2024-06-01", "x"}, jst); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("bad amount error = %v", err)
	}
}
