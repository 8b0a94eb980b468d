package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1000", "1000", true},
		{"1,000", "1000", true},
		{"1,234,567", "1234567", true},
		{"12.5", "12.5", true},
		{" 300 ", "300", true},
		{"¥1,200", "1200", true},
		{"￥980", "980", true},
		{"0", "0", true},
		{"-1", "", false},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"¥", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	for in, want := range map[string]int64{"10.9": 10, "10.1": 10, "0.99": 0, "1234": 1234} {
		d, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got := Truncate(d); got != want {
			t.Errorf("Truncate(%s) = %d, want %d", in, got, want)
		}
	}
}

func TestFormatYen(t *testing.T) {
	cases := map[int64]string{
		0:       "¥0",
		999:     "¥999",
		1000:    "¥1,000",
		1234567: "¥1,234,567",
		-4500:   "-¥4,500",
	}
	for in, want := range cases {
		if got := FormatYen(in); got != want {
			t.Errorf("FormatYen(%d) = %q, want %q", in, got, want)
		}
	}
}
