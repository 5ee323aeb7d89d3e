package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyDivInt(t *testing.T) {
	cases := []struct {
		cents int64
		n     int
		want  int64
	}{
		{90000, 90, 1000}, // exact
		{300000, 15, 20000},
		{100, 3, 33},   // 0.333 -> 0.33
		{101, 2, 51},   // half rounds up
		{-101, 2, -51}, // symmetric for negative amounts
	}
	for _, tc := range cases {
		got := Money{Cents: tc.cents}.DivInt(tc.n)
		if got.Cents != tc.want {
			t.Errorf("DivInt(%d, %d) = %d, want %d", tc.cents, tc.n, got.Cents, tc.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{5, "0.05"},
		{-5, "-0.05"},
		{100, "1.00"},
	}
	for _, tc := range cases {
		if got := FormatCents(tc.cents); got != tc.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
