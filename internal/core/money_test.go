package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"1", 100},
		{"1.23", 123},
		{"-12.50", -1250},
		{"0.01", 1},
		{"1.005", 101}, // half away from zero
		{"-1.005", -101},
		{"1234.56", 123456},
	}
	for _, tc := range cases {
		if got := ToCents(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("%q expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestFromCentsRoundTrip(t *testing.T) {
	for _, c := range []int64{0, 1, -1, 1250, -99999} {
		if got := ToCents(FromCents(c)); got != c {
			t.Fatalf("round trip %d -> %d", c, got)
		}
	}
	if CentsPtr(nil) != nil || DecimalPtr(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestFormatEuros(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "0,00 €"},
		{"12.5", "12,50 €"},
		{"-1234.56", "-1.234,56 €"},
		{"1234567.8", "1.234.567,80 €"},
	}
	for _, tc := range cases {
		if got := FormatEuros(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("%s expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
