// Package core provides money parsing and handling utilities.
//
// This file contains the conversions between decimal amounts and the integer
// cents the storage layer persists, plus German-style formatting for output.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SplitTolerance is the largest accepted difference between a split's parts
// and the original amount.
var SplitTolerance = decimal.New(1, -2)

// ToCents converts an amount to cents, rounding half away from zero.
//
// Examples:
//
//	ToCents(12.34)  -> 1234
//	ToCents(-12.5)  -> -1250
//	ToCents(1.005)  -> 101
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts cents back to a two-place decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsPtr is ToCents for optional amounts.
func CentsPtr(d *decimal.Decimal) *int64 {
	if d == nil {
		return nil
	}
	c := ToCents(*d)
	return &c
}

// DecimalPtr is FromCents for optional amounts.
func DecimalPtr(cents *int64) *decimal.Decimal {
	if cents == nil {
		return nil
	}
	d := FromCents(*cents)
	return &d
}

// FormatEuros formats an amount the German way, e.g. "-1.234,56 €".
func FormatEuros(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac + " €"
	if neg {
		return "-" + out
	}
	return out
}
