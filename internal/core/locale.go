package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// germanDateLayout accepts one- or two-digit day and month.
const germanDateLayout = "2.1.2006"

// ParseGermanDate parses "DD.MM.YYYY". Blank input is absent (ok=false, nil
// error); anything else that does not parse fails with ErrUnparsable.
func ParseGermanDate(s string) (Date, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false, nil
	}
	t, err := time.Parse(germanDateLayout, s)
	if err != nil {
		return Date{}, false, fmt.Errorf("date %q: %w", s, ErrUnparsable)
	}
	return Date{Time: t}, true, nil
}

// ParseGermanDecimal parses amounts written as "1.234,56". All dots are
// dropped and the comma becomes the decimal point.
func ParseGermanDecimal(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}
	normalized := strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decimal %q: %w", s, ErrUnparsable)
	}
	return d, true, nil
}
