package rules

import (
	"strings"

	"finanzen/internal/core"
)

// MatchType selects the transaction field a generated rule matches on.
type MatchType string

const (
	MatchCounterpartName MatchType = "counterpart_name"
	MatchCounterpartIBAN MatchType = "counterpart_iban"
	MatchPurpose         MatchType = "purpose"
	MatchBookingType     MatchType = "booking_type"
)

const (
	ruleNamePrefix     = "Regel: "
	ruleNameRunes      = 30
	purposeNeedleRunes = 20
	unnamedRule        = "Unbenannt"
)

// ParseMatchType validates s. Empty means counterpart name.
func ParseMatchType(s string) (MatchType, error) {
	switch m := MatchType(strings.TrimSpace(s)); m {
	case "":
		return MatchCounterpartName, nil
	case MatchCounterpartName, MatchCounterpartIBAN, MatchPurpose, MatchBookingType:
		return m, nil
	default:
		return "", core.Invalid("match_type", "unsupported match type %q", s)
	}
}

// FromTransaction drafts an active rule with priority 0 that assigns
// categoryID to transactions resembling tx. The criterion is derived from the
// field selected by m; when that field is empty the rule has no criterion.
func FromTransaction(tx core.Transaction, categoryID int64, m MatchType) core.Rule {
	r := core.Rule{
		Name:             ruleName(tx),
		AssignCategoryID: categoryID,
		IsActive:         true,
	}

	switch m {
	case MatchCounterpartName:
		if words := strings.Fields(tx.CounterpartName); len(words) > 0 {
			r.MatchCounterpartName = "%" + words[0] + "%"
		}
	case MatchCounterpartIBAN:
		r.MatchCounterpartIBAN = tx.CounterpartIBAN
	case MatchPurpose:
		if tx.Purpose != "" {
			r.MatchPurpose = "%" + firstRunes(tx.Purpose, purposeNeedleRunes) + "%"
		}
	case MatchBookingType:
		r.MatchBookingType = tx.BookingType
	}
	return r
}

func ruleName(tx core.Transaction) string {
	if tx.CounterpartName != "" {
		return ruleNamePrefix + firstRunes(tx.CounterpartName, ruleNameRunes)
	}
	if tx.BookingType != "" {
		return ruleNamePrefix + tx.BookingType
	}
	return ruleNamePrefix + unnamedRule
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
