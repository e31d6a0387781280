package rules

import (
	"sort"

	"finanzen/internal/core"
)

// MatchRule reports whether every populated criterion of rule holds for tx.
// The amount range is inclusive and tested against the absolute amount.
func MatchRule(rule core.Rule, tx core.Transaction) bool {
	if rule.MatchCounterpartName != "" && !MatchPattern(tx.CounterpartName, rule.MatchCounterpartName) {
		return false
	}
	if rule.MatchCounterpartIBAN != "" && tx.CounterpartIBAN != rule.MatchCounterpartIBAN {
		return false
	}
	if rule.MatchPurpose != "" && !MatchPattern(tx.Purpose, rule.MatchPurpose) {
		return false
	}
	if rule.MatchBookingType != "" && !MatchPattern(tx.BookingType, rule.MatchBookingType) {
		return false
	}

	amount := tx.Amount.Abs()
	if rule.MatchAmountMin != nil && amount.LessThan(*rule.MatchAmountMin) {
		return false
	}
	if rule.MatchAmountMax != nil && amount.GreaterThan(*rule.MatchAmountMax) {
		return false
	}
	return true
}

// SortByPriority orders rules by descending priority, then ascending id.
func SortByPriority(rules []core.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// Select returns the first active rule in rules that matches tx. rules must
// already be in priority order.
func Select(rules []core.Rule, tx core.Transaction) (core.Rule, bool) {
	for _, r := range rules {
		if r.IsActive && MatchRule(r, tx) {
			return r, true
		}
	}
	return core.Rule{}, false
}

// Apply categorizes tx with the first matching rule. Categorized
// transactions and split parents are left untouched.
func Apply(rules []core.Rule, tx *core.Transaction) bool {
	if tx.IsCategorized() || tx.IsSplitParent() {
		return false
	}
	r, ok := Select(rules, *tx)
	if !ok {
		return false
	}
	categoryID := r.AssignCategoryID
	tx.CategoryID = &categoryID
	if r.AssignShared {
		tx.IsShared = true
	}
	return true
}
