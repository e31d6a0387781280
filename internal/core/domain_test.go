package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeriveImportStatus(t *testing.T) {
	cases := []struct {
		newCount, errCount int
		want               ImportStatus
	}{
		{0, 0, ImportSuccess},
		{5, 0, ImportSuccess},
		{0, 2, ImportFailed},
		{3, 1, ImportPartial},
	}
	for _, tc := range cases {
		if got := DeriveImportStatus(tc.newCount, tc.errCount); got != tc.want {
			t.Fatalf("DeriveImportStatus(%d, %d) = %s, want %s", tc.newCount, tc.errCount, got, tc.want)
		}
	}
}

func TestSplitRoles(t *testing.T) {
	leaf := Transaction{}
	if !leaf.IsLeaf() || leaf.IsSplitParent() {
		t.Fatalf("zero transaction must be a leaf")
	}
	if _, ok := leaf.ParentID(); ok {
		t.Fatalf("leaf has no parent")
	}

	parent := Transaction{Role: SplitParent{}}
	if !parent.IsSplitParent() || parent.IsLeaf() {
		t.Fatalf("expected split parent")
	}

	child := Transaction{Role: SplitChild{ParentID: 7}}
	id, ok := child.ParentID()
	if !ok || id != 7 {
		t.Fatalf("expected parent 7, got %d (%v)", id, ok)
	}
	if child.IsLeaf() || child.IsSplitParent() {
		t.Fatalf("child must be neither leaf nor parent")
	}
}

func TestTransactionJSONFlattensRole(t *testing.T) {
	tx := Transaction{
		ID:          3,
		BookingDate: NewDate(2024, 3, 1),
		Amount:      decimal.RequireFromString("-12.50"),
		Role:        SplitChild{ParentID: 1},
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"booking_date":"2024-03-01"`, `"parent_transaction_id":1`, `"is_split_parent":false`} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %s in %s", want, s)
		}
	}
}

func TestRuleHasCriteria(t *testing.T) {
	if (Rule{Name: "x"}).HasCriteria() {
		t.Fatalf("rule without criteria reported criteria")
	}
	if !(Rule{MatchPurpose: "miete"}).HasCriteria() {
		t.Fatalf("purpose criterion not detected")
	}
	lo := decimal.NewFromInt(50)
	if !(Rule{MatchAmountMin: &lo}).HasCriteria() {
		t.Fatalf("amount criterion not detected")
	}
	if (Rule{MatchCounterpartName: "   "}).HasCriteria() {
		t.Fatalf("blank pattern must not count")
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := Invalid("format", "unsupported %q", "xyz")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err.Error() != `format: unsupported "xyz"` {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(NotFound("transaction", 4), ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
}
