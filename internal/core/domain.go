package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency     = "EUR"
	DefaultProfileColor = "#2563eb"
	AdminProfileName    = "Admin"

	CashIBAN        = "CASH0000000000000000"
	CashAccountName = "Bargeld"
	CashBankName    = "Manuell"

	ManualBookingType = "Manuelle Buchung"
	SplitPurposeTag   = "[Split]"
)

const (
	AccountGiro    AccountType = "giro"
	AccountSavings AccountType = "savings"
	AccountCredit  AccountType = "credit"
	AccountCash    AccountType = "cash"
)

const (
	ImportSuccess ImportStatus = "success"
	ImportPartial ImportStatus = "partial"
	ImportFailed  ImportStatus = "failed"
)

type (
	AccountType  string
	ImportStatus string

	// Date is a calendar day without time of day, serialized as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID         int64
		ImportHash string
		ImportID   *int64
		AccountID  *int64

		// Snapshot of the owning account at import time.
		AccountName string
		AccountIBAN string
		AccountBIC  string
		BankName    string

		BookingDate Date
		ValueDate   *Date

		CounterpartName string
		CounterpartIBAN string
		CounterpartBIC  string

		BookingType  string
		Purpose      string
		Amount       decimal.Decimal
		Currency     string
		BalanceAfter *decimal.Decimal

		CategoryID *int64
		Role       SplitRole
		IsShared   bool

		Notes string
		Tags  string

		OriginalCategory string
		CreditorID       string
		MandateReference string

		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Account struct {
		ID          int64       `json:"id"`
		Name        string      `json:"name"`
		IBAN        string      `json:"iban"`
		BIC         string      `json:"bic,omitempty"`
		BankName    string      `json:"bank_name,omitempty"`
		AccountType AccountType `json:"account_type,omitempty"`
		IsActive    bool        `json:"is_active"`
		ProfileID   *int64      `json:"profile_id"`
		CreatedAt   time.Time   `json:"created_at"`
	}

	Category struct {
		ID            int64            `json:"id"`
		Name          string           `json:"name"`
		ParentID      *int64           `json:"parent_id"`
		FullPath      string           `json:"full_path"`
		Color         string           `json:"color,omitempty"`
		Icon          string           `json:"icon,omitempty"`
		BudgetMonthly *decimal.Decimal `json:"budget_monthly"`
		CreatedAt     time.Time        `json:"created_at"`

		TransactionCount int        `json:"transaction_count"`
		Children         []Category `json:"children,omitempty"`
	}

	// Rule is a categorization rule. Empty match strings and nil amount bounds
	// are unpopulated criteria.
	Rule struct {
		ID                   int64            `json:"id"`
		Name                 string           `json:"name"`
		Priority             int              `json:"priority"`
		MatchCounterpartName string           `json:"match_counterpart_name,omitempty"`
		MatchCounterpartIBAN string           `json:"match_counterpart_iban,omitempty"`
		MatchPurpose         string           `json:"match_purpose,omitempty"`
		MatchBookingType     string           `json:"match_booking_type,omitempty"`
		MatchAmountMin       *decimal.Decimal `json:"match_amount_min"`
		MatchAmountMax       *decimal.Decimal `json:"match_amount_max"`
		AssignCategoryID     int64            `json:"assign_category_id"`
		AssignShared         bool             `json:"assign_shared"`
		IsActive             bool             `json:"is_active"`
		CreatedAt            time.Time        `json:"created_at"`
	}

	Profile struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Color     string    `json:"color"`
		IsAdmin   bool      `json:"is_admin"`
		CreatedAt time.Time `json:"created_at"`
	}

	Import struct {
		ID                    int64        `json:"id"`
		Filename              string       `json:"filename"`
		Format                string       `json:"format"`
		ImportDate            time.Time    `json:"import_date"`
		TransactionsTotal     int          `json:"transactions_total"`
		TransactionsNew       int          `json:"transactions_new"`
		TransactionsDuplicate int          `json:"transactions_duplicate"`
		TransactionsError     int          `json:"transactions_error"`
		Status                ImportStatus `json:"status"`
		ExportedAt            *time.Time   `json:"exported_at,omitempty"`
	}
)

// SplitRole is the position of a transaction in a split: Leaf, SplitParent or SplitChild.
type SplitRole interface {
	splitRole()
}

type (
	Leaf        struct{}
	SplitParent struct{}
	SplitChild  struct {
		ParentID int64
	}
)

func (Leaf) splitRole()        {}
func (SplitParent) splitRole() {}
func (SplitChild) splitRole()  {}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsSplitParent reports whether the transaction has been replaced by split children.
func (t Transaction) IsSplitParent() bool {
	_, ok := t.Role.(SplitParent)
	return ok
}

// ParentID returns the split parent of a split child.
func (t Transaction) ParentID() (int64, bool) {
	if c, ok := t.Role.(SplitChild); ok {
		return c.ParentID, true
	}
	return 0, false
}

// IsLeaf reports whether the transaction takes no part in a split.
func (t Transaction) IsLeaf() bool {
	switch t.Role.(type) {
	case nil, Leaf:
		return true
	}
	return false
}

func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

func (t Transaction) IsCategorized() bool {
	return t.CategoryID != nil
}

type transactionJSON struct {
	ID                  int64            `json:"id"`
	ImportHash          string           `json:"import_hash"`
	ImportID            *int64           `json:"import_id"`
	AccountID           *int64           `json:"account_id"`
	AccountName         string           `json:"account_name,omitempty"`
	AccountIBAN         string           `json:"account_iban,omitempty"`
	AccountBIC          string           `json:"account_bic,omitempty"`
	BankName            string           `json:"bank_name,omitempty"`
	BookingDate         Date             `json:"booking_date"`
	ValueDate           *Date            `json:"value_date"`
	CounterpartName     string           `json:"counterpart_name,omitempty"`
	CounterpartIBAN     string           `json:"counterpart_iban,omitempty"`
	CounterpartBIC      string           `json:"counterpart_bic,omitempty"`
	BookingType         string           `json:"booking_type,omitempty"`
	Purpose             string           `json:"purpose,omitempty"`
	Amount              decimal.Decimal  `json:"amount"`
	Currency            string           `json:"currency"`
	BalanceAfter        *decimal.Decimal `json:"balance_after"`
	CategoryID          *int64           `json:"category_id"`
	ParentTransactionID *int64           `json:"parent_transaction_id"`
	IsSplitParent       bool             `json:"is_split_parent"`
	IsShared            bool             `json:"is_shared"`
	Notes               string           `json:"notes,omitempty"`
	Tags                string           `json:"tags,omitempty"`
	OriginalCategory    string           `json:"original_category,omitempty"`
	CreditorID          string           `json:"creditor_id,omitempty"`
	MandateReference    string           `json:"mandate_reference,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// MarshalJSON flattens the split role into is_split_parent and parent_transaction_id.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := transactionJSON{
		ID:               t.ID,
		ImportHash:       t.ImportHash,
		ImportID:         t.ImportID,
		AccountID:        t.AccountID,
		AccountName:      t.AccountName,
		AccountIBAN:      t.AccountIBAN,
		AccountBIC:       t.AccountBIC,
		BankName:         t.BankName,
		BookingDate:      t.BookingDate,
		ValueDate:        t.ValueDate,
		CounterpartName:  t.CounterpartName,
		CounterpartIBAN:  t.CounterpartIBAN,
		CounterpartBIC:   t.CounterpartBIC,
		BookingType:      t.BookingType,
		Purpose:          t.Purpose,
		Amount:           t.Amount,
		Currency:         t.Currency,
		BalanceAfter:     t.BalanceAfter,
		CategoryID:       t.CategoryID,
		IsSplitParent:    t.IsSplitParent(),
		IsShared:         t.IsShared,
		Notes:            t.Notes,
		Tags:             t.Tags,
		OriginalCategory: t.OriginalCategory,
		CreditorID:       t.CreditorID,
		MandateReference: t.MandateReference,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if parent, ok := t.ParentID(); ok {
		out.ParentTransactionID = &parent
	}
	return json.Marshal(out)
}

// HasCriteria reports whether at least one match criterion is populated.
func (r Rule) HasCriteria() bool {
	return strings.TrimSpace(r.MatchCounterpartName) != "" ||
		strings.TrimSpace(r.MatchCounterpartIBAN) != "" ||
		strings.TrimSpace(r.MatchPurpose) != "" ||
		strings.TrimSpace(r.MatchBookingType) != "" ||
		r.MatchAmountMin != nil ||
		r.MatchAmountMax != nil
}

func (a AccountType) IsValid() bool {
	switch a {
	case AccountGiro, AccountSavings, AccountCredit, AccountCash:
		return true
	}
	return false
}

// DeriveImportStatus maps the row counts of an import to its status.
func DeriveImportStatus(newCount, errorCount int) ImportStatus {
	switch {
	case errorCount > 0 && newCount == 0:
		return ImportFailed
	case errorCount > 0:
		return ImportPartial
	default:
		return ImportSuccess
	}
}
