// Package importer turns bank CSV exports into normalized rows.
//
// Each supported bank layout is a Parser registered in a Registry. The
// format of an upload is either given explicitly or detected from its first
// line; undetectable content falls back to the Volksbank layout.
package importer

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"finanzen/internal/core"
)

// Format identifies a bank export layout.
type Format string

const (
	FormatAuto      Format = "auto"
	FormatVolksbank Format = "volksbank"
	FormatING       Format = "ing"
	FormatUnknown   Format = "unknown"
)

// Row is one statement line in bank-independent form. Empty strings are
// absent values.
type Row struct {
	AccountName string
	AccountIBAN string
	AccountBIC  string
	BankName    string

	BookingDate core.Date
	ValueDate   *core.Date

	CounterpartName string
	CounterpartIBAN string
	CounterpartBIC  string

	BookingType  string
	Purpose      string
	Amount       decimal.Decimal
	Currency     string
	BalanceAfter *decimal.Decimal

	OriginalCategory string
	CreditorID       string
	MandateReference string
}

// Hash returns the import fingerprint of the row.
func (r Row) Hash() string {
	return ImportHash(r.BookingDate, r.Amount, r.CounterpartIBAN, r.Purpose)
}

// Transaction builds the uncategorized leaf transaction for the row.
func (r Row) Transaction() core.Transaction {
	currency := r.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return core.Transaction{
		ImportHash:       r.Hash(),
		AccountName:      r.AccountName,
		AccountIBAN:      r.AccountIBAN,
		AccountBIC:       r.AccountBIC,
		BankName:         r.BankName,
		BookingDate:      r.BookingDate,
		ValueDate:        r.ValueDate,
		CounterpartName:  r.CounterpartName,
		CounterpartIBAN:  r.CounterpartIBAN,
		CounterpartBIC:   r.CounterpartBIC,
		BookingType:      r.BookingType,
		Purpose:          r.Purpose,
		Amount:           r.Amount,
		Currency:         currency,
		BalanceAfter:     r.BalanceAfter,
		Role:             core.Leaf{},
		OriginalCategory: r.OriginalCategory,
		CreditorID:       r.CreditorID,
		MandateReference: r.MandateReference,
	}
}

// Parser extracts rows from the decoded text of one bank export.
type Parser interface {
	Parse(content string) ([]Row, error)
	Format() Format
}

// Registry holds the parsers by format.
type Registry struct {
	mu      sync.RWMutex
	parsers map[Format]Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[Format]Parser)}
}

// Register adds or replaces the parser for its format.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Format()] = p
}

// Get returns the parser for f.
func (r *Registry) Get(f Format) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[f]
	return p, ok
}

// Formats lists the registered formats in name order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRegistry returns a registry with the Volksbank and ING parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(VolksbankParser{})
	r.Register(INGParser{})
	return r
}
