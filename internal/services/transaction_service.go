package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzen/internal/core"
	"finanzen/internal/storage"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200

	manualHashPrefix = "manual_"
	manualHashHex    = 24
)

// TransactionQuery is a listing request as the API receives it.
type TransactionQuery struct {
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string

	StartDate            *core.Date
	EndDate              *core.Date
	CategoryID           *int64
	IncludeSubcategories bool
	UncategorizedOnly    bool
	AccountID            *int64
	AccountIBAN          string
	ProfileID            *int64
	SharedOnly           bool
	AmountType           string
	Search               string
}

// TransactionPage is one page of a listing.
type TransactionPage struct {
	Items   []core.Transaction `json:"items"`
	Total   int                `json:"total"`
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
	Pages   int                `json:"pages"`
}

// TransactionDetail is a transaction with its split parts.
type TransactionDetail struct {
	core.Transaction
	SplitChildren []core.Transaction
}

func (d TransactionDetail) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(d.Transaction)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	children := d.SplitChildren
	if children == nil {
		children = []core.Transaction{}
	}
	if fields["split_children"], err = json.Marshal(children); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// TransactionPatch holds the user-editable fields. Nil means unchanged; a
// CategoryID of 0 removes the category.
type TransactionPatch struct {
	CategoryID *int64
	Notes      *string
	Tags       *string
	IsShared   *bool
}

// ManualEntry is a cash booking entered by hand.
type ManualEntry struct {
	BookingDate core.Date
	Amount      decimal.Decimal
	Description string
	CategoryID  *int64
	Notes       string
}

// TransactionService reads and edits stored transactions.
type TransactionService struct {
	storage *storage.SQLiteRepository
}

func NewTransactionService(storage *storage.SQLiteRepository) *TransactionService {
	return &TransactionService{storage: storage}
}

// List returns one page of transactions. Split parents never appear.
func (s *TransactionService) List(ctx context.Context, tq TransactionQuery) (TransactionPage, error) {
	f, err := tq.filter()
	if err != nil {
		return TransactionPage{}, err
	}

	q := s.storage.Queries()
	if tq.CategoryID != nil && *tq.CategoryID != 0 {
		f.CategoryIDs = []int64{*tq.CategoryID}
		if tq.IncludeSubcategories {
			children, err := q.ListChildCategories(ctx, *tq.CategoryID)
			if err != nil {
				return TransactionPage{}, fmt.Errorf("list subcategories: %w", err)
			}
			for _, c := range children {
				f.CategoryIDs = append(f.CategoryIDs, c.ID)
			}
		}
	}

	items, total, err := q.ListTransactions(ctx, f)
	if err != nil {
		return TransactionPage{}, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return TransactionPage{
		Items:   items,
		Total:   total,
		Page:    tq.Page,
		PerPage: f.Limit,
		Pages:   (total + f.Limit - 1) / f.Limit,
	}, nil
}

func (tq *TransactionQuery) filter() (storage.TransactionFilter, error) {
	if tq.Page == 0 {
		tq.Page = 1
	}
	if tq.Page < 1 {
		return storage.TransactionFilter{}, core.Invalid("page", "must be at least 1")
	}
	if tq.PerPage == 0 {
		tq.PerPage = defaultPerPage
	}
	if tq.PerPage < 1 || tq.PerPage > maxPerPage {
		return storage.TransactionFilter{}, core.Invalid("per_page", "must be between 1 and %d", maxPerPage)
	}

	f := storage.TransactionFilter{
		StartDate:     tq.StartDate,
		EndDate:       tq.EndDate,
		Uncategorized: tq.UncategorizedOnly,
		AccountID:     tq.AccountID,
		AccountIBAN:   strings.TrimSpace(tq.AccountIBAN),
		ProfileID:     tq.ProfileID,
		SharedOnly:    tq.SharedOnly,
		Search:        tq.Search,
		Limit:         tq.PerPage,
		Offset:        (tq.Page - 1) * tq.PerPage,
	}

	switch sort := storage.SortField(tq.SortBy); sort {
	case "", "category":
		f.Sort = storage.SortBookingDate
	case storage.SortBookingDate, storage.SortAmount, storage.SortCounterpartName:
		f.Sort = sort
	default:
		return storage.TransactionFilter{}, core.Invalid("sort_by", "unsupported sort field %q", tq.SortBy)
	}
	switch strings.ToLower(tq.SortOrder) {
	case "", "desc":
		f.Desc = true
	case "asc":
	default:
		return storage.TransactionFilter{}, core.Invalid("sort_order", "must be asc or desc")
	}
	switch t := storage.AmountType(tq.AmountType); t {
	case storage.AmountAll, "all":
	case storage.AmountIncome, storage.AmountExpenses:
		f.AmountType = t
	default:
		return storage.TransactionFilter{}, core.Invalid("amount_type", "must be income, expenses or all")
	}
	return f, nil
}

// Get returns a transaction together with its split parts.
func (s *TransactionService) Get(ctx context.Context, id int64) (TransactionDetail, error) {
	q := s.storage.Queries()
	tx, err := q.GetTransaction(ctx, id)
	if err != nil {
		return TransactionDetail{}, err
	}
	detail := TransactionDetail{Transaction: tx}
	if tx.IsSplitParent() {
		if detail.SplitChildren, err = q.ListChildTransactions(ctx, id); err != nil {
			return TransactionDetail{}, fmt.Errorf("list split parts: %w", err)
		}
	}
	return detail, nil
}

// Patch updates category, notes, tags and the shared flag. A split parent
// cannot receive a category.
func (s *TransactionService) Patch(ctx context.Context, id int64, p TransactionPatch) (core.Transaction, error) {
	var tx core.Transaction
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var err error
		tx, err = q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		if p.CategoryID != nil {
			if *p.CategoryID == 0 {
				tx.CategoryID = nil
			} else {
				if tx.IsSplitParent() {
					return core.Invalid("category_id", "a split transaction has no category of its own")
				}
				if err := requireCategory(ctx, q, "category_id", *p.CategoryID); err != nil {
					return err
				}
				categoryID := *p.CategoryID
				tx.CategoryID = &categoryID
			}
		}
		if p.Notes != nil {
			tx.Notes = *p.Notes
		}
		if p.Tags != nil {
			tx.Tags = *p.Tags
		}
		if p.IsShared != nil {
			tx.IsShared = *p.IsShared
		}
		return q.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// BulkCategorize assigns categoryID (0 clears) to the listed transactions and
// returns how many changed. Split parents are skipped.
func (s *TransactionService) BulkCategorize(ctx context.Context, ids []int64, categoryID int64) (int64, error) {
	var updated int64
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		var target *int64
		if categoryID != 0 {
			if err := requireCategory(ctx, q, "category_id", categoryID); err != nil {
				return err
			}
			target = &categoryID
		}
		var err error
		updated, err = q.SetTransactionsCategory(ctx, ids, target)
		return err
	})
	return updated, err
}

// BulkShared sets the shared flag on the listed transactions.
func (s *TransactionService) BulkShared(ctx context.Context, ids []int64, shared bool) (int64, error) {
	return s.storage.Queries().SetTransactionsShared(ctx, ids, shared)
}

// CreateManual books a cash transaction on the synthetic cash account,
// creating that account on first use.
func (s *TransactionService) CreateManual(ctx context.Context, e ManualEntry) (core.Transaction, error) {
	e.Description = strings.TrimSpace(e.Description)
	if e.BookingDate.IsZero() {
		return core.Transaction{}, core.Invalid("booking_date", "is required")
	}
	if e.Amount.IsZero() {
		return core.Transaction{}, core.Invalid("amount", "must not be zero")
	}
	if e.CategoryID != nil && *e.CategoryID == 0 {
		e.CategoryID = nil
	}

	var created core.Transaction
	err := s.storage.InTx(ctx, func(q *storage.Queries) error {
		if e.CategoryID != nil {
			if err := requireCategory(ctx, q, "category_id", *e.CategoryID); err != nil {
				return err
			}
		}
		cash, err := ensureCashAccount(ctx, q)
		if err != nil {
			return fmt.Errorf("ensure cash account: %w", err)
		}

		valueDate := e.BookingDate
		created, err = q.CreateTransaction(ctx, core.Transaction{
			ImportHash:      manualHash(),
			AccountID:       &cash.ID,
			AccountName:     cash.Name,
			AccountIBAN:     cash.IBAN,
			BankName:        core.CashBankName,
			BookingDate:     e.BookingDate,
			ValueDate:       &valueDate,
			CounterpartName: e.Description,
			BookingType:     core.ManualBookingType,
			Purpose:         e.Description,
			Amount:          e.Amount,
			Currency:        core.DefaultCurrency,
			CategoryID:      e.CategoryID,
			Role:            core.Leaf{},
			Notes:           e.Notes,
		})
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return created, nil
}

func ensureCashAccount(ctx context.Context, q *storage.Queries) (core.Account, error) {
	acc, err := q.GetAccountByIBAN(ctx, core.CashIBAN)
	if err == nil {
		return acc, nil
	}
	if !isNotFound(err) {
		return core.Account{}, err
	}
	return q.CreateAccount(ctx, core.Account{
		Name:        core.CashAccountName,
		IBAN:        core.CashIBAN,
		BankName:    core.CashBankName,
		AccountType: core.AccountCash,
		IsActive:    true,
	})
}

func manualHash() string {
	id := uuid.New()
	return manualHashPrefix + strings.ReplaceAll(id.String(), "-", "")[:manualHashHex]
}
