package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"finanzen/internal/core"
)

const transactionColumns = `id, import_hash, import_id, account_id, account_name, account_iban, account_bic, bank_name,
	booking_date, value_date, counterpart_name, counterpart_iban, counterpart_bic, booking_type, purpose,
	amount_cents, currency, balance_after_cents, category_id, parent_transaction_id, is_split_parent, is_shared,
	notes, tags, original_category, creditor_id, mandate_reference, created_at, updated_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                                                  core.Transaction
		importID, accountID, balance, categoryID, parentID sql.NullInt64
		accountName, accountIBAN, accountBIC, bankName     sql.NullString
		valueDate, cpName, cpIBAN, cpBIC, bookingType      sql.NullString
		purpose, notes, tags, originalCategory, creditorID sql.NullString
		mandateRef                                         sql.NullString
		bookingDate, createdAt, updatedAt                  string
		amount, isParent, isShared                         int64
	)
	err := s.Scan(
		&t.ID, &t.ImportHash, &importID, &accountID, &accountName, &accountIBAN, &accountBIC, &bankName,
		&bookingDate, &valueDate, &cpName, &cpIBAN, &cpBIC, &bookingType, &purpose,
		&amount, &t.Currency, &balance, &categoryID, &parentID, &isParent, &isShared,
		&notes, &tags, &originalCategory, &creditorID, &mandateRef, &createdAt, &updatedAt,
	)
	if err != nil {
		return core.Transaction{}, err
	}

	booking, err := core.ParseISODate(bookingDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse booking date of transaction %d: %w", t.ID, err)
	}

	t.ImportID = intPtr(importID)
	t.AccountID = intPtr(accountID)
	t.AccountName = accountName.String
	t.AccountIBAN = accountIBAN.String
	t.AccountBIC = accountBIC.String
	t.BankName = bankName.String
	t.BookingDate = booking
	t.ValueDate = parseNullDate(valueDate)
	t.CounterpartName = cpName.String
	t.CounterpartIBAN = cpIBAN.String
	t.CounterpartBIC = cpBIC.String
	t.BookingType = bookingType.String
	t.Purpose = purpose.String
	t.Amount = core.FromCents(amount)
	t.BalanceAfter = core.DecimalPtr(intPtr(balance))
	t.CategoryID = intPtr(categoryID)
	t.IsShared = isShared != 0
	t.Notes = notes.String
	t.Tags = tags.String
	t.OriginalCategory = originalCategory.String
	t.CreditorID = creditorID.String
	t.MandateReference = mandateRef.String
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)

	switch {
	case parentID.Valid:
		t.Role = core.SplitChild{ParentID: parentID.Int64}
	case isParent != 0:
		t.Role = core.SplitParent{}
	default:
		t.Role = core.Leaf{}
	}
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var items []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// roleColumns flattens a split role into parent_transaction_id and is_split_parent.
func roleColumns(role core.SplitRole) (sql.NullInt64, int64) {
	switch r := role.(type) {
	case core.SplitParent:
		return sql.NullInt64{}, 1
	case core.SplitChild:
		return sql.NullInt64{Int64: r.ParentID, Valid: true}, 0
	default:
		return sql.NullInt64{}, 0
	}
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

const getTransactionByHash = `-- name: GetTransactionByHash :one
SELECT ` + transactionColumns + ` FROM transactions WHERE import_hash = ?`

func (q *Queries) GetTransactionByHash(ctx context.Context, hash string) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, getTransactionByHash, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction with hash %s: %w", hash, core.ErrNotFound)
	}
	return t, err
}

const transactionHashExists = `-- name: TransactionHashExists :one
SELECT EXISTS(SELECT 1 FROM transactions WHERE import_hash = ?)`

func (q *Queries) TransactionHashExists(ctx context.Context, hash string) (bool, error) {
	var exists int64
	if err := q.db.QueryRowContext(ctx, transactionHashExists, hash).Scan(&exists); err != nil {
		return false, err
	}
	return exists != 0, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (
	import_hash, import_id, account_id, account_name, account_iban, account_bic, bank_name,
	booking_date, value_date, counterpart_name, counterpart_iban, counterpart_bic, booking_type, purpose,
	amount_cents, currency, balance_after_cents, category_id, parent_transaction_id, is_split_parent, is_shared,
	notes, tags, original_category, creditor_id, mandate_reference, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

// CreateTransaction inserts t and returns it with id and timestamps set.
func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Currency == "" {
		t.Currency = core.DefaultCurrency
	}
	parentID, isParent := roleColumns(t.Role)
	ts := now()
	err := q.db.QueryRowContext(ctx, createTransaction,
		t.ImportHash, nullInt(t.ImportID), nullInt(t.AccountID),
		nullString(t.AccountName), nullString(t.AccountIBAN), nullString(t.AccountBIC), nullString(t.BankName),
		t.BookingDate.String(), nullDate(t.ValueDate),
		nullString(t.CounterpartName), nullString(t.CounterpartIBAN), nullString(t.CounterpartBIC),
		nullString(t.BookingType), nullString(t.Purpose),
		core.ToCents(t.Amount), t.Currency, nullInt(core.CentsPtr(t.BalanceAfter)),
		nullInt(t.CategoryID), parentID, isParent, boolInt(t.IsShared),
		nullString(t.Notes), nullString(t.Tags),
		nullString(t.OriginalCategory), nullString(t.CreditorID), nullString(t.MandateReference),
		ts, ts,
	).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Role == nil {
		t.Role = core.Leaf{}
	}
	t.CreatedAt = parseTimestamp(ts)
	t.UpdatedAt = t.CreatedAt
	return t, nil
}

const updateTransaction = `-- name: UpdateTransaction :exec
UPDATE transactions
SET category_id = ?, parent_transaction_id = ?, is_split_parent = ?, is_shared = ?, notes = ?, tags = ?, updated_at = ?
WHERE id = ?`

// UpdateTransaction writes the user-editable fields and the split role of t.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	parentID, isParent := roleColumns(t.Role)
	res, err := q.db.ExecContext(ctx, updateTransaction,
		nullInt(t.CategoryID), parentID, isParent, boolInt(t.IsShared),
		nullString(t.Notes), nullString(t.Tags), now(), t.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "transaction", t.ID)
}

const deleteTransaction = `-- name: DeleteTransaction :exec
DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "transaction", id)
}

const deleteChildTransactions = `-- name: DeleteChildTransactions :execrows
DELETE FROM transactions WHERE parent_transaction_id = ?`

func (q *Queries) DeleteChildTransactions(ctx context.Context, parentID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteChildTransactions, parentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listChildTransactions = `-- name: ListChildTransactions :many
SELECT ` + transactionColumns + ` FROM transactions WHERE parent_transaction_id = ? ORDER BY id`

func (q *Queries) ListChildTransactions(ctx context.Context, parentID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listChildTransactions, parentID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const countChildTransactions = `-- name: CountChildTransactions :one
SELECT COUNT(*) FROM transactions WHERE parent_transaction_id = ?`

func (q *Queries) CountChildTransactions(ctx context.Context, parentID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countChildTransactions, parentID).Scan(&n)
	return n, err
}

const listUncategorizedTransactions = `-- name: ListUncategorizedTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE category_id IS NULL AND is_split_parent = 0
ORDER BY id`

// ListUncategorizedTransactions returns every transaction a rule may still categorize.
func (q *Queries) ListUncategorizedTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listUncategorizedTransactions)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactionsByImport = `-- name: ListTransactionsByImport :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE import_id = ? AND is_split_parent = 0
ORDER BY booking_date, id`

func (q *Queries) ListTransactionsByImport(ctx context.Context, importID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByImport, importID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listRecentTransactions = `-- name: ListRecentTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE is_split_parent = 0
ORDER BY booking_date DESC, id DESC
LIMIT ?`

func (q *Queries) ListRecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecentTransactions, limit)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// SetTransactionsCategory assigns categoryID (nil clears) to every listed
// transaction that is not a split parent.
func (q *Queries) SetTransactionsCategory(ctx context.Context, ids []int64, categoryID *int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE transactions SET category_id = ?, updated_at = ?
WHERE is_split_parent = 0 AND id IN (` + placeholders(len(ids)) + `)`
	args := append([]any{nullInt(categoryID), now()}, int64Args(ids)...)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetTransactionsShared sets is_shared on every listed transaction.
func (q *Queries) SetTransactionsShared(ctx context.Context, ids []int64, shared bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE transactions SET is_shared = ?, updated_at = ?
WHERE id IN (` + placeholders(len(ids)) + `)`
	args := append([]any{boolInt(shared), now()}, int64Args(ids)...)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const reassignCategory = `-- name: ReassignCategory :execrows
UPDATE transactions SET category_id = ?, updated_at = ? WHERE category_id = ?`

// ReassignCategory moves every transaction of category from to category to
// (nil uncategorizes them).
func (q *Queries) ReassignCategory(ctx context.Context, from int64, to *int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, reassignCategory, nullInt(to), now(), from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SortField is a whitelisted ORDER BY column for transaction listings.
type SortField string

const (
	SortBookingDate     SortField = "booking_date"
	SortAmount          SortField = "amount"
	SortCounterpartName SortField = "counterpart_name"
)

var sortColumns = map[SortField]string{
	SortBookingDate:     "booking_date",
	SortAmount:          "amount_cents",
	SortCounterpartName: "counterpart_name",
}

// AmountType restricts a listing to inflows or outflows.
type AmountType string

const (
	AmountAll      AmountType = ""
	AmountIncome   AmountType = "income"
	AmountExpenses AmountType = "expenses"
)

// TransactionFilter selects a page of transactions. Split parents are always
// excluded. Zero values disable a criterion.
type TransactionFilter struct {
	StartDate     *core.Date
	EndDate       *core.Date
	CategoryIDs   []int64
	Uncategorized bool
	AccountID     *int64
	AccountIBAN   string
	ProfileID     *int64
	SharedOnly    bool
	AmountType    AmountType
	Search        string

	Sort   SortField
	Desc   bool
	Limit  int
	Offset int
}

func (f TransactionFilter) where() (string, []any) {
	conds := []string{"is_split_parent = 0"}
	var args []any

	if f.StartDate != nil {
		conds = append(conds, "booking_date >= ?")
		args = append(args, f.StartDate.String())
	}
	if f.EndDate != nil {
		conds = append(conds, "booking_date <= ?")
		args = append(args, f.EndDate.String())
	}
	if len(f.CategoryIDs) > 0 {
		conds = append(conds, "category_id IN ("+placeholders(len(f.CategoryIDs))+")")
		args = append(args, int64Args(f.CategoryIDs)...)
	}
	if f.Uncategorized {
		conds = append(conds, "category_id IS NULL")
	}
	if f.AccountID != nil {
		conds = append(conds, "account_id = ?")
		args = append(args, *f.AccountID)
	} else if f.AccountIBAN != "" {
		conds = append(conds, "account_iban = ?")
		args = append(args, f.AccountIBAN)
	}
	if f.ProfileID != nil {
		conds = append(conds, "account_id IN (SELECT id FROM accounts WHERE profile_id = ?)")
		args = append(args, *f.ProfileID)
	}
	if f.SharedOnly {
		conds = append(conds, "is_shared = 1")
	}
	switch f.AmountType {
	case AmountIncome:
		conds = append(conds, "amount_cents > 0")
	case AmountExpenses:
		conds = append(conds, "amount_cents < 0")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		conds = append(conds, "(lower(counterpart_name) LIKE ? OR lower(purpose) LIKE ? OR lower(notes) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	return strings.Join(conds, " AND "), args
}

// ListTransactions returns one page matching f and the total match count.
func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, int, error) {
	where, args := f.where()

	var total int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	column, ok := sortColumns[f.Sort]
	if !ok {
		column = sortColumns[SortBookingDate]
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}

	query := "SELECT " + transactionColumns + " FROM transactions WHERE " + where +
		fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT ? OFFSET ?", column, dir, dir)
	rows, err := q.db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	items, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan transactions: %w", err)
	}
	return items, total, nil
}

func expectAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}
