package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finanzen/internal/core"
)

const accountColumns = `id, name, iban, bic, bank_name, account_type, is_active, profile_id, created_at`

func scanAccount(s scanner) (core.Account, error) {
	var (
		a             core.Account
		bic, bankName sql.NullString
		accountType   string
		isActive      int64
		profileID     sql.NullInt64
		createdAt     string
	)
	if err := s.Scan(&a.ID, &a.Name, &a.IBAN, &bic, &bankName, &accountType, &isActive, &profileID, &createdAt); err != nil {
		return core.Account{}, err
	}
	a.BIC = bic.String
	a.BankName = bankName.String
	a.AccountType = core.AccountType(accountType)
	a.IsActive = isActive != 0
	a.ProfileID = intPtr(profileID)
	a.CreatedAt = parseTimestamp(createdAt)
	return a, nil
}

func scanAccounts(rows *sql.Rows) ([]core.Account, error) {
	defer rows.Close()
	var items []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

const getAccountByIBAN = `-- name: GetAccountByIBAN :one
SELECT ` + accountColumns + ` FROM accounts WHERE iban = ?`

func (q *Queries) GetAccountByIBAN(ctx context.Context, iban string) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx, getAccountByIBAN, iban))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account with iban %s: %w", iban, core.ErrNotFound)
	}
	return a, err
}

const createAccount = `-- name: CreateAccount :one
INSERT INTO accounts (name, iban, bic, bank_name, account_type, is_active, profile_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + accountColumns

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.AccountType == "" {
		a.AccountType = core.AccountGiro
	}
	return scanAccount(q.db.QueryRowContext(ctx, createAccount,
		a.Name, a.IBAN, nullString(a.BIC), nullString(a.BankName), string(a.AccountType),
		boolInt(a.IsActive), nullInt(a.ProfileID), now()))
}

const updateAccount = `-- name: UpdateAccount :exec
UPDATE accounts SET name = ?, is_active = ?, profile_id = ? WHERE id = ?`

func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := q.db.ExecContext(ctx, updateAccount, a.Name, boolInt(a.IsActive), nullInt(a.ProfileID), a.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "account", a.ID)
}

// ListAccounts returns accounts ordered by name. Inactive accounts are
// skipped unless includeInactive; profileID narrows to one profile.
func (q *Queries) ListAccounts(ctx context.Context, includeInactive bool, profileID *int64) ([]core.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE 1 = 1"
	var args []any
	if !includeInactive {
		query += " AND is_active = 1"
	}
	if profileID != nil {
		query += " AND profile_id = ?"
		args = append(args, *profileID)
	}
	rows, err := q.db.QueryContext(ctx, query+" ORDER BY name, id", args...)
	if err != nil {
		return nil, err
	}
	return scanAccounts(rows)
}

const assignUnownedAccounts = `-- name: AssignUnownedAccounts :execrows
UPDATE accounts SET profile_id = ? WHERE profile_id IS NULL`

func (q *Queries) AssignUnownedAccounts(ctx context.Context, profileID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, assignUnownedAccounts, profileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const unlinkProfileAccounts = `-- name: UnlinkProfileAccounts :execrows
UPDATE accounts SET profile_id = NULL WHERE profile_id = ?`

func (q *Queries) UnlinkProfileAccounts(ctx context.Context, profileID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, unlinkProfileAccounts, profileID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AccountFigures are the transaction-derived numbers of one account. Split
// parents are not counted.
type AccountFigures struct {
	BalanceCents     *int64
	TransactionCount int
	IncomeCents      int64
	ExpensesCents    int64
	FirstBooking     *core.Date
	LastBooking      *core.Date
}

const accountFigures = `-- name: AccountFigures :one
SELECT
	(SELECT balance_after_cents FROM transactions
	 WHERE account_id = ?1 AND balance_after_cents IS NOT NULL AND is_split_parent = 0
	 ORDER BY booking_date DESC, id DESC LIMIT 1),
	COUNT(*),
	COALESCE(SUM(CASE WHEN amount_cents > 0 AND booking_date >= ?2 THEN amount_cents ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN amount_cents < 0 AND booking_date >= ?2 THEN amount_cents ELSE 0 END), 0),
	MIN(booking_date),
	MAX(booking_date)
FROM transactions
WHERE account_id = ?1 AND is_split_parent = 0`

// AccountFigures computes the figures of account id; income and expenses
// count bookings on or after since.
func (q *Queries) AccountFigures(ctx context.Context, id int64, since core.Date) (AccountFigures, error) {
	var (
		f           AccountFigures
		balance     sql.NullInt64
		first, last sql.NullString
	)
	err := q.db.QueryRowContext(ctx, accountFigures, id, since.String()).Scan(
		&balance, &f.TransactionCount, &f.IncomeCents, &f.ExpensesCents, &first, &last)
	if err != nil {
		return AccountFigures{}, err
	}
	f.BalanceCents = intPtr(balance)
	f.FirstBooking = parseNullDate(first)
	f.LastBooking = parseNullDate(last)
	return f, nil
}
