package storage

import (
	"context"
	"database/sql"
	"errors"

	"finanzen/internal/core"
)

// Every statistics query ignores split parents; their children carry the amounts.

const latestBalance = `-- name: LatestBalance :one
SELECT balance_after_cents FROM transactions
WHERE balance_after_cents IS NOT NULL AND is_split_parent = 0
ORDER BY booking_date DESC, id DESC
LIMIT 1`

// LatestBalance returns the balance after the most recent booking that
// reports one, or nil.
func (q *Queries) LatestBalance(ctx context.Context) (*int64, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx, latestBalance).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cents, nil
}

const periodTotals = `-- name: PeriodTotals :one
SELECT
	COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0)
FROM transactions
WHERE booking_date >= ? AND booking_date <= ? AND is_split_parent = 0`

// PeriodTotals returns income and expenses (as a positive number) booked
// between start and end inclusive.
func (q *Queries) PeriodTotals(ctx context.Context, start, end core.Date) (income, expenses int64, err error) {
	err = q.db.QueryRowContext(ctx, periodTotals, start.String(), end.String()).Scan(&income, &expenses)
	return income, expenses, err
}

// CategoryTotal is the signed sum of one category's transactions.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Color      string
	TotalCents int64
	Count      int
}

func scanCategoryTotals(rows *sql.Rows) ([]CategoryTotal, error) {
	defer rows.Close()
	var items []CategoryTotal
	for rows.Next() {
		var (
			ct    CategoryTotal
			color sql.NullString
		)
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &color, &ct.TotalCents, &ct.Count); err != nil {
			return nil, err
		}
		ct.Color = color.String
		items = append(items, ct)
	}
	return items, rows.Err()
}

const topExpenseCategories = `-- name: TopExpenseCategories :many
SELECT c.id, c.name, c.color, SUM(t.amount_cents) AS total, COUNT(t.id)
FROM categories c
JOIN transactions t ON t.category_id = c.id
WHERE t.booking_date >= ? AND t.booking_date <= ? AND t.is_split_parent = 0 AND t.amount_cents < 0
GROUP BY c.id
ORDER BY total ASC, c.id
LIMIT ?`

// TopExpenseCategories returns the categories with the largest outflows,
// most negative first.
func (q *Queries) TopExpenseCategories(ctx context.Context, start, end core.Date, limit int) ([]CategoryTotal, error) {
	rows, err := q.db.QueryContext(ctx, topExpenseCategories, start.String(), end.String(), limit)
	if err != nil {
		return nil, err
	}
	return scanCategoryTotals(rows)
}

const categoryTotals = `-- name: CategoryTotals :many
SELECT c.id, c.name, c.color, COALESCE(SUM(t.amount_cents), 0), COUNT(t.id)
FROM categories c
LEFT JOIN transactions t
	ON t.category_id = c.id AND t.booking_date >= ? AND t.booking_date <= ? AND t.is_split_parent = 0
GROUP BY c.id
ORDER BY c.id`

// CategoryTotals returns every category with its signed total in the range,
// including categories without bookings.
func (q *Queries) CategoryTotals(ctx context.Context, start, end core.Date) ([]CategoryTotal, error) {
	rows, err := q.db.QueryContext(ctx, categoryTotals, start.String(), end.String())
	if err != nil {
		return nil, err
	}
	return scanCategoryTotals(rows)
}

const uncategorizedTotals = `-- name: UncategorizedTotals :one
SELECT COALESCE(SUM(amount_cents), 0), COUNT(*)
FROM transactions
WHERE category_id IS NULL AND booking_date >= ? AND booking_date <= ? AND is_split_parent = 0`

func (q *Queries) UncategorizedTotals(ctx context.Context, start, end core.Date) (totalCents int64, count int, err error) {
	err = q.db.QueryRowContext(ctx, uncategorizedTotals, start.String(), end.String()).Scan(&totalCents, &count)
	return totalCents, count, err
}

const countUncategorized = `-- name: CountUncategorized :one
SELECT COUNT(*) FROM transactions WHERE category_id IS NULL AND is_split_parent = 0`

func (q *Queries) CountUncategorized(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, countUncategorized).Scan(&n)
	return n, err
}

// PeriodBucket is the income and expenses of one time bucket.
type PeriodBucket struct {
	Key           string
	IncomeCents   int64
	ExpensesCents int64
}

const timeSeries = `-- name: TimeSeries :many
SELECT
	strftime(?1, booking_date) AS bucket,
	COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0)
FROM transactions
WHERE booking_date >= ?2 AND booking_date <= ?3 AND is_split_parent = 0
GROUP BY bucket
ORDER BY bucket`

// TimeSeries groups the bookings between start and end by the SQLite
// strftime layout, e.g. "%Y-%m" for months.
func (q *Queries) TimeSeries(ctx context.Context, layout string, start, end core.Date) ([]PeriodBucket, error) {
	rows, err := q.db.QueryContext(ctx, timeSeries, layout, start.String(), end.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PeriodBucket
	for rows.Next() {
		var b PeriodBucket
		if err := rows.Scan(&b.Key, &b.IncomeCents, &b.ExpensesCents); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
