package storage

import (
	"context"
	"database/sql"

	"finanzen/internal/core"
)

// Categories carry the number of transactions assigned to them.
const categoryColumns = `c.id, c.name, c.parent_id, c.full_path, c.color, c.icon, c.budget_monthly_cents, c.created_at,
	(SELECT COUNT(*) FROM transactions t WHERE t.category_id = c.id)`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c           core.Category
		parentID    sql.NullInt64
		color, icon sql.NullString
		budget      sql.NullInt64
		createdAt   string
	)
	err := s.Scan(&c.ID, &c.Name, &parentID, &c.FullPath, &color, &icon, &budget, &createdAt, &c.TransactionCount)
	if err != nil {
		return core.Category{}, err
	}
	c.ParentID = intPtr(parentID)
	c.Color = color.String
	c.Icon = icon.String
	c.BudgetMonthly = core.DecimalPtr(intPtr(budget))
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

func scanCategories(rows *sql.Rows) ([]core.Category, error) {
	defer rows.Close()
	var items []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategory = `-- name: GetCategory :one
SELECT ` + categoryColumns + ` FROM categories c WHERE c.id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
	if err != nil {
		return core.Category{}, notFound(err, "category", id)
	}
	return c, nil
}

const listCategories = `-- name: ListCategories :many
SELECT ` + categoryColumns + ` FROM categories c ORDER BY c.full_path, c.id`

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

const listChildCategories = `-- name: ListChildCategories :many
SELECT ` + categoryColumns + ` FROM categories c WHERE c.parent_id = ? ORDER BY c.name, c.id`

func (q *Queries) ListChildCategories(ctx context.Context, parentID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listChildCategories, parentID)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

const countCategories = `-- name: CountCategories :one
SELECT COUNT(*) FROM categories`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories).Scan(&n)
	return n, err
}

const countChildCategories = `-- name: CountChildCategories :one
SELECT COUNT(*) FROM categories WHERE parent_id = ?`

func (q *Queries) CountChildCategories(ctx context.Context, parentID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countChildCategories, parentID).Scan(&n)
	return n, err
}

const categoryNameTaken = `-- name: CategoryNameTaken :one
SELECT EXISTS(
	SELECT 1 FROM categories
	WHERE name = ?1 AND COALESCE(parent_id, 0) = COALESCE(?2, 0) AND id != ?3
)`

// CategoryNameTaken reports whether a sibling under parentID other than
// excludeID already uses name.
func (q *Queries) CategoryNameTaken(ctx context.Context, name string, parentID *int64, excludeID int64) (bool, error) {
	var taken int64
	err := q.db.QueryRowContext(ctx, categoryNameTaken, name, nullInt(parentID), excludeID).Scan(&taken)
	return taken != 0, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, parent_id, full_path, color, icon, budget_monthly_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	var createdAt string
	err := q.db.QueryRowContext(ctx, createCategory,
		c.Name, nullInt(c.ParentID), c.FullPath, nullString(c.Color), nullString(c.Icon),
		nullInt(core.CentsPtr(c.BudgetMonthly)), now(),
	).Scan(&c.ID, &createdAt)
	if err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

const updateCategory = `-- name: UpdateCategory :exec
UPDATE categories
SET name = ?, parent_id = ?, full_path = ?, color = ?, icon = ?, budget_monthly_cents = ?
WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := q.db.ExecContext(ctx, updateCategory,
		c.Name, nullInt(c.ParentID), c.FullPath, nullString(c.Color), nullString(c.Icon),
		nullInt(core.CentsPtr(c.BudgetMonthly)), c.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "category", c.ID)
}

const updateCategoryPath = `-- name: UpdateCategoryPath :exec
UPDATE categories SET full_path = ? WHERE id = ?`

func (q *Queries) UpdateCategoryPath(ctx context.Context, id int64, fullPath string) error {
	_, err := q.db.ExecContext(ctx, updateCategoryPath, fullPath, id)
	return err
}

const deleteCategory = `-- name: DeleteCategory :exec
DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "category", id)
}
