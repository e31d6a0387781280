package storage

import (
	"context"
	"database/sql"

	"finanzen/internal/core"
)

const ruleColumns = `id, name, priority, match_counterpart_name, match_counterpart_iban, match_purpose, match_booking_type,
	match_amount_min_cents, match_amount_max_cents, assign_category_id, assign_shared, is_active, created_at`

func scanRule(s scanner) (core.Rule, error) {
	var (
		r                      core.Rule
		cpName, cpIBAN         sql.NullString
		purpose, bookingType   sql.NullString
		minCents, maxCents     sql.NullInt64
		assignShared, isActive int64
		createdAt              string
	)
	err := s.Scan(&r.ID, &r.Name, &r.Priority, &cpName, &cpIBAN, &purpose, &bookingType,
		&minCents, &maxCents, &r.AssignCategoryID, &assignShared, &isActive, &createdAt)
	if err != nil {
		return core.Rule{}, err
	}
	r.MatchCounterpartName = cpName.String
	r.MatchCounterpartIBAN = cpIBAN.String
	r.MatchPurpose = purpose.String
	r.MatchBookingType = bookingType.String
	r.MatchAmountMin = core.DecimalPtr(intPtr(minCents))
	r.MatchAmountMax = core.DecimalPtr(intPtr(maxCents))
	r.AssignShared = assignShared != 0
	r.IsActive = isActive != 0
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

func scanRules(rows *sql.Rows) ([]core.Rule, error) {
	defer rows.Close()
	var items []core.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getRule = `-- name: GetRule :one
SELECT ` + ruleColumns + ` FROM categorization_rules WHERE id = ?`

func (q *Queries) GetRule(ctx context.Context, id int64) (core.Rule, error) {
	r, err := scanRule(q.db.QueryRowContext(ctx, getRule, id))
	if err != nil {
		return core.Rule{}, notFound(err, "rule", id)
	}
	return r, nil
}

const listRules = `-- name: ListRules :many
SELECT ` + ruleColumns + ` FROM categorization_rules ORDER BY priority DESC, id`

// ListRules returns all rules in evaluation order.
func (q *Queries) ListRules(ctx context.Context) ([]core.Rule, error) {
	rows, err := q.db.QueryContext(ctx, listRules)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

const listActiveRules = `-- name: ListActiveRules :many
SELECT ` + ruleColumns + ` FROM categorization_rules WHERE is_active = 1 ORDER BY priority DESC, id`

func (q *Queries) ListActiveRules(ctx context.Context) ([]core.Rule, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRules)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

const createRule = `-- name: CreateRule :one
INSERT INTO categorization_rules (
	name, priority, match_counterpart_name, match_counterpart_iban, match_purpose, match_booking_type,
	match_amount_min_cents, match_amount_max_cents, assign_category_id, assign_shared, is_active, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + ruleColumns

func (q *Queries) CreateRule(ctx context.Context, r core.Rule) (core.Rule, error) {
	return scanRule(q.db.QueryRowContext(ctx, createRule,
		r.Name, r.Priority,
		nullString(r.MatchCounterpartName), nullString(r.MatchCounterpartIBAN),
		nullString(r.MatchPurpose), nullString(r.MatchBookingType),
		nullInt(core.CentsPtr(r.MatchAmountMin)), nullInt(core.CentsPtr(r.MatchAmountMax)),
		r.AssignCategoryID, boolInt(r.AssignShared), boolInt(r.IsActive), now()))
}

const updateRule = `-- name: UpdateRule :exec
UPDATE categorization_rules
SET name = ?, priority = ?, match_counterpart_name = ?, match_counterpart_iban = ?, match_purpose = ?,
	match_booking_type = ?, match_amount_min_cents = ?, match_amount_max_cents = ?, assign_category_id = ?,
	assign_shared = ?, is_active = ?
WHERE id = ?`

func (q *Queries) UpdateRule(ctx context.Context, r core.Rule) error {
	res, err := q.db.ExecContext(ctx, updateRule,
		r.Name, r.Priority,
		nullString(r.MatchCounterpartName), nullString(r.MatchCounterpartIBAN),
		nullString(r.MatchPurpose), nullString(r.MatchBookingType),
		nullInt(core.CentsPtr(r.MatchAmountMin)), nullInt(core.CentsPtr(r.MatchAmountMax)),
		r.AssignCategoryID, boolInt(r.AssignShared), boolInt(r.IsActive), r.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "rule", r.ID)
}

const deleteRule = `-- name: DeleteRule :exec
DELETE FROM categorization_rules WHERE id = ?`

func (q *Queries) DeleteRule(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteRule, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "rule", id)
}

const deleteRulesForCategory = `-- name: DeleteRulesForCategory :execrows
DELETE FROM categorization_rules WHERE assign_category_id = ?`

func (q *Queries) DeleteRulesForCategory(ctx context.Context, categoryID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteRulesForCategory, categoryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
