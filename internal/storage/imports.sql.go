package storage

import (
	"context"
	"database/sql"
	"time"

	"finanzen/internal/core"
)

const importColumns = `id, filename, format, import_date, transactions_total, transactions_new,
	transactions_duplicate, transactions_error, status, exported_at`

func scanImport(s scanner) (core.Import, error) {
	var (
		imp        core.Import
		importDate string
		status     string
		exportedAt sql.NullString
	)
	err := s.Scan(&imp.ID, &imp.Filename, &imp.Format, &importDate, &imp.TransactionsTotal, &imp.TransactionsNew,
		&imp.TransactionsDuplicate, &imp.TransactionsError, &status, &exportedAt)
	if err != nil {
		return core.Import{}, err
	}
	imp.ImportDate = parseTimestamp(importDate)
	imp.Status = core.ImportStatus(status)
	imp.ExportedAt = parseNullTimestamp(exportedAt)
	return imp, nil
}

func scanImports(rows *sql.Rows) ([]core.Import, error) {
	defer rows.Close()
	var items []core.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, imp)
	}
	return items, rows.Err()
}

const createImport = `-- name: CreateImport :one
INSERT INTO imports (filename, format, import_date, status) VALUES (?, ?, ?, ?)
RETURNING ` + importColumns

// CreateImport records the start of an import; counts are filled in by
// FinishImport.
func (q *Queries) CreateImport(ctx context.Context, filename, format string, at time.Time) (core.Import, error) {
	return scanImport(q.db.QueryRowContext(ctx, createImport, filename, format, timestamp(at), string(core.ImportSuccess)))
}

const finishImport = `-- name: FinishImport :exec
UPDATE imports
SET transactions_total = ?, transactions_new = ?, transactions_duplicate = ?, transactions_error = ?, status = ?
WHERE id = ?`

func (q *Queries) FinishImport(ctx context.Context, imp core.Import) error {
	res, err := q.db.ExecContext(ctx, finishImport,
		imp.TransactionsTotal, imp.TransactionsNew, imp.TransactionsDuplicate, imp.TransactionsError,
		string(imp.Status), imp.ID)
	if err != nil {
		return err
	}
	return expectAffected(res, "import", imp.ID)
}

const getImport = `-- name: GetImport :one
SELECT ` + importColumns + ` FROM imports WHERE id = ?`

func (q *Queries) GetImport(ctx context.Context, id int64) (core.Import, error) {
	imp, err := scanImport(q.db.QueryRowContext(ctx, getImport, id))
	if err != nil {
		return core.Import{}, notFound(err, "import", id)
	}
	return imp, nil
}

const listImports = `-- name: ListImports :many
SELECT ` + importColumns + ` FROM imports ORDER BY import_date DESC, id DESC LIMIT ?`

func (q *Queries) ListImports(ctx context.Context, limit int) ([]core.Import, error) {
	rows, err := q.db.QueryContext(ctx, listImports, limit)
	if err != nil {
		return nil, err
	}
	return scanImports(rows)
}

const listUnexportedImports = `-- name: ListUnexportedImports :many
SELECT ` + importColumns + ` FROM imports
WHERE exported_at IS NULL AND transactions_new > 0
ORDER BY id
LIMIT ?`

// ListUnexportedImports returns imports with new rows that have not been
// exported yet, oldest first.
func (q *Queries) ListUnexportedImports(ctx context.Context, limit int) ([]core.Import, error) {
	rows, err := q.db.QueryContext(ctx, listUnexportedImports, limit)
	if err != nil {
		return nil, err
	}
	return scanImports(rows)
}

const markImportExported = `-- name: MarkImportExported :exec
UPDATE imports SET exported_at = ? WHERE id = ?`

func (q *Queries) MarkImportExported(ctx context.Context, id int64, at time.Time) error {
	res, err := q.db.ExecContext(ctx, markImportExported, timestamp(at), id)
	if err != nil {
		return err
	}
	return expectAffected(res, "import", id)
}
