package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzen/internal/core"
	"finanzen/internal/importer"
	"finanzen/internal/log"
	"finanzen/internal/storage"
)

// ImportPublisher announces finished imports to other processes.
type ImportPublisher interface {
	PublishImportCompleted(ctx context.Context, imp core.Import) error
}

// historyLimit is the number of imports returned by History.
const historyLimit = 20

// ImportService orchestrates CSV imports into SQLite and publishes the
// completion event.
type ImportService struct {
	storage   *storage.SQLiteRepository
	registry  *importer.Registry
	publisher ImportPublisher
}

// NewImportService creates the service. publisher may be nil, in which case
// no events are sent.
func NewImportService(storage *storage.SQLiteRepository, registry *importer.Registry, publisher ImportPublisher) *ImportService {
	if registry == nil {
		registry = importer.DefaultRegistry()
	}
	return &ImportService{
		storage:   storage,
		registry:  registry,
		publisher: publisher,
	}
}

// Import parses content, stores every new row and records the outcome.
// Rows already present (by import hash) count as duplicates; rows that fail
// to store count as errors without aborting the batch. Categories are never
// assigned here.
func (s *ImportService) Import(ctx context.Context, content, filename, format string) (core.Import, error) {
	parser, err := s.registry.Resolve(content, format)
	if err != nil {
		return core.Import{}, err
	}

	rows, err := parser.Parse(content)
	if err != nil {
		return core.Import{}, fmt.Errorf("parse %s export: %w", parser.Format(), err)
	}

	var imp core.Import
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		imp, err = q.CreateImport(ctx, filename, string(parser.Format()), time.Now())
		if err != nil {
			return fmt.Errorf("create import: %w", err)
		}
		imp.TransactionsTotal = len(rows)
		if len(rows) == 0 {
			imp.Status = core.ImportSuccess
			return q.FinishImport(ctx, imp)
		}

		accountID, err := ensureAccount(ctx, q, rows[0])
		if err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}

		for i, row := range rows {
			outcome := s.storeRow(ctx, q, row, imp.ID, &accountID)
			switch outcome {
			case rowNew:
				imp.TransactionsNew++
			case rowDuplicate:
				imp.TransactionsDuplicate++
			case rowError:
				imp.TransactionsError++
				slog.WarnContext(ctx, "Failed to store import row",
					"import_id", imp.ID,
					"row", i+1,
					"import_hash", row.Hash())
			}
		}

		imp.Status = core.DeriveImportStatus(imp.TransactionsNew, imp.TransactionsError)
		return q.FinishImport(ctx, imp)
	})
	if err != nil {
		return core.Import{}, fmt.Errorf("import %s: %w", filename, err)
	}

	fields := log.NewFields().
		WithImport(imp.ID, filename, imp.Format, imp.TransactionsNew, imp.TransactionsDuplicate, imp.TransactionsError).
		WithComponent(log.ComponentImport).
		WithOperation(log.OpImport)
	slog.InfoContext(ctx, "Import finished",
		append(fields.ToSlice(), "transactions_total", imp.TransactionsTotal, "status", imp.Status)...)

	if imp.TransactionsNew > 0 {
		if err := s.publish(ctx, imp); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import completed message",
				"import_id", imp.ID, "error", err)
			// Don't fail the import - rows are committed
		}
	}

	return imp, nil
}

type rowOutcome int

const (
	rowNew rowOutcome = iota
	rowDuplicate
	rowError
)

// storeRow inserts one row inside its own savepoint. A unique violation on
// insert means a concurrent import stored the same row first; it is counted
// as a duplicate and the account is resolved again because the rollback may
// have discarded it.
func (s *ImportService) storeRow(ctx context.Context, q *storage.Queries, row importer.Row, importID int64, accountID **int64) rowOutcome {
	tx := row.Transaction()
	exists, err := q.TransactionHashExists(ctx, tx.ImportHash)
	if err != nil {
		return rowError
	}
	if exists {
		return rowDuplicate
	}

	tx.ImportID = &importID
	tx.AccountID = *accountID
	err = q.Savepoint(ctx, "import_row", func() error {
		_, err := q.CreateTransaction(ctx, tx)
		return err
	})
	switch {
	case err == nil:
		return rowNew
	case storage.IsUniqueViolation(err):
		if id, err := ensureAccount(ctx, q, row); err == nil {
			*accountID = id
		}
		return rowDuplicate
	default:
		return rowError
	}
}

// ensureAccount returns the account for the row's IBAN, creating it on first
// sight. Rows without an IBAN have no account.
func ensureAccount(ctx context.Context, q *storage.Queries, row importer.Row) (*int64, error) {
	if row.AccountIBAN == "" {
		return nil, nil
	}
	acc, err := q.GetAccountByIBAN(ctx, row.AccountIBAN)
	if err == nil {
		return &acc.ID, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	name := row.AccountName
	if name == "" {
		name = row.AccountIBAN
	}
	acc, err = q.CreateAccount(ctx, core.Account{
		Name:        name,
		IBAN:        row.AccountIBAN,
		BIC:         row.AccountBIC,
		BankName:    row.BankName,
		AccountType: core.AccountGiro,
		IsActive:    true,
	})
	if err != nil {
		return nil, err
	}
	return &acc.ID, nil
}

func (s *ImportService) publish(ctx context.Context, imp core.Import) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping import message")
		return nil
	}
	return s.publisher.PublishImportCompleted(ctx, imp)
}

// History returns the most recent imports, newest first.
func (s *ImportService) History(ctx context.Context) ([]core.Import, error) {
	imports, err := s.storage.Queries().ListImports(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return imports, nil
}

func (s *ImportService) Get(ctx context.Context, id int64) (core.Import, error) {
	return s.storage.Queries().GetImport(ctx, id)
}
