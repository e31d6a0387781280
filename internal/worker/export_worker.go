package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzen/internal/amqp"
	"finanzen/internal/core"
	"finanzen/internal/sheets"
	"finanzen/internal/storage"
)

// ExportWorker copies imported transactions to the configured spreadsheet.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  sheets.TransactionExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter sheets.TransactionExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleImportCompleted processes a single import completed message from AMQP
func (w *ExportWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	slog.InfoContext(ctx, "Processing import message",
		"import_id", msg.ImportID,
		"transactions_new", msg.TransactionsNew)

	imp, err := w.storage.Queries().GetImport(ctx, msg.ImportID)
	if err != nil {
		return fmt.Errorf("get import from storage: %w", err)
	}
	return w.exportImport(ctx, imp)
}

// ProcessPendingImports exports imports that have not been exported yet.
// This is a backup mechanism in case AMQP messages are lost
func (w *ExportWorker) ProcessPendingImports(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupExportCheck exports a larger batch of pending imports at worker
// startup to recover from missed messages or downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	exported, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if exported == 0 {
		slog.InfoContext(ctx, "No pending imports found on startup")
	}
	return nil
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.storage.Queries().ListUnexportedImports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending imports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending imports", "count", len(pending))

	exported, failed := 0, 0
	for _, imp := range pending {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.exportImport(ctx, imp); err != nil {
			slog.ErrorContext(ctx, "Failed to export import", "import_id", imp.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Pending export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return exported, nil
}

// exportImport writes the transactions of imp and marks it exported. Already
// exported imports are skipped so redelivered messages do not duplicate rows.
func (w *ExportWorker) exportImport(ctx context.Context, imp core.Import) error {
	if imp.ExportedAt != nil {
		slog.InfoContext(ctx, "Import already exported, skipping",
			"import_id", imp.ID,
			"exported_at", imp.ExportedAt.Format(time.RFC3339))
		return nil
	}

	q := w.storage.Queries()
	txs, err := q.ListTransactionsByImport(ctx, imp.ID)
	if err != nil {
		return fmt.Errorf("list transactions of import %d: %w", imp.ID, err)
	}

	ref, err := w.exporter.ExportTransactions(ctx, imp, txs)
	if err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}

	if err := q.MarkImportExported(ctx, imp.ID, time.Now()); err != nil {
		// Rows are written; a retry would duplicate them, so only log.
		slog.ErrorContext(ctx, "Failed to mark import as exported", "import_id", imp.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully exported import",
		"import_id", imp.ID,
		"rows", len(txs),
		"sheets_ref", ref)
	return nil
}
