package sheets

import (
	"context"

	"finanzen/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter appends the transactions of one import to an
	// external spreadsheet and returns a reference to the written range.
	TransactionExporter interface {
		ExportTransactions(ctx context.Context, imp core.Import, txs []core.Transaction) (ref string, err error)
	}
)
