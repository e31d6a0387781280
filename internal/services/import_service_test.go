package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzen/internal/core"
)

type recordingPublisher struct {
	mu      sync.Mutex
	imports []core.Import
	err     error
}

func (p *recordingPublisher) PublishImportCompleted(ctx context.Context, imp core.Import) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imports = append(p.imports, imp)
	return p.err
}

func TestImportStoresRowsAndSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &recordingPublisher{}
	f.imports = NewImportService(f.repo, nil, pub)

	content := volksbankCSV(
		vbRow("01.03.2024", "REWE Markt GmbH", "Einkauf", "-12,50", "1.000,00"),
		vbRow("02.03.2024", "Arbeitgeber GmbH", "Gehalt", "2.500,00", "3.500,00"),
	)

	first, err := f.imports.Import(ctx, content, "maerz.csv", "")
	require.NoError(t, err)
	assert.Equal(t, "volksbank", first.Format)
	assert.Equal(t, 2, first.TransactionsTotal)
	assert.Equal(t, 2, first.TransactionsNew)
	assert.Equal(t, 0, first.TransactionsDuplicate)
	assert.Equal(t, core.ImportSuccess, first.Status)

	second, err := f.imports.Import(ctx, content, "maerz.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 0, second.TransactionsNew)
	assert.Equal(t, 2, second.TransactionsDuplicate)

	require.Len(t, pub.imports, 1, "only imports with new rows are announced")
	assert.Equal(t, first.ID, pub.imports[0].ID)

	accounts, err := f.accounts.List(ctx, false, nil)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, testAccountIBAN, accounts[0].IBAN)

	history, err := f.imports.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")

	got, err := f.imports.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "maerz.csv", got.Filename)
}

func TestImportNeverAssignsCategories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	food := f.category(t, "Lebensmittel", nil)
	_, err := f.categorization.CreateRule(ctx, core.Rule{
		MatchCounterpartName: "%REWE%",
		AssignCategoryID:     food.ID,
		IsActive:             true,
	})
	require.NoError(t, err)

	txs := f.importRows(t, vbRow("01.03.2024", "REWE Markt GmbH", "Einkauf", "-12,50", ""))
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].CategoryID)
}

func TestImportPublishFailureKeepsRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.imports = NewImportService(f.repo, nil, &recordingPublisher{err: errors.New("broker down")})

	imp, err := f.imports.Import(ctx, volksbankCSV(vbRow("01.03.2024", "REWE", "Einkauf", "-1,00", "")), "a.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 1, imp.TransactionsNew)
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)
	_, err := f.imports.Import(context.Background(), "foo;bar\n", "a.csv", "sparkasse")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestImportGetMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.imports.Get(context.Background(), 404)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestImportIsolatesFailingRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.execSQL(t, `CREATE TRIGGER reject_bad_counterpart BEFORE INSERT ON transactions
		WHEN NEW.counterpart_name = 'BAD'
		BEGIN SELECT RAISE(ABORT, 'row rejected'); END`)

	imp, err := f.imports.Import(ctx, volksbankCSV(
		vbRow("01.03.2024", "GOOD", "Einkauf", "-10,00", ""),
		vbRow("02.03.2024", "BAD", "Einkauf", "-20,00", ""),
		vbRow("03.03.2024", "GOOD2", "Einkauf", "-30,00", ""),
	), "teilweise.csv", "volksbank")
	require.NoError(t, err)
	assert.Equal(t, 3, imp.TransactionsTotal)
	assert.Equal(t, 2, imp.TransactionsNew)
	assert.Equal(t, 0, imp.TransactionsDuplicate)
	assert.Equal(t, 1, imp.TransactionsError)
	assert.Equal(t, core.ImportPartial, imp.Status)

	stored, err := f.imports.Get(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ImportPartial, stored.Status)
	assert.Equal(t, 1, stored.TransactionsError)

	page, err := f.transactions.List(ctx, TransactionQuery{PerPage: 200})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	for _, tx := range page.Items {
		assert.NotEqual(t, "BAD", tx.CounterpartName)
	}
}

func TestImportWithOnlyFailingRowsFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.execSQL(t, `CREATE TRIGGER reject_bad_counterpart BEFORE INSERT ON transactions
		WHEN NEW.counterpart_name = 'BAD'
		BEGIN SELECT RAISE(ABORT, 'row rejected'); END`)

	imp, err := f.imports.Import(ctx, volksbankCSV(
		vbRow("02.03.2024", "BAD", "Einkauf", "-20,00", ""),
	), "kaputt.csv", "volksbank")
	require.NoError(t, err)
	assert.Equal(t, 0, imp.TransactionsNew)
	assert.Equal(t, 1, imp.TransactionsError)
	assert.Equal(t, core.ImportFailed, imp.Status)

	page, err := f.transactions.List(ctx, TransactionQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	history, err := f.imports.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1, "the failed import is still recorded")
	assert.Equal(t, core.ImportFailed, history[0].Status)
}

func TestImportCountsConcurrentInsertAsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// Another writer stores the same hash between the existence check and
	// the insert.
	f.execSQL(t, `CREATE TRIGGER concurrent_writer BEFORE INSERT ON transactions
		WHEN NEW.counterpart_name = 'RACE'
		BEGIN
			INSERT INTO transactions (import_hash, booking_date, amount_cents, counterpart_name)
			VALUES (NEW.import_hash, NEW.booking_date, NEW.amount_cents, 'RACE concurrent');
		END`)

	imp, err := f.imports.Import(ctx, volksbankCSV(
		vbRow("01.03.2024", "GOOD", "Einkauf", "-10,00", ""),
		vbRow("02.03.2024", "RACE", "Einkauf", "-20,00", ""),
	), "race.csv", "volksbank")
	require.NoError(t, err)
	assert.Equal(t, 1, imp.TransactionsNew)
	assert.Equal(t, 1, imp.TransactionsDuplicate)
	assert.Equal(t, 0, imp.TransactionsError)
	assert.Equal(t, core.ImportSuccess, imp.Status)
}
